package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a key does not resolve to a stored blob.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that are not flat, safe file names.
	ErrInvalidKey = errors.New("invalid blob key")
)

// PutResult describes one persisted blob payload.
type PutResult struct {
	Key       string
	SizeBytes int64
}

// Object describes a stored blob without its content.
type Object struct {
	Key       string
	SizeBytes int64
	ModTime   time.Time
}

// Reader is an open blob. Seeking is supported so blobs can be served with range requests.
type Reader interface {
	io.ReadSeekCloser
}

// Store is the byte-storage abstraction used by the resume manager.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (PutResult, error)
	Rename(ctx context.Context, from, to string) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (Reader, Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}
