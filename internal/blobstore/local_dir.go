package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	stagingDirName = ".incoming"
	maxKeyLength   = 255
)

// LocalDir stores blobs as flat files in one directory, addressed by key.
//
// Writes land in a hidden staging directory first and are renamed into place,
// so a key only ever resolves to a completely written file.
type LocalDir struct {
	root    string
	staging string
}

// NewLocalDir creates a directory-backed store rooted at root.
func NewLocalDir(root string) (*LocalDir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(abs, stagingDirName)
	// MkdirAll tolerates concurrent creation of the same directory.
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directories: %w", err)
	}
	return &LocalDir{root: abs, staging: staging}, nil
}

// Root returns the absolute storage directory.
func (d *LocalDir) Root() string {
	if d == nil {
		return ""
	}
	return d.root
}

// Put streams r into key, replacing any existing blob at key.
func (d *LocalDir) Put(ctx context.Context, key string, r io.Reader) (PutResult, error) {
	var zero PutResult
	if d == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	dst, err := d.pathFromKey(key)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(d.staging, "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return zero, err
	}

	return PutResult{Key: key, SizeBytes: n}, nil
}

// Rename moves the blob at from to to, replacing any blob at to.
func (d *LocalDir) Rename(ctx context.Context, from, to string) error {
	if d == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := d.pathFromKey(from)
	if err != nil {
		return err
	}
	dst, err := d.pathFromKey(to)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rename %s: %w", from, ErrNotFound)
		}
		return err
	}
	return nil
}

// Exists reports whether key resolves to a stored blob.
func (d *LocalDir) Exists(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Open returns a reader for the blob at key.
func (d *LocalDir) Open(ctx context.Context, key string) (Reader, Object, error) {
	var zero Object
	if d == nil {
		return nil, zero, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, zero, err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return nil, zero, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zero, fmt.Errorf("open %s: %w", key, ErrNotFound)
		}
		return nil, zero, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, zero, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, zero, fmt.Errorf("open %s: %w", key, ErrNotFound)
	}
	return f, Object{Key: key, SizeBytes: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes the blob at key. A missing key returns ErrNotFound.
func (d *LocalDir) Delete(ctx context.Context, key string) error {
	if d == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, ErrNotFound)
		}
		return err
	}
	return nil
}

// List returns all committed blobs sorted by key. Staged writes are not included.
func (d *LocalDir) List(ctx context.Context) ([]Object, error) {
	if d == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || ValidateKey(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		objects = append(objects, Object{Key: entry.Name(), SizeBytes: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// ValidateKey checks that key is a flat file name that cannot escape the store root.
func ValidateKey(key string) error {
	switch {
	case key == "", strings.TrimSpace(key) != key:
		return ErrInvalidKey
	case len(key) > maxKeyLength:
		return ErrInvalidKey
	case strings.HasPrefix(key, "."):
		return ErrInvalidKey
	case strings.ContainsAny(key, `/\`), strings.ContainsRune(key, 0):
		return ErrInvalidKey
	case strings.Contains(key, ".."):
		return ErrInvalidKey
	}
	return nil
}

func (d *LocalDir) pathFromKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", fmt.Errorf("%w: %q", err, key)
	}
	return filepath.Join(d.root, key), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
