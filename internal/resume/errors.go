package resume

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageWriteFailure is returned when the blob store rejects a write.
	ErrStorageWriteFailure = errors.New("storage write failure")
	// ErrOwnerNotFound is returned when the owner identity has no persisted record.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrSourceBlobMissing is returned when bind cannot find the uploaded blob.
	ErrSourceBlobMissing = errors.New("source blob missing")
	// ErrUnauthorized is returned when the caller may not modify the owner's resume.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorageInconsistency is returned when a record references a blob the store does not have.
	ErrStorageInconsistency = errors.New("storage inconsistency")
	// ErrUnsupportedFileType is returned by intake for rejected extensions or media types.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNothingToDelete is returned by Remove for an owner without a bound resume.
	ErrNothingToDelete = errors.New("nothing to delete")
	// ErrAlreadyBound is returned by Bind when the owner already references the final key.
	ErrAlreadyBound = errors.New("already bound")
	// ErrConcurrentUpdate is returned when the owner record changed underneath the operation.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// BindError reports how far a failed bind got.
//
// StorageDone means the blob sits under FinalKey. RecordDone means the owner
// record references FinalKey. A caller retrying Bind with either TempKey or
// FinalKey only redoes the missing half.
type BindError struct {
	OwnerID     string
	TempKey     string
	FinalKey    string
	StorageDone bool
	RecordDone  bool
	Err         error
}

func (e *BindError) Error() string {
	var done []string
	if e.StorageDone {
		done = append(done, "storage")
	}
	if e.RecordDone {
		done = append(done, "record")
	}
	completed := "none"
	if len(done) > 0 {
		completed = strings.Join(done, "+")
	}
	return fmt.Sprintf("bind %s to %s (completed: %s): %v", e.TempKey, e.FinalKey, completed, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
