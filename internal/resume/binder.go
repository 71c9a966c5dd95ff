package resume

import (
	"context"
	"errors"
	"fmt"

	"careercatalyst/internal/blobstore"
)

// Bind re-keys the blob at tempKey to ownerID plus the original extension
// and points the owner record at it.
//
// Bind is safe to retry. When tempKey no longer resolves it checks the
// final key: an owner already referencing it yields ErrAlreadyBound, a
// final blob the record does not reference yet gets only the record half.
func (m *Manager) Bind(ctx context.Context, ownerID, tempKey string) (Location, error) {
	if err := blobstore.ValidateKey(tempKey); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrSourceBlobMissing, err)
	}
	stem, ext, ok := splitKey(tempKey)
	if !ok {
		return Location{}, fmt.Errorf("%w: %q has no extension", ErrSourceBlobMissing, tempKey)
	}

	unlock := m.locks.lock(ownerID)
	defer unlock()

	owner, err := m.getOwner(ctx, ownerID)
	if err != nil {
		return Location{}, err
	}
	// Only intake keys or the owner's own final key may be bound; anything
	// else belongs to another owner.
	if stem != owner.ID && !isTemporaryStem(stem) {
		return Location{}, fmt.Errorf("%w: %s is not a temporary upload", ErrSourceBlobMissing, tempKey)
	}
	finalKey := FinalKey(owner.ID, ext)
	bindErr := func(storageDone bool, err error) error {
		return &BindError{OwnerID: owner.ID, TempKey: tempKey, FinalKey: finalKey, StorageDone: storageDone, Err: err}
	}

	tempExists := false
	if tempKey != finalKey {
		if tempExists, err = m.blobs.Exists(ctx, tempKey); err != nil {
			return Location{}, bindErr(false, err)
		}
	}

	if tempExists {
		if err := m.blobs.Rename(ctx, tempKey, finalKey); err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return Location{}, fmt.Errorf("%w: %s", ErrSourceBlobMissing, tempKey)
			}
			return Location{}, bindErr(false, fmt.Errorf("%w: %v", ErrStorageWriteFailure, err))
		}
	} else {
		finalExists, err := m.blobs.Exists(ctx, finalKey)
		if err != nil {
			return Location{}, bindErr(false, err)
		}
		if !finalExists {
			return Location{}, fmt.Errorf("%w: %s", ErrSourceBlobMissing, tempKey)
		}
		if owner.ResumeKey == finalKey {
			return Location{Key: finalKey}, fmt.Errorf("%w: %s", ErrAlreadyBound, finalKey)
		}
		m.logger.Info("resume bind resumed after storage step", "owner_id", owner.ID, "key", finalKey)
	}

	updated, err := m.owners.UpdateResumeKey(ctx, owner.ID, owner.ResumeKey, finalKey)
	if err != nil {
		m.logger.Error("resume bind left blob without reference", "owner_id", owner.ID, "key", finalKey, "stage", "record", "error", err)
		return Location{}, bindErr(true, err)
	}
	if !updated {
		return Location{}, bindErr(true, ErrConcurrentUpdate)
	}

	if owner.ResumeKey != "" && owner.ResumeKey != finalKey {
		m.deleteQuietly(ctx, owner.ID, owner.ResumeKey, "bind")
	}
	return Location{Key: finalKey}, nil
}
