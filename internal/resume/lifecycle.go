package resume

import (
	"context"
	"errors"
	"fmt"

	"careercatalyst/internal/blobstore"
	"careercatalyst/internal/models"
)

// Authorizer decides whether caller may change the resume bound to ownerID.
type Authorizer interface {
	Authorize(ctx context.Context, caller models.Principal, ownerID string) error
}

// SelfOnly allows an individual to change only their own resume.
type SelfOnly struct{}

func (SelfOnly) Authorize(_ context.Context, caller models.Principal, ownerID string) error {
	if caller.Kind != models.AccountIndividual || caller.ID == "" || caller.ID != ownerID {
		return ErrUnauthorized
	}
	return nil
}

// Replace stores upload directly under the owner's final key and points the
// record at it. A previous blob under a different extension is deleted.
func (m *Manager) Replace(ctx context.Context, caller models.Principal, ownerID string, upload Upload) (Location, error) {
	if err := m.authorizer.Authorize(ctx, caller, ownerID); err != nil {
		return Location{}, err
	}
	ext, err := m.checkUpload(upload)
	if err != nil {
		return Location{}, err
	}

	unlock := m.locks.lock(ownerID)
	defer unlock()

	owner, err := m.getOwner(ctx, ownerID)
	if err != nil {
		return Location{}, err
	}
	finalKey := FinalKey(owner.ID, ext)
	loc, err := m.write(ctx, finalKey, upload.Reader)
	if err != nil {
		return Location{}, err
	}

	updated, err := m.owners.UpdateResumeKey(ctx, owner.ID, owner.ResumeKey, finalKey)
	if err != nil {
		if finalKey != owner.ResumeKey {
			m.deleteQuietly(context.WithoutCancel(ctx), owner.ID, finalKey, "replace")
		}
		return Location{}, err
	}
	if !updated {
		// Another writer won; drop our blob unless the winner references the same key.
		if current, getErr := m.owners.GetIndividual(ctx, owner.ID); getErr == nil && (current == nil || current.ResumeKey != finalKey) {
			m.deleteQuietly(ctx, owner.ID, finalKey, "replace")
		}
		return Location{}, fmt.Errorf("%w: %s", ErrConcurrentUpdate, owner.ID)
	}

	if owner.ResumeKey != "" && owner.ResumeKey != finalKey {
		m.deleteQuietly(ctx, owner.ID, owner.ResumeKey, "replace")
	}
	return loc, nil
}

// Remove deletes the owner's bound blob and clears the reference.
// An unbound owner yields ErrNothingToDelete.
func (m *Manager) Remove(ctx context.Context, caller models.Principal, ownerID string) error {
	if err := m.authorizer.Authorize(ctx, caller, ownerID); err != nil {
		return err
	}

	unlock := m.locks.lock(ownerID)
	defer unlock()

	owner, err := m.getOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner.ResumeKey == "" {
		return ErrNothingToDelete
	}

	if err := m.blobs.Delete(ctx, owner.ResumeKey); err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			m.logger.Error("resume record references missing blob", "owner_id", owner.ID, "key", owner.ResumeKey, "stage", "remove")
			return fmt.Errorf("%w: %s references missing %s", ErrStorageInconsistency, owner.ID, owner.ResumeKey)
		}
		return fmt.Errorf("delete %s: %w", owner.ResumeKey, err)
	}

	updated, err := m.owners.UpdateResumeKey(ctx, owner.ID, owner.ResumeKey, "")
	if err != nil || !updated {
		m.logger.Error("resume record references deleted blob", "owner_id", owner.ID, "key", owner.ResumeKey, "stage", "remove", "error", err)
	}
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%w: %s", ErrConcurrentUpdate, owner.ID)
	}
	return nil
}

// Register stores upload, creates individual without a resume and binds the
// two. When any step after intake fails, the blob is deleted under whichever
// key holds it and the new record is removed before the error is returned.
func (m *Manager) Register(ctx context.Context, individual *models.Individual, upload Upload) (Location, error) {
	if individual == nil {
		return Location{}, fmt.Errorf("individual is required")
	}
	temp, err := m.Store(ctx, upload)
	if err != nil {
		return Location{}, err
	}

	if err := m.owners.CreateIndividual(ctx, individual); err != nil {
		m.deleteQuietly(context.WithoutCancel(ctx), individual.ID, temp.Key, "register")
		return Location{}, err
	}

	final, err := m.Bind(ctx, individual.ID, temp.Key)
	if err != nil {
		cleanup := context.WithoutCancel(ctx)
		m.deleteQuietly(cleanup, individual.ID, temp.Key, "register")
		var bindErr *BindError
		if errors.As(err, &bindErr) && bindErr.FinalKey != "" {
			m.deleteQuietly(cleanup, individual.ID, bindErr.FinalKey, "register")
		}
		if delErr := m.owners.DeleteIndividual(cleanup, individual.ID); delErr != nil {
			m.logger.Error("registration rollback failed", "owner_id", individual.ID, "stage", "register", "error", delErr)
		}
		return Location{}, err
	}
	final.SizeBytes = temp.SizeBytes
	return final, nil
}
