package resume

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"careercatalyst/internal/blobstore"
)

// ReconcileOptions controls one reconciliation sweep.
type ReconcileOptions struct {
	// Apply deletes orphan blobs and clears dangling references. Without it
	// the sweep only reports.
	Apply bool
	// GracePeriod skips unreferenced blobs younger than this, so uploads that
	// are still being bound are not reported.
	GracePeriod time.Duration
	Now         time.Time
}

// DanglingReference is an owner record pointing at a key the store lacks.
type DanglingReference struct {
	OwnerID string `json:"owner_id"`
	Key     string `json:"key"`
	Cleared bool   `json:"cleared,omitempty"`
}

// OrphanBlob is a stored blob no owner record references.
type OrphanBlob struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	Temporary bool      `json:"temporary"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// ReconcileReport is the result of one sweep.
type ReconcileReport struct {
	DryRun       bool                `json:"dry_run"`
	BoundOwners  int                 `json:"bound_owners"`
	ScannedBlobs int                 `json:"scanned_blobs"`
	Dangling     []DanglingReference `json:"dangling"`
	Orphans      []OrphanBlob        `json:"orphans"`
	OrphanBytes  int64               `json:"orphan_bytes"`
	FailedCount  int                 `json:"failed_count"`
}

// Clean reports whether the sweep found no drift.
func (r ReconcileReport) Clean() bool {
	return len(r.Dangling) == 0 && len(r.Orphans) == 0
}

// Reconcile compares owner references against stored blobs.
func (m *Manager) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error) {
	report := ReconcileReport{DryRun: !opts.Apply, Dangling: []DanglingReference{}, Orphans: []OrphanBlob{}}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	grace := opts.GracePeriod
	if grace < 0 {
		grace = 0
	}

	refs, err := m.owners.ListResumeKeys(ctx)
	if err != nil {
		return report, err
	}
	objects, err := m.blobs.List(ctx)
	if err != nil {
		return report, err
	}
	report.BoundOwners = len(refs)
	report.ScannedBlobs = len(objects)

	stored := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		stored[obj.Key] = struct{}{}
	}
	referenced := make(map[string]struct{}, len(refs))

	ownerIDs := make([]string, 0, len(refs))
	for ownerID, key := range refs {
		referenced[key] = struct{}{}
		ownerIDs = append(ownerIDs, ownerID)
	}
	sort.Strings(ownerIDs)

	for _, ownerID := range ownerIDs {
		key := refs[ownerID]
		if _, ok := stored[key]; ok {
			continue
		}
		ref := DanglingReference{OwnerID: ownerID, Key: key}
		m.logger.Warn("resume reference without blob", "owner_id", ownerID, "key", key, "stage", "reconcile")
		if opts.Apply {
			cleared, err := m.clearDangling(ctx, ownerID, key)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				report.FailedCount++
				m.logger.Warn("clear dangling reference failed", "owner_id", ownerID, "key", key, "error", err)
			}
			ref.Cleared = cleared
		}
		report.Dangling = append(report.Dangling, ref)
	}

	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if now.Sub(obj.ModTime) < grace {
			continue
		}
		stem, _, _ := splitKey(obj.Key)
		orphan := OrphanBlob{Key: obj.Key, SizeBytes: obj.SizeBytes, ModTime: obj.ModTime, Temporary: isTemporaryStem(stem)}
		if opts.Apply {
			deleted, err := m.deleteOrphan(ctx, orphan)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				report.FailedCount++
				m.logger.Warn("delete orphan blob failed", "key", obj.Key, "error", err)
			}
			if !deleted && err == nil {
				// Bound while the sweep ran.
				continue
			}
			orphan.Deleted = deleted
		}
		report.OrphanBytes += orphan.SizeBytes
		report.Orphans = append(report.Orphans, orphan)
	}

	return report, nil
}

// clearDangling drops a reference if it still points at a missing blob.
func (m *Manager) clearDangling(ctx context.Context, ownerID, key string) (bool, error) {
	unlock := m.locks.lock(ownerID)
	defer unlock()

	exists, err := m.blobs.Exists(ctx, key)
	if err != nil || exists {
		return false, err
	}
	return m.owners.UpdateResumeKey(ctx, ownerID, key, "")
}

// deleteOrphan removes an unreferenced blob. Identity keyed blobs are
// re-checked under the owner lock so a concurrent bind is not undone.
func (m *Manager) deleteOrphan(ctx context.Context, orphan OrphanBlob) (bool, error) {
	if !orphan.Temporary {
		stem, _, _ := splitKey(orphan.Key)
		unlock := m.locks.lock(stem)
		defer unlock()

		owner, err := m.owners.GetIndividual(ctx, stem)
		if err != nil {
			return false, err
		}
		if owner != nil && owner.ResumeKey == orphan.Key {
			return false, nil
		}
	}
	if err := m.blobs.Delete(ctx, orphan.Key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return false, err
	}
	return true, nil
}

// RunReconciler sweeps every interval until ctx is done.
func (m *Manager) RunReconciler(ctx context.Context, interval time.Duration, opts ReconcileOptions) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		sweep := opts
		sweep.Now = time.Now()
		report, err := m.Reconcile(ctx, sweep)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Error("resume reconcile failed", "error", err)
			continue
		}
		if !report.Clean() {
			m.logger.Warn("resume drift detected",
				"dangling", len(report.Dangling),
				"orphans", len(report.Orphans),
				"orphan_bytes", report.OrphanBytes,
				"applied", !report.DryRun,
			)
		} else {
			m.logger.Debug("resume reconcile clean", "bound_owners", report.BoundOwners, "blobs", report.ScannedBlobs)
		}
	}
}

func isTemporaryStem(stem string) bool {
	_, err := uuid.Parse(stem)
	return err == nil
}
