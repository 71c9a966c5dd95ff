// Package resume manages the lifecycle of resume files bound to individuals:
// intake under a temporary key, binding to the owner identity, replacement,
// removal and reconciliation of drift between records and stored blobs.
package resume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"careercatalyst/internal/blobstore"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

const (
	DefaultMaxBytes    int64 = 5 << 20
	DefaultGracePeriod       = time.Hour

	genericMediaType = "application/octet-stream"
)

var (
	defaultAllowedExtensions = []string{"pdf"}
	defaultAllowedMediaTypes = []string{"application/pdf"}
)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	// AllowedExtensions lists accepted file extensions without the dot.
	AllowedExtensions []string
	// AllowedMediaTypes lists accepted declared and sniffed media types.
	AllowedMediaTypes []string
	// RejectMediaTypeMismatch rejects uploads whose sniffed content type is not allowed.
	RejectMediaTypeMismatch bool
	MaxBytes                int64
	Authorizer              Authorizer
	Logger                  *slog.Logger
}

// Location is where a blob was stored.
type Location struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// Manager coordinates the blob store and owner records.
type Manager struct {
	blobs  blobstore.Store
	owners store.OwnerStore
	locks  *ownerLocks

	allowedExtensions map[string]struct{}
	allowedMediaTypes map[string]struct{}
	rejectMismatch    bool
	maxBytes          int64
	authorizer        Authorizer
	logger            *slog.Logger
}

// NewManager wires the blob store and owner persistence.
func NewManager(blobs blobstore.Store, owners store.OwnerStore, opts Options) *Manager {
	m := &Manager{
		blobs:          blobs,
		owners:         owners,
		locks:          newOwnerLocks(),
		rejectMismatch: opts.RejectMediaTypeMismatch,
		maxBytes:       opts.MaxBytes,
		authorizer:     opts.Authorizer,
		logger:         opts.Logger,
	}
	m.allowedExtensions = normalizeSet(opts.AllowedExtensions, defaultAllowedExtensions, normalizeExtension)
	m.allowedMediaTypes = normalizeSet(opts.AllowedMediaTypes, defaultAllowedMediaTypes, normalizeMediaType)
	if m.maxBytes <= 0 {
		m.maxBytes = DefaultMaxBytes
	}
	if m.authorizer == nil {
		m.authorizer = SelfOnly{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// MaxBytes returns the upload size limit.
func (m *Manager) MaxBytes() int64 {
	return m.maxBytes
}

// FinalKey returns the storage key bound to ownerID for a file extension.
func FinalKey(ownerID, ext string) string {
	return ownerID + "." + ext
}

// Open returns the content of a bound resume. Keys that no owner references,
// such as temporary uploads, are reported as blobstore.ErrNotFound.
func (m *Manager) Open(ctx context.Context, key string) (blobstore.Reader, blobstore.Object, error) {
	var zero blobstore.Object
	if err := blobstore.ValidateKey(key); err != nil {
		return nil, zero, blobstore.ErrNotFound
	}
	ownerID, _, ok := splitKey(key)
	if !ok {
		return nil, zero, blobstore.ErrNotFound
	}
	owner, err := m.owners.GetIndividual(ctx, ownerID)
	if err != nil {
		return nil, zero, err
	}
	if owner == nil || owner.ResumeKey != key {
		return nil, zero, blobstore.ErrNotFound
	}
	return m.blobs.Open(ctx, key)
}

func (m *Manager) getOwner(ctx context.Context, ownerID string) (*models.Individual, error) {
	owner, err := m.owners.GetIndividual(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: %s", ErrOwnerNotFound, ownerID)
	}
	return owner, nil
}

// deleteQuietly removes key and logs anything other than success or absence.
func (m *Manager) deleteQuietly(ctx context.Context, ownerID, key, stage string) {
	if key == "" {
		return
	}
	err := m.blobs.Delete(ctx, key)
	if err == nil || errors.Is(err, blobstore.ErrNotFound) {
		return
	}
	m.logger.Warn("resume blob cleanup failed", "owner_id", ownerID, "key", key, "stage", stage, "error", err)
}

// splitKey splits "stem.ext" at the last dot.
func splitKey(key string) (stem, ext string, ok bool) {
	ext = path.Ext(key)
	if len(ext) < 2 {
		return "", "", false
	}
	stem = strings.TrimSuffix(key, ext)
	if stem == "" {
		return "", "", false
	}
	return stem, ext[1:], true
}

func normalizeSet(values, defaults []string, normalize func(string) string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, raw := range values {
		if v := normalize(raw); v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		for _, raw := range defaults {
			out[normalize(raw)] = struct{}{}
		}
	}
	return out
}

func normalizeExtension(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
