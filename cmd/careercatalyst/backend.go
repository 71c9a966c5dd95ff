package main

import (
	"fmt"
	"log/slog"

	"careercatalyst/internal/blobstore"
	"careercatalyst/internal/config"
	"careercatalyst/internal/resume"
	"careercatalyst/internal/store"
)

// backend is the store and resume manager opened from config.
type backend struct {
	store   *store.Store
	blobs   *blobstore.LocalDir
	resumes *resume.Manager
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if cfg.Uploads.Dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.NewLocalDir(cfg.Uploads.Dir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open upload dir: %w", err)
	}

	resumes := resume.NewManager(blobs, st, resume.Options{
		AllowedExtensions:       cfg.Uploads.AllowedExtensions,
		AllowedMediaTypes:       cfg.Uploads.AllowedMediaTypes,
		RejectMediaTypeMismatch: cfg.Uploads.RejectMediaTypeMismatch,
		MaxBytes:                cfg.Uploads.MaxUploadBytes,
		Logger:                  logger.With("component", "resume"),
	})
	return &backend{store: st, blobs: blobs, resumes: resumes}, nil
}

func (b *backend) Close() error {
	return b.store.Close()
}
