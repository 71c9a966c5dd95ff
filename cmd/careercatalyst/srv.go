package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"careercatalyst/internal/config"
	"careercatalyst/internal/resume"
	"careercatalyst/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the CareerCatalyst API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := componentLogger("server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}
			b, err := openBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			grace := cfg.Uploads.OrphanGrace()
			srv := server.New(addr, b.store, b.resumes, server.Options{
				DBPath:             cfg.DBPath,
				UploadDir:          b.blobs.Root(),
				CORSOrigins:        cfg.CORSOrigins,
				MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
				OrphanGracePeriod:  grace,
				Logger:             logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})
			if every := cfg.Uploads.ReconcileEvery(); every > 0 {
				logger.Info("resume reconciler enabled", "interval", every, "grace", grace)
				g.Go(func() error {
					return b.resumes.RunReconciler(ctx, every, resume.ReconcileOptions{GracePeriod: grace})
				})
			}

			logger.Info("upload limits", "max_upload", humanize.IBytes(uint64(b.resumes.MaxBytes())), "dir", b.blobs.Root())
			return g.Wait()
		},
	}
}
