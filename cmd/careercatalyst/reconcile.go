package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"careercatalyst/internal/api"
	"careercatalyst/internal/config"
	"careercatalyst/internal/resume"
)

func newReconcileCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		apply     bool
		grace     time.Duration
		viaServer bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report or repair drift between resume records and stored files",
		Long: "Compares every bound resume key with the upload directory. Without --apply\n" +
			"nothing is changed. With --apply orphan files are deleted and references\n" +
			"to missing files are cleared.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grace < 0 {
				return fmt.Errorf("--grace must not be negative")
			}
			if !cmd.Flags().Changed("grace") {
				grace = cfg.Uploads.OrphanGrace()
			}

			var report resume.ReconcileReport
			if viaServer {
				resp, err := newClient(cfg).Reconcile(cmd.Context(), apply, grace)
				if err != nil {
					return err
				}
				report = resp.ReconcileReport
			} else {
				b, err := openBackend(cfg, componentLogger("reconcile"))
				if err != nil {
					return err
				}
				defer b.Close()
				report, err = b.resumes.Reconcile(cmd.Context(), resume.ReconcileOptions{
					Apply:       apply,
					GracePeriod: grace,
					Now:         time.Now(),
				})
				if err != nil {
					return err
				}
			}

			if *jsonOutput {
				return writeJSON(api.ReconcileResponse{ReconcileReport: report})
			}
			return writeReconcileReport(report)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphan files and clear dangling references")
	cmd.Flags().DurationVar(&grace, "grace", 0, "ignore unreferenced files younger than this (default: uploads.orphan_grace_period)")
	cmd.Flags().BoolVar(&viaServer, "server", false, "run the sweep on the running server (needs CAREERCATALYST_ADMIN_TOKEN)")
	return cmd
}

func writeReconcileReport(report resume.ReconcileReport) error {
	mode := "dry run"
	if !report.DryRun {
		mode = "applied"
	}
	if err := writePlain("%s: bound=%d files=%d dangling=%d orphans=%d (%s) failed=%d\n",
		mode, report.BoundOwners, report.ScannedBlobs, len(report.Dangling), len(report.Orphans),
		humanize.IBytes(uint64(report.OrphanBytes)), report.FailedCount); err != nil {
		return err
	}
	for _, ref := range report.Dangling {
		status := ""
		if ref.Cleared {
			status = " (cleared)"
		}
		if err := writePlain("  dangling %s -> %s%s\n", ref.OwnerID, ref.Key, status); err != nil {
			return err
		}
	}
	for _, orphan := range report.Orphans {
		kind := "orphan"
		if orphan.Temporary {
			kind = "temp"
		}
		status := ""
		if orphan.Deleted {
			status = " (deleted)"
		}
		if err := writePlain("  %s %s %s, written %s%s\n", kind, orphan.Key,
			humanize.IBytes(uint64(orphan.SizeBytes)), humanize.Time(orphan.ModTime), status); err != nil {
			return err
		}
	}
	return nil
}
