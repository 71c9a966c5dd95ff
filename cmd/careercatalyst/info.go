package main

import (
	"github.com/spf13/cobra"

	"careercatalyst/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, database and upload info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(cfg)
			resp, err := client.GetInfo(cmd.Context())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(resp)
			}

			_ = writePlain("api_url: %s\n", cfg.APIURL)
			_ = writePlain("db_path: %s\n", resp.DBPath)
			_ = writePlain("upload_dir: %s\n", resp.UploadDir)
			_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
			_ = writePlain("individuals: %d (with resume: %d)\n", resp.Individuals, resp.BoundResumes)
			_ = writePlain("institutions: %d\n", resp.Institutions)
			_ = writePlain("organizations: %d\n", resp.Organizations)
			_ = writePlain("jobs: %d\n", resp.Jobs)
			_ = writePlain("active_sessions: %d\n", resp.ActiveSessions)

			if client.HasSession() {
				me, err := client.Me(cmd.Context())
				if err != nil {
					return err
				}
				_ = writePlain("signed_in_as: %s %s <%s>\n", me.Kind, me.ID, me.Email)
			}
			return nil
		},
	}
}
