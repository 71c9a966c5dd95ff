package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"careercatalyst/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "careercatalyst",
		Short:         "CareerCatalyst resume and placement service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newReconcileCmd(cfg, &jsonOutput),
		newSeedCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
