package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"careercatalyst/internal/config"
)

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration",
	}

	cmd.AddCommand(newConfigGetCmd(cfg), newConfigSetCmd(), newConfigKeysCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsAllowedKey(key) {
				return fmt.Errorf("unknown key: %s (see: careercatalyst config keys)", key)
			}
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a config key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := config.GlobalPath()
			if project {
				path, err = config.ProjectPath()
			}
			if err != nil {
				return err
			}
			if err := config.SetKey(path, key, value); err != nil {
				return err
			}
			return writePlain("%s updated in %s\n", key, path)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "write to ./.careercatalyst.toml instead of the global config")
	return cmd
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List settable config keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range config.AllowedKeys() {
				if err := writePlain("%s\n", key); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
