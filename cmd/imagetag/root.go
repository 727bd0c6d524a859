package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imagetag/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	out := &outputOptions{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "imagetag",
		Short:         "Imagetag stores images and the tags attached to them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out.json && out.yaml {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.Log)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newImageCmd(cfg, out),
		newTagCmd(cfg, out),
		newSearchCmd(cfg, out),
		newReconcileCmd(cfg, out),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, out),
	)

	return cmd
}
