package main

import (
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after the config file, PQLINT_* environment
variables and flags are merged. The output is a valid --config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Write(cmd.OutOrStdout(), a.cfg); err != nil {
				return errors.Wrap(err, errors.ErrorTypeIO, "failed to write configuration")
			}
			return nil
		},
	}
}
