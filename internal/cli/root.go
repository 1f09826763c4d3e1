// Package cli holds the dilemmactl commands: offline simulations and load
// tests against a running server.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/dilemma/pkg/logger"
)

// NewRootCommand returns the dilemmactl command tree.
func NewRootCommand() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "dilemmactl",
		Short:         "Run Prisoner's Dilemma tournaments from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(logFormat)); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newSimulateCommand(), newLoadCommand())
	return root
}
