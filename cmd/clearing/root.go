package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/congo-pay/clearing/internal/config"
	"github.com/congo-pay/clearing/internal/logging"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "clearing",
		Short:         "Real-time clearing saga service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.LogLevel, cfg.AppName)
			return nil
		},
	}
	cmd.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newReconciliationsCommand(a),
	)
	return cmd
}
