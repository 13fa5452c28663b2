package main

import (
	"github.com/spf13/cobra"

	"github.com/congo-pay/clearing/internal/migrations"
)

func newMigrateCommand(a *app) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if down > 0 {
				return migrations.Down(a.cfg.DatabaseURL, down, a.logger)
			}
			return migrations.Up(a.cfg.DatabaseURL, a.logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}
