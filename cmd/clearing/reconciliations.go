package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/clearing/internal/infra"
	"github.com/congo-pay/clearing/internal/reconciliation"
)

func newReconciliationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reconciliations",
		Aliases: []string{"recon"},
		Short:   "Inspect and clear transactions awaiting reconciliation",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print pending records as JSON lines, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReconciliations(cmd.Context(), func(store reconciliation.Store) error {
				return listReconciliations(cmd.Context(), store, limit, json.NewEncoder(cmd.OutOrStdout()))
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum number of records")

	clearCmd := &cobra.Command{
		Use:   "clear TRANSACTION_ID",
		Short: "Remove a record once the transaction was settled out of band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withReconciliations(cmd.Context(), func(store reconciliation.Store) error {
				if err := store.Clear(cmd.Context(), args[0]); err != nil {
					return err
				}
				a.logger.Info("reconciliation cleared", "transaction_id", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func (a *app) withReconciliations(ctx context.Context, fn func(reconciliation.Store) error) error {
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	pool, err := infra.NewPostgresPool(ctx, a.cfg.DatabaseURL, a.cfg.AppName)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(reconciliation.NewPostgresStore(pool))
}

func listReconciliations(ctx context.Context, store reconciliation.Store, limit int, enc *json.Encoder) error {
	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
