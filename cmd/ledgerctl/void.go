package main

import (
	"fmt"

	"github.com/erp/ledger/internal/bootstrap"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newVoidCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "void <transaction-id>",
		Short: "Void a transaction",
		Long: `Void a transaction. Voided transactions drop out of aging reports and
their status can no longer change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			return c.withApp(cmd.Context(), func(app *bootstrap.App) error {
				tx, err := app.Service.OverrideStatus(cmd.Context(), id, string(ledger.PaymentStatusVoid))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tx.DocumentNumber, tx.Status)
				return nil
			})
		},
	}
}
