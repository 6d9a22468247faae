package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/bootstrap"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newAgingCmd(c *cli) *cobra.Command {
	var (
		kind   string
		asOf   string
		sortBy string
		desc   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Print an AP (PURCHASE) or AR (ORDER) aging report",
		Example: `  # Payables as of today, largest balance first
  ledgerctl aging --kind PURCHASE

  # Receivables at month end, sorted by name
  ledgerctl aging --kind ORDER --as-of 2025-03-31 --sort name --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ledgerapp.AgingReportInput{Kind: kind, SortBy: sortBy}
			if asOf != "" {
				t, err := time.Parse(dateLayout, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q, use YYYY-MM-DD", asOf)
				}
				input.AsOf = t
			}
			if cmd.Flags().Changed("desc") {
				input.Descending = &desc
			}

			return c.withApp(cmd.Context(), func(app *bootstrap.App) error {
				report, err := app.Service.AgingReport(cmd.Context(), input)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}
				return renderAging(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "PURCHASE or ORDER")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Report date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort key: balance, name, total, overdue")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func renderAging(w io.Writer, report *ledgerapp.AgingReport) error {
	fmt.Fprintf(w, "%s aging as of %s\n\n", report.Kind, report.AsOf.Format(dateLayout))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "COUNTERPARTY\t0-30\t31-60\t60+\tTOTAL\tPAID\tBALANCE\tTXNS\t")
	for _, b := range report.Balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t\n",
			b.CounterpartyName,
			b.Aging0To30.StringFixed(2), b.Aging31To60.StringFixed(2), b.Aging60Plus.StringFixed(2),
			b.TotalAmount.StringFixed(2), b.PaidAmount.StringFixed(2), b.Balance.StringFixed(2),
			b.TransactionCount)
	}
	t := report.Totals
	fmt.Fprintf(tw, "TOTAL (%d)\t%s\t%s\t%s\t%s\t%s\t%s\t\t\n",
		t.Counterparties,
		t.Aging0To30.StringFixed(2), t.Aging31To60.StringFixed(2), t.Aging60Plus.StringFixed(2),
		t.TotalAmount.StringFixed(2), t.PaidAmount.StringFixed(2), t.Balance.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Overpayments) > 0 {
		fmt.Fprintln(w, "\nOverpaid transactions:")
		for _, o := range report.Overpayments {
			fmt.Fprintf(w, "  %s  %s  excess %s\n", o.DocumentNumber, o.CounterpartyName, o.Excess.StringFixed(2))
		}
	}
	return nil
}
