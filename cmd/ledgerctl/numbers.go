package main

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newNextNumberCmd(c *cli) *cobra.Command {
	var (
		docType string
		date    string
	)
	cmd := &cobra.Command{
		Use:   "next-number",
		Short: "Issue the next document number for a type and month",
		Long: `Issue the next document number. The number is consumed: it will not be
handed out again even if nothing is created with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if date != "" {
				t, err := time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q, use YYYY-MM-DD", date)
				}
				ref = t
			}
			return c.withApp(cmd.Context(), func(app *bootstrap.App) error {
				number, err := app.Service.IssueDocumentNumber(cmd.Context(), docType, &ref)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), number)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", "Document type: PO or SO")
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
