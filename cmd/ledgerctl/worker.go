package main

import (
	"errors"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/notification"
	"github.com/spf13/cobra"
)

func newWorkerCmd(c *cli) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume void notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Notification.Enabled {
				return errors.New("notifications are disabled; set notification.enabled = true")
			}
			w := notification.NewWorker(notification.WorkerConfig{
				Redis:       notification.RedisClientOpt(c.cfg.Redis),
				Queue:       c.cfg.Notification.Queue,
				Concurrency: concurrency,
				Logger:      c.log,
			})
			w.Handle(ledgerapp.NotificationTypeTransactionVoided, ledgerapp.ReceiveVoidNotification(c.log))
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "Tasks processed in parallel")
	return cmd
}
