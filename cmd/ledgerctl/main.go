package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/ledger/internal/bootstrap"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// cli carries the state shared by every subcommand
type cli struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var logLevel string

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the ledger from the command line",
		Long: `ledgerctl runs ledger operations against the configured database:
aging reports, document numbers, voiding transactions and the
notification worker.

Configuration is read from config.toml and LEDGER_* environment variables.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// Logs go to stderr so report output on stdout stays clean
			log, err := logger.New(logger.ForEnvironment(cfg.App.Env, firstNonEmpty(logLevel, cfg.Log.Level), cfg.Log.Format, "stderr"))
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.cfg = cfg
			c.log = log.Named("ledgerctl")
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		newAgingCmd(c),
		newNextNumberCmd(c),
		newVoidCmd(c),
		newWorkerCmd(c),
	)
	return root
}

// withApp builds the ledger service for the duration of fn
func (c *cli) withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			c.log.Warn("Error releasing resources", zap.Error(err))
		}
	}()
	return fn(app)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
