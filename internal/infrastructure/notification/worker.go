package notification

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReceiverFunc processes the payload of one delivered notification
type ReceiverFunc func(ctx context.Context, payload []byte) error

// Worker consumes notification tasks from asynq
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// WorkerConfig collects the settings required to run a Worker
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Queue       string
	Concurrency int
	Logger      *zap.Logger
}

// NewWorker constructs a Worker. Register receivers with Handle before Run.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}

	srv := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Sugar().Named("asynq"),
	})
	return &Worker{server: srv, mux: asynq.NewServeMux(), logger: logger}
}

// Handle routes notificationType tasks to receive
func (w *Worker) Handle(notificationType string, receive ReceiverFunc) {
	w.mux.HandleFunc(notificationType, TaskHandler(receive, w.logger))
}

// Run processes tasks until ctx is cancelled, then drains gracefully
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	w.logger.Info("notification worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("notification worker stopped")
	return nil
}

// TaskHandler adapts a ReceiverFunc to asynq. Payloads the receiver rejects as
// malformed are not retried.
func TaskHandler(receive ReceiverFunc, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := receive(ctx, task.Payload()); err != nil {
			logger.Warn("notification delivery failed",
				zap.String("type", task.Type()),
				zap.Error(err))
			if IsMalformed(err) {
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			return err
		}
		return nil
	}
}
