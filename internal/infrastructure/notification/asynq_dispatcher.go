// Package notification delivers ledger notifications through an asynq task queue.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DefaultQueue is used when no queue is configured
const DefaultQueue = "notifications"

// Enqueuer is the part of *asynq.Client the dispatcher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher enqueues notifications as asynq tasks
type AsynqDispatcher struct {
	client    Enqueuer
	queue     string
	maxRetry  int
	retention time.Duration
	logger    *zap.Logger
}

// DispatcherOption configures an AsynqDispatcher
type DispatcherOption func(*AsynqDispatcher)

// WithMaxRetry sets how often a failed delivery is retried by the worker
func WithMaxRetry(n int) DispatcherOption {
	return func(d *AsynqDispatcher) {
		d.maxRetry = n
	}
}

// WithRetention keeps completed tasks, and so their dedupe keys, for d
func WithRetention(d time.Duration) DispatcherOption {
	return func(a *AsynqDispatcher) {
		a.retention = d
	}
}

// NewAsynqDispatcher creates a dispatcher on an existing client
func NewAsynqDispatcher(client Enqueuer, queue string, logger *zap.Logger, opts ...DispatcherOption) *AsynqDispatcher {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &AsynqDispatcher{
		client:    client,
		queue:     queue,
		maxRetry:  10,
		retention: 24 * time.Hour,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RedisClientOpt builds the asynq connection options from the Redis config
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Dispatch enqueues payload under notificationType. key becomes the task ID,
// so a second dispatch with the same key is dropped by the queue.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, notificationType, key string, payload []byte) error {
	opts := []asynq.Option{
		asynq.Queue(d.queue),
		asynq.MaxRetry(d.maxRetry),
		asynq.Retention(d.retention),
	}
	if key != "" {
		opts = append(opts, asynq.TaskID(notificationType+":"+key))
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(notificationType, payload), opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			d.logger.Debug("notification already enqueued",
				zap.String("type", notificationType),
				zap.String("key", key))
			return nil
		}
		return fmt.Errorf("enqueue %s notification: %w", notificationType, err)
	}

	d.logger.Debug("notification enqueued",
		zap.String("type", notificationType),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}
