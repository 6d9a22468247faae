package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEnqueuer is a mock implementation of Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func optionValues(opts []asynq.Option) map[asynq.OptionType]any {
	out := make(map[asynq.OptionType]any, len(opts))
	for _, o := range opts {
		out[o.Type()] = o.Value()
	}
	return out
}

func TestAsynqDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	client := new(MockEnqueuer)
	d := NewAsynqDispatcher(client, "ledger-notify", zap.NewNop(), WithMaxRetry(3))

	var captured *asynq.Task
	var capturedOpts []asynq.Option
	client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*asynq.Task)
			capturedOpts = args.Get(2).([]asynq.Option)
		}).
		Return(&asynq.TaskInfo{ID: "ledger:notify_void:abc", Queue: "ledger-notify"}, nil)

	require.NoError(t, d.Dispatch(ctx, "ledger:notify_void", "abc", []byte(`{"a":1}`)))

	require.NotNil(t, captured)
	assert.Equal(t, "ledger:notify_void", captured.Type())
	assert.JSONEq(t, `{"a":1}`, string(captured.Payload()))

	values := optionValues(capturedOpts)
	assert.Equal(t, "ledger-notify", values[asynq.QueueOpt])
	assert.Equal(t, 3, values[asynq.MaxRetryOpt])
	assert.Equal(t, "ledger:notify_void:abc", values[asynq.TaskIDOpt])
	client.AssertExpectations(t)
}

func TestAsynqDispatcher_DuplicateKeyIsAccepted(t *testing.T) {
	ctx := context.Background()
	client := new(MockEnqueuer)
	d := NewAsynqDispatcher(client, "", nil)

	client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict)

	assert.NoError(t, d.Dispatch(ctx, "ledger:notify_void", "abc", nil))
}

func TestAsynqDispatcher_EnqueueFailure(t *testing.T) {
	ctx := context.Background()
	client := new(MockEnqueuer)
	d := NewAsynqDispatcher(client, "", nil)

	client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	err := d.Dispatch(ctx, "ledger:notify_void", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestAsynqDispatcher_DefaultQueue(t *testing.T) {
	ctx := context.Background()
	client := new(MockEnqueuer)
	d := NewAsynqDispatcher(client, "", nil)

	var capturedOpts []asynq.Option
	client.On("EnqueueContext", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { capturedOpts = args.Get(2).([]asynq.Option) }).
		Return(&asynq.TaskInfo{ID: "x", Queue: DefaultQueue}, nil)

	require.NoError(t, d.Dispatch(ctx, "t", "", nil))
	values := optionValues(capturedOpts)
	assert.Equal(t, DefaultQueue, values[asynq.QueueOpt])
	_, hasID := values[asynq.TaskIDOpt]
	assert.False(t, hasID, "no task ID without a key")
}

func TestTaskHandler(t *testing.T) {
	ctx := context.Background()
	task := asynq.NewTask("ledger:notify_void", []byte(`{}`))

	t.Run("success", func(t *testing.T) {
		var got []byte
		h := TaskHandler(func(_ context.Context, payload []byte) error {
			got = payload
			return nil
		}, zap.NewNop())
		require.NoError(t, h.ProcessTask(ctx, task))
		assert.Equal(t, []byte(`{}`), got)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		h := TaskHandler(func(context.Context, []byte) error { return errors.New("smtp down") }, zap.NewNop())
		err := h.ProcessTask(ctx, task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		h := TaskHandler(func(_ context.Context, payload []byte) error {
			var v map[string]any
			return json.Unmarshal([]byte("{bad"), &v)
		}, zap.NewNop())
		assert.ErrorIs(t, h.ProcessTask(ctx, task), asynq.SkipRetry)
	})
}

func TestRedisClientOpt(t *testing.T) {
	opt := RedisClientOpt(config.RedisConfig{Host: "redis", Port: 6380, Password: "pw", DB: 2})
	assert.Equal(t, "redis:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
