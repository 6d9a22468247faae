package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Transaction", uuid.New())}
}

// testHandler records every event it receives
type testHandler struct {
	eventTypes []string
	err        error
	panicMsg   string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	ctxErrs    []error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	voided := newTestHandler("TransactionVoided")
	all := newTestHandler()
	bus.Subscribe(voided)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(ctx,
		newTestEvent("TransactionVoided"),
		newTestEvent("TransactionStatusOverridden"),
	))

	assert.Equal(t, 1, voided.count())
	assert.Equal(t, 2, all.count(), "wildcard handler receives every event")
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler("Ignored")
	bus.Subscribe(h, "TransactionVoided")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Ignored"), newTestEvent("TransactionVoided")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler("E")
	failing.err = errors.New("boom")
	panicking := newTestHandler("E")
	panicking.panicMsg = "kaboom"
	healthy := newTestHandler("E")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 1, logs.FilterMessage("handler failed to process event").Len())
	assert.Equal(t, 1, logs.FilterMessage("handler panicked").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("E")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_Async(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch())
	require.NoError(t, bus.Start(ctx))

	h := newTestHandler("E")
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(ctx, newTestEvent("E"), newTestEvent("E")))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	assert.Equal(t, 2, h.count())
	for _, err := range h.ctxErrs {
		assert.NoError(t, err, "async handlers run detached from the publisher's cancellation")
	}
}

func TestInMemoryEventBus_PublishAfterStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Stop(context.Background()))

	err := bus.Publish(context.Background(), newTestEvent("E"))
	assert.ErrorIs(t, err, ErrBusStopped)

	require.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
}

func TestInMemoryEventBus_StopWhilePublishing(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch())
	require.NoError(t, bus.Start(context.Background()))
	h := newTestHandler("E")
	bus.Subscribe(h)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bus.Publish(context.Background(), newTestEvent("E")); err == nil {
				mu.Lock()
				published++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrBusStopped)
			}
		}()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))
	wg.Wait()

	// Every accepted publish finished its handlers before Stop returned
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, published, h.count())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()

	r.Register(a, "X", "Y")
	r.Register(a, "X")
	r.Register(b)

	assert.Len(t, r.GetHandlers("X"), 2)
	assert.Len(t, r.GetHandlers("Z"), 1)
	assert.Equal(t, 2, r.Count())

	r.Unregister(a)
	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers("X"))
	assert.Equal(t, 1, r.Count())
}
