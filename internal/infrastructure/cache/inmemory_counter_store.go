package cache

import (
	"context"
	"sync"

	"github.com/erp/ledger/internal/domain/numbering"
)

// InMemoryCounterStore implements numbering.CounterStore with a guarded map.
// Counters live only as long as the process; for tests and single-instance development.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewInMemoryCounterStore creates an empty store
func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{counters: make(map[string]int64)}
}

// IncrementAndGet implements numbering.CounterStore
func (s *InMemoryCounterStore) IncrementAndGet(ctx context.Context, prefix string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[prefix]++
	return s.counters[prefix], nil
}

// Current returns the last issued value for prefix
func (s *InMemoryCounterStore) Current(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[prefix], nil
}

// Ensure InMemoryCounterStore implements numbering.CounterStore
var _ numbering.CounterStore = (*InMemoryCounterStore)(nil)
