package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel with same code", func(t *testing.T) {
		err := NewDomainError("NOT_FOUND", "Transaction not found")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", NewDomainError("CONCURRENCY_CONFLICT", "stale"))
		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "INVALID_INPUT", ErrorCode(fmt.Errorf("wrap: %w", ErrInvalidInput)))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
	assert.Equal(t, "", ErrorCode(nil))
}
