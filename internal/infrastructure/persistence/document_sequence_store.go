package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/numbering"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// incrementSequenceSQL creates the counter at 1 or bumps it in a single atomic statement.
// The row lock taken by the upsert is the only serialization point.
const incrementSequenceSQL = `INSERT INTO document_sequences (prefix, last_value, updated_at) VALUES (?, 1, ?) ` +
	`ON CONFLICT (prefix) DO UPDATE SET last_value = document_sequences.last_value + 1, updated_at = excluded.updated_at ` +
	`RETURNING last_value`

// SQLSTATE codes of transient lock conflicts
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// GormDocumentSequenceStore implements numbering.CounterStore on the document_sequences table
type GormDocumentSequenceStore struct {
	db *gorm.DB
}

// NewGormDocumentSequenceStore creates a new GormDocumentSequenceStore
func NewGormDocumentSequenceStore(db *gorm.DB) *GormDocumentSequenceStore {
	return &GormDocumentSequenceStore{db: db}
}

// IncrementAndGet implements numbering.CounterStore
func (s *GormDocumentSequenceStore) IncrementAndGet(ctx context.Context, prefix string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Raw(incrementSequenceSQL, prefix, time.Now().UTC()).Scan(&value).Error
	if err != nil {
		if isTransientLockError(err) {
			return 0, fmt.Errorf("%w: %v", numbering.ErrCounterContention, err)
		}
		return 0, fmt.Errorf("increment document sequence %s: %w", prefix, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("increment document sequence %s: no value returned", prefix)
	}
	return value, nil
}

// Current returns the last issued value for prefix, zero when none was issued
func (s *GormDocumentSequenceStore) Current(ctx context.Context, prefix string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).
		Table("document_sequences").
		Select("last_value").
		Where("prefix = ?", prefix).
		Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("read document sequence %s: %w", prefix, err)
	}
	return value, nil
}

func isTransientLockError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// Ensure GormDocumentSequenceStore implements numbering.CounterStore
var _ numbering.CounterStore = (*GormDocumentSequenceStore)(nil)
