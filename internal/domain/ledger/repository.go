package ledger

import (
	"context"

	"github.com/google/uuid"
)

// TransactionRepository persists transactions together with their payments
type TransactionRepository interface {
	// FindByID loads a transaction and its payments; returns shared.ErrNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindOpenByKind loads every unvoided transaction of a kind, settled and overpaid ones included
	FindOpenByKind(ctx context.Context, kind TransactionKind) ([]Transaction, error)

	// Create inserts a new transaction and its payments
	Create(ctx context.Context, tx *Transaction) error

	// Save updates a transaction and replaces its payment set.
	// tx.Version must be one ahead of the stored version, else shared.ErrConcurrencyConflict.
	Save(ctx context.Context, tx *Transaction) error

	// Delete removes a transaction and cascades to its payments
	Delete(ctx context.Context, id uuid.UUID) error
}
