package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type name for ledger transactions
const AggregateTypeTransaction = "Transaction"

// Event type constants
const (
	EventTypeTransactionStatusOverridden = "TransactionStatusOverridden"
	EventTypeTransactionVoided           = "TransactionVoided"
)

// TransactionStatusChangedEvent is raised by an explicit status override.
// Its type is TransactionVoided when the target status is VOID.
type TransactionStatusChangedEvent struct {
	shared.BaseDomainEvent
	TransactionID    uuid.UUID       `json:"transaction_id"`
	DocumentNumber   string          `json:"document_number"`
	Kind             TransactionKind `json:"kind"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PreviousStatus   PaymentStatus   `json:"previous_status"`
	NewStatus        PaymentStatus   `json:"new_status"`
}

// NewTransactionStatusChangedEvent creates the event for an override of tx from previous
func NewTransactionStatusChangedEvent(tx *Transaction, previous PaymentStatus) *TransactionStatusChangedEvent {
	eventType := EventTypeTransactionStatusOverridden
	if tx.Status.IsVoid() {
		eventType = EventTypeTransactionVoided
	}
	return &TransactionStatusChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, AggregateTypeTransaction, tx.ID),
		TransactionID:    tx.ID,
		DocumentNumber:   tx.DocumentNumber,
		Kind:             tx.Kind,
		CounterpartyID:   tx.CounterpartyID,
		CounterpartyName: tx.CounterpartyName,
		TotalAmount:      tx.TotalAmount,
		PaidAmount:       tx.PaidAmount(),
		PreviousStatus:   previous,
		NewStatus:        tx.Status,
	}
}
