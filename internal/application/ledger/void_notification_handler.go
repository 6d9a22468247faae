package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NotificationTypeTransactionVoided identifies void notifications to the dispatcher
const NotificationTypeTransactionVoided = "ledger:notify_void"

// NotificationDispatcher hands a notification payload to a delivery channel.
// A key already dispatched is accepted again without sending a second notification.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notificationType, key string, payload []byte) error
}

// VoidNotification is the payload sent when a transaction is voided
type VoidNotification struct {
	EventID          uuid.UUID              `json:"event_id"`
	TransactionID    uuid.UUID              `json:"transaction_id"`
	DocumentNumber   string                 `json:"document_number"`
	Kind             ledger.TransactionKind `json:"kind"`
	CounterpartyID   uuid.UUID              `json:"counterparty_id"`
	CounterpartyName string                 `json:"counterparty_name"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	PaidAmount       decimal.Decimal        `json:"paid_amount"`
	PreviousStatus   ledger.PaymentStatus   `json:"previous_status"`
	VoidedAt         time.Time              `json:"voided_at"`
}

// VoidNotificationHandler handles TransactionVoided events
// and dispatches a notification for each one
type VoidNotificationHandler struct {
	dispatcher NotificationDispatcher
	logger     *zap.Logger
}

// NewVoidNotificationHandler creates a new handler for transaction voided events
func NewVoidNotificationHandler(dispatcher NotificationDispatcher, logger *zap.Logger) *VoidNotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoidNotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *VoidNotificationHandler) EventTypes() []string {
	return []string{ledger.EventTypeTransactionVoided}
}

// Handle converts a voided event into a notification payload
func (h *VoidNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	voided, ok := event.(*ledger.TransactionStatusChangedEvent)
	if !ok || event.EventType() != ledger.EventTypeTransactionVoided {
		h.logger.Error("unexpected event type",
			zap.String("expected", ledger.EventTypeTransactionVoided),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeTransactionVoided, event.EventType())
	}

	payload, err := json.Marshal(VoidNotification{
		EventID:          voided.EventID(),
		TransactionID:    voided.TransactionID,
		DocumentNumber:   voided.DocumentNumber,
		Kind:             voided.Kind,
		CounterpartyID:   voided.CounterpartyID,
		CounterpartyName: voided.CounterpartyName,
		TotalAmount:      voided.TotalAmount,
		PaidAmount:       voided.PaidAmount,
		PreviousStatus:   voided.PreviousStatus,
		VoidedAt:         voided.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode void notification: %w", err)
	}

	// Keyed per void event: redelivery dedupes, a later re-void notifies again
	if err := h.dispatcher.Dispatch(ctx, NotificationTypeTransactionVoided, voided.EventID().String(), payload); err != nil {
		h.logger.Error("failed to dispatch void notification",
			zap.String("transaction_id", voided.TransactionID.String()),
			zap.String("document_number", voided.DocumentNumber),
			zap.Error(err))
		return fmt.Errorf("failed to dispatch void notification: %w", err)
	}

	h.logger.Info("void notification dispatched",
		zap.String("transaction_id", voided.TransactionID.String()),
		zap.String("document_number", voided.DocumentNumber),
		zap.String("counterparty_id", voided.CounterpartyID.String()),
	)
	return nil
}

// Ensure VoidNotificationHandler implements shared.EventHandler
var _ shared.EventHandler = (*VoidNotificationHandler)(nil)

// ReceiveVoidNotification returns the consumer side of void notifications. Each delivered
// payload is decoded and written to logger for the back-office audit trail.
func ReceiveVoidNotification(logger *zap.Logger) func(ctx context.Context, payload []byte) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, payload []byte) error {
		var n VoidNotification
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decode void notification: %w", err)
		}
		if n.TransactionID == uuid.Nil {
			return shared.NewDomainError("INVALID_NOTIFICATION", "Void notification has no transaction ID")
		}
		logger.Info("transaction voided",
			zap.String("event_id", n.EventID.String()),
			zap.String("transaction_id", n.TransactionID.String()),
			zap.String("document_number", n.DocumentNumber),
			zap.String("kind", n.Kind.String()),
			zap.String("counterparty_name", n.CounterpartyName),
			zap.String("total_amount", n.TotalAmount.String()),
			zap.String("paid_amount", n.PaidAmount.String()),
			zap.String("previous_status", n.PreviousStatus.String()),
			zap.Time("voided_at", n.VoidedAt),
		)
		return nil
	}
}
