package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/aging"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/numbering"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service orchestrates transactions, payments, numbering and aging
type Service struct {
	repo         ledger.TransactionRepository
	numbers      *numbering.Generator
	publisher    shared.EventPublisher
	validate     *validator.Validate
	agingWorkers int
	logger       *zap.Logger
	now          func() time.Time
}

// ServiceConfig holds the dependencies of a Service
type ServiceConfig struct {
	Repository     ledger.TransactionRepository
	Numbers        *numbering.Generator
	EventPublisher shared.EventPublisher
	AgingWorkers   int
	Logger         *zap.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

// NewService creates a new ledger Service
func NewService(config ServiceConfig) *Service {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	workers := config.AgingWorkers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		repo:         config.Repository,
		numbers:      config.Numbers,
		publisher:    config.EventPublisher,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		agingWorkers: workers,
		logger:       logger,
		now:          clock,
	}
}

// CreateTransaction issues a document number, prices and reconciles a new transaction and stores it
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*ledger.Transaction, error) {
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	if err := validatePricing(input.Quantity, input.UnitPrice, input.TaxRatePercent); err != nil {
		return nil, err
	}
	kind, err := ledger.ParseTransactionKind(input.Kind)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Generate(ctx, DocumentTypeFor(kind), &input.TransactionDate)
	if err != nil {
		s.logger.Error("failed to issue document number",
			zap.String("kind", kind.String()),
			zap.Time("transaction_date", input.TransactionDate),
			zap.Error(err))
		return nil, fmt.Errorf("failed to issue document number: %w", err)
	}

	tx, err := ledger.NewTransaction(kind, number, input.CounterpartyID, input.CounterpartyName,
		input.TransactionDate, input.DueDate)
	if err != nil {
		return nil, err
	}
	tx.Remark = input.Remark
	tx.ApplyPricing(input.Quantity, input.UnitPrice, input.TaxRatePercent)

	created := ledger.Reconcile(*tx).Transaction
	if err := s.repo.Create(ctx, &created); err != nil {
		s.logger.Error("failed to create transaction",
			zap.String("document_number", number),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", created.ID.String()),
		zap.String("document_number", number),
		zap.String("kind", kind.String()),
		zap.String("counterparty_id", created.CounterpartyID.String()),
		zap.String("total_amount", created.TotalAmount.String()),
	)
	return &created, nil
}

// GetTransaction loads a transaction with its payments
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdatePricing recomputes amounts from new pricing inputs and reconciles
func (s *Service) UpdatePricing(ctx context.Context, id uuid.UUID, input PricingInput) (*ledger.Transaction, error) {
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	if err := validatePricing(input.Quantity, input.UnitPrice, input.TaxRatePercent); err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.IsVoided() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot reprice a voided transaction")
	}

	tx.ApplyPricing(input.Quantity, input.UnitPrice, input.TaxRatePercent)
	return s.reconcileAndSave(ctx, tx, "pricing updated")
}

// AddPayment attaches a payment and reconciles the transaction
func (s *Service) AddPayment(ctx context.Context, id uuid.UUID, input PaymentInput) (*ledger.Transaction, error) {
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	record, err := ledger.NewPaymentRecord(input.Amount, input.PaymentDate, ledger.PaymentMethod(strings.ToUpper(input.Method)))
	if err != nil {
		s.logger.Warn("payment rejected",
			zap.String("transaction_id", id.String()),
			zap.String("amount", input.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.AttachPayment(*record); err != nil {
		s.logger.Warn("payment rejected",
			zap.String("transaction_id", id.String()),
			zap.String("status", tx.Status.String()),
			zap.Error(err))
		return nil, err
	}

	return s.reconcileAndSave(ctx, tx, "payment added")
}

// RemovePayment detaches a payment and reconciles the transaction
func (s *Service) RemovePayment(ctx context.Context, id, paymentID uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.DetachPayment(paymentID); err != nil {
		return nil, err
	}
	return s.reconcileAndSave(ctx, tx, "payment removed")
}

// OverrideStatus sets a status explicitly, bypassing reconciliation, and publishes the change
func (s *Service) OverrideStatus(ctx context.Context, id uuid.UUID, status string) (*ledger.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	override, err := ledger.ApplyStatusOverride(*tx, status)
	if err != nil {
		s.logger.Warn("status override rejected",
			zap.String("transaction_id", id.String()),
			zap.String("requested_status", status),
			zap.Error(err))
		return nil, err
	}

	updated := override.Transaction
	updated.IncrementVersion()
	updated.Touch(s.now())
	if err := s.repo.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Info("transaction status overridden",
		zap.String("transaction_id", id.String()),
		zap.String("document_number", updated.DocumentNumber),
		zap.String("previous_status", override.Previous.String()),
		zap.String("new_status", updated.Status.String()),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, override.Event); err != nil {
			s.logger.Error("failed to publish status change event",
				zap.String("transaction_id", id.String()),
				zap.String("event_type", override.Event.EventType()),
				zap.Error(err))
			return &updated, fmt.Errorf("status saved but event publish failed: %w", err)
		}
	}
	return &updated, nil
}

// DeleteTransaction removes a transaction and its payments
func (s *Service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("transaction deleted", zap.String("transaction_id", id.String()))
	return nil
}

// AgingReport classifies outstanding balances of one kind as of a date
func (s *Service) AgingReport(ctx context.Context, input AgingReportInput) (*AgingReport, error) {
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	kind, err := ledger.ParseTransactionKind(input.Kind)
	if err != nil {
		return nil, err
	}
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}

	var opts []aging.Option
	if input.SortBy != "" {
		opts = append(opts, aging.SortBy(aging.SortField(input.SortBy)))
	}
	if input.Descending != nil {
		opts = append(opts, aging.Descending(*input.Descending))
	}

	items, err := s.repo.FindOpenByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	balances, err := aging.ClassifyConcurrent(ctx, items, asOf, s.agingWorkers, opts...)
	if err != nil {
		return nil, err
	}
	if balances == nil {
		balances = []aging.CounterpartyBalance{}
	}
	overpayments := aging.DetectOverpayments(items)
	if len(overpayments) > 0 {
		s.logger.Warn("overpaid transactions in aging report",
			zap.String("kind", kind.String()),
			zap.Int("count", len(overpayments)))
	} else {
		overpayments = []aging.Overpayment{}
	}

	return &AgingReport{
		Kind:         kind,
		AsOf:         asOf,
		Balances:     balances,
		Totals:       aging.Summarize(balances),
		Overpayments: overpayments,
	}, nil
}

// IssueDocumentNumber issues the next number of a document type for the period of date
func (s *Service) IssueDocumentNumber(ctx context.Context, docType string, date *time.Time) (string, error) {
	number, err := s.numbers.Generate(ctx, numbering.DocumentType(strings.ToUpper(strings.TrimSpace(docType))), date)
	if err != nil {
		return "", err
	}
	s.logger.Info("document number issued", zap.String("document_number", number))
	return number, nil
}

func (s *Service) reconcileAndSave(ctx context.Context, tx *ledger.Transaction, action string) (*ledger.Transaction, error) {
	result := ledger.Reconcile(*tx)
	updated := result.Transaction
	updated.IncrementVersion()
	updated.Touch(s.now())

	if err := s.repo.Save(ctx, &updated); err != nil {
		s.logger.Error("failed to save transaction",
			zap.String("transaction_id", updated.ID.String()),
			zap.String("action", action),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	fields := []zap.Field{
		zap.String("transaction_id", updated.ID.String()),
		zap.String("document_number", updated.DocumentNumber),
		zap.String("status", updated.Status.String()),
		zap.String("paid_amount", result.PaidAmount.String()),
		zap.String("total_amount", updated.TotalAmount.String()),
		zap.Int("note_updates", len(result.NoteUpdates)),
	}
	if result.Overpaid {
		s.logger.Warn("transaction overpaid: "+action, fields...)
	} else {
		s.logger.Info("transaction "+action, fields...)
	}
	return &updated, nil
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	return nil
}

func validatePricing(quantity *int64, unitPrice, taxRatePercent *decimal.Decimal) error {
	if quantity != nil && *quantity < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity cannot be negative")
	}
	if unitPrice != nil && unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}
	if unitPrice != nil && !ledger.FitsInputScale(*unitPrice) {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Unit price cannot have more than %d decimal places", ledger.InputScale))
	}
	if taxRatePercent != nil && !ledger.FitsInputScale(*taxRatePercent) {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Tax rate cannot have more than %d decimal places", ledger.InputScale))
	}
	if taxRatePercent != nil && (taxRatePercent.IsNegative() || taxRatePercent.GreaterThan(decimal.NewFromInt(100))) {
		return shared.NewDomainError("INVALID_INPUT", "Tax rate must be between 0 and 100 percent")
	}
	return nil
}
