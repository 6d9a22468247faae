package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecord is a payment (purchase) or receipt (order) applied to exactly one transaction
type PaymentRecord struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        PaymentMethod   `json:"method"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewPaymentRecord creates a payment record; it is owned by a transaction only once attached
func NewPaymentRecord(amount decimal.Decimal, paymentDate time.Time, method PaymentMethod) (*PaymentRecord, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !FitsInputScale(amount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Payment amount cannot have more than %d decimal places", InputScale))
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if method == "" {
		method = PaymentMethodOther
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Invalid payment method %q", method))
	}
	return &PaymentRecord{
		ID:          uuid.New(),
		Amount:      amount,
		PaymentDate: paymentDate,
		Method:      method,
		CreatedAt:   time.Now(),
	}, nil
}

// Transaction is a purchase or sales order together with the payments recorded against it
type Transaction struct {
	shared.BaseAggregateRoot
	Kind             TransactionKind  `json:"kind"`
	DocumentNumber   string           `json:"document_number"`
	CounterpartyID   uuid.UUID        `json:"counterparty_id"`
	CounterpartyName string           `json:"counterparty_name"`
	TransactionDate  time.Time        `json:"transaction_date"` // Purchase date or order date
	DueDate          *time.Time       `json:"due_date"`         // Due/delivery date
	Quantity         *int64           `json:"quantity"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	TaxRatePercent   *decimal.Decimal `json:"tax_rate_percent"`
	TaxAmount        decimal.Decimal  `json:"tax_amount"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Status           PaymentStatus    `json:"status"`
	Payments         []PaymentRecord  `json:"payments"`
	Remark           string           `json:"remark"`
}

// NewTransaction creates an unpriced, unpaid transaction
func NewTransaction(
	kind TransactionKind,
	documentNumber string,
	counterpartyID uuid.UUID,
	counterpartyName string,
	transactionDate time.Time,
	dueDate *time.Time,
) (*Transaction, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Transaction kind is not valid")
	}
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if transactionDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_DATE", "Transaction date is required")
	}

	return &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		DocumentNumber:    documentNumber,
		CounterpartyID:    counterpartyID,
		CounterpartyName:  counterpartyName,
		TransactionDate:   transactionDate,
		DueDate:           dueDate,
		TaxAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		Status:            PaymentStatusPending,
		Payments:          make([]PaymentRecord, 0),
	}, nil
}

// ApplyPricing stores the pricing inputs and the amounts computed from them
func (t *Transaction) ApplyPricing(quantity *int64, unitPrice, taxRatePercent *decimal.Decimal) Amounts {
	amounts := ComputeAmounts(quantity, unitPrice, taxRatePercent)
	t.Quantity = quantity
	t.UnitPrice = unitPrice
	t.TaxRatePercent = taxRatePercent
	t.TaxAmount = amounts.TaxAmount
	t.TotalAmount = amounts.TotalAmount
	return amounts
}

// PaidAmount sums every attached payment
func (t *Transaction) PaidAmount() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range t.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Balance is total minus paid. It is negative when the transaction is overpaid.
func (t *Transaction) Balance() decimal.Decimal {
	return t.TotalAmount.Sub(t.PaidAmount())
}

// ReferenceDate is the date aging is measured from: payables age from the purchase
// date, receivables from the due/delivery date (order date when none is recorded).
func (t *Transaction) ReferenceDate() time.Time {
	if t.Kind == TransactionKindOrder && t.DueDate != nil && !t.DueDate.IsZero() {
		return *t.DueDate
	}
	return t.TransactionDate
}

// IsVoided returns true if the transaction has been voided
func (t *Transaction) IsVoided() bool {
	return t.Status.IsVoid()
}

// AttachPayment appends a payment. Status and notes are stale until the transaction is reconciled.
func (t *Transaction) AttachPayment(record PaymentRecord) error {
	if !t.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to transaction in %s status", t.Status))
	}
	if !record.Amount.IsPositive() || !FitsInputScale(record.Amount) {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Payment amount must be positive with at most %d decimal places", InputScale))
	}
	record.TransactionID = t.ID
	t.Payments = append(t.Payments, record)
	return nil
}

// DetachPayment removes a payment by ID
func (t *Transaction) DetachPayment(paymentID uuid.UUID) error {
	if !t.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot remove payment from transaction in %s status", t.Status))
	}
	for i, p := range t.Payments {
		if p.ID == paymentID {
			t.Payments = append(t.Payments[:i:i], t.Payments[i+1:]...)
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Payment record not found")
}

// Clone returns a deep copy whose payment slice and pricing pointers are not shared
func (t *Transaction) Clone() Transaction {
	c := *t
	c.Payments = make([]PaymentRecord, len(t.Payments))
	copy(c.Payments, t.Payments)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Quantity != nil {
		q := *t.Quantity
		c.Quantity = &q
	}
	if t.UnitPrice != nil {
		p := *t.UnitPrice
		c.UnitPrice = &p
	}
	if t.TaxRatePercent != nil {
		r := *t.TaxRatePercent
		c.TaxRatePercent = &r
	}
	c.ClearDomainEvents()
	return c
}
