package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/aging"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/numbering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTransactionInput holds the fields of a new purchase or sales order
type CreateTransactionInput struct {
	Kind             string           `json:"kind" validate:"required,oneof=PURCHASE ORDER purchase order"`
	CounterpartyID   uuid.UUID        `json:"counterparty_id" validate:"required"`
	CounterpartyName string           `json:"counterparty_name" validate:"required,max=200"`
	TransactionDate  time.Time        `json:"transaction_date" validate:"required"`
	DueDate          *time.Time       `json:"due_date"`
	Quantity         *int64           `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	TaxRatePercent   *decimal.Decimal `json:"tax_rate_percent"`
	Remark           string           `json:"remark" validate:"max=500"`
}

// PricingInput replaces the pricing of a transaction. Nil fields clear the value.
type PricingInput struct {
	Quantity       *int64           `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent"`
}

// PaymentInput records one payment or receipt
type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date" validate:"required"`
	Method      string          `json:"method" validate:"omitempty,oneof=CASH BANK_TRANSFER CARD CHEQUE OTHER"`
}

// AgingReportInput selects and orders an aging report
type AgingReportInput struct {
	Kind       string    `json:"kind" validate:"required,oneof=PURCHASE ORDER purchase order"`
	AsOf       time.Time `json:"as_of"`
	SortBy     string    `json:"sort_by" validate:"omitempty,oneof=balance name total overdue"`
	Descending *bool     `json:"descending"`
}

// AgingReport is an AP (purchases) or AR (orders) aging snapshot
type AgingReport struct {
	Kind         ledger.TransactionKind      `json:"kind"`
	AsOf         time.Time                   `json:"as_of"`
	Balances     []aging.CounterpartyBalance `json:"balances"`
	Totals       aging.Totals                `json:"totals"`
	Overpayments []aging.Overpayment         `json:"overpayments"`
}

// DocumentTypeFor maps a transaction kind to the document type of its number
func DocumentTypeFor(kind ledger.TransactionKind) numbering.DocumentType {
	if kind == ledger.TransactionKindOrder {
		return numbering.DocumentTypeSalesOrder
	}
	return numbering.DocumentTypePurchaseOrder
}
