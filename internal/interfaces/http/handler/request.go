package handler

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateLayout is accepted alongside RFC 3339 for every date field
const dateLayout = "2006-01-02"

// parseDate reads a calendar date (2025-01-31) as midnight UTC, or a full RFC 3339 timestamp
func parseDate(field, raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE",
			"Invalid "+field+": use YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransactionRequest is the body of POST /transactions
type CreateTransactionRequest struct {
	Kind             string           `json:"kind" binding:"required"`
	CounterpartyID   string           `json:"counterparty_id" binding:"required,uuid"`
	CounterpartyName string           `json:"counterparty_name" binding:"required,max=200"`
	TransactionDate  string           `json:"transaction_date" binding:"required"`
	DueDate          *string          `json:"due_date"`
	Quantity         *int64           `json:"quantity"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	TaxRatePercent   *decimal.Decimal `json:"tax_rate_percent"`
	Remark           string           `json:"remark" binding:"max=500"`
}

// PricingRequest is the body of PUT /transactions/:id/pricing
type PricingRequest struct {
	Quantity       *int64           `json:"quantity"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent"`
}

// PaymentRequest is the body of POST /transactions/:id/payments
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" binding:"required"`
	Method      string          `json:"method"`
}

// StatusRequest is the body of PUT /transactions/:id/status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// DocumentNumberRequest is the body of POST /document-numbers
type DocumentNumberRequest struct {
	DocumentType  string  `json:"document_type" binding:"required"`
	ReferenceDate *string `json:"reference_date"`
}

// AgingQuery holds the query parameters of GET /reports/aging
type AgingQuery struct {
	Kind  string `form:"kind" binding:"required"`
	AsOf  string `form:"as_of"`
	Sort  string `form:"sort"`
	Order string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse is a payment as returned by the API
type PaymentResponse struct {
	ID          uuid.UUID            `json:"id"`
	Amount      decimal.Decimal      `json:"amount"`
	PaymentDate time.Time            `json:"payment_date"`
	Method      ledger.PaymentMethod `json:"method"`
	Note        string               `json:"note"`
	CreatedAt   time.Time            `json:"created_at"`
}

// TransactionResponse is a transaction as returned by the API
type TransactionResponse struct {
	ID               uuid.UUID              `json:"id"`
	Kind             ledger.TransactionKind `json:"kind"`
	DocumentNumber   string                 `json:"document_number"`
	CounterpartyID   uuid.UUID              `json:"counterparty_id"`
	CounterpartyName string                 `json:"counterparty_name"`
	TransactionDate  time.Time              `json:"transaction_date"`
	DueDate          *time.Time             `json:"due_date,omitempty"`
	Quantity         *int64                 `json:"quantity,omitempty"`
	UnitPrice        *decimal.Decimal       `json:"unit_price,omitempty"`
	TaxRatePercent   *decimal.Decimal       `json:"tax_rate_percent,omitempty"`
	TaxAmount        decimal.Decimal        `json:"tax_amount"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	PaidAmount       decimal.Decimal        `json:"paid_amount"`
	Balance          decimal.Decimal        `json:"balance"`
	Status           ledger.PaymentStatus   `json:"status"`
	Remark           string                 `json:"remark,omitempty"`
	Payments         []PaymentResponse      `json:"payments"`
	Version          int                    `json:"version"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// DocumentNumberResponse is the result of POST /document-numbers
type DocumentNumberResponse struct {
	DocumentNumber string `json:"document_number"`
}

func toTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	payments := make([]PaymentResponse, 0, len(tx.Payments))
	for _, p := range tx.Payments {
		payments = append(payments, PaymentResponse{
			ID:          p.ID,
			Amount:      p.Amount,
			PaymentDate: p.PaymentDate,
			Method:      p.Method,
			Note:        p.Note,
			CreatedAt:   p.CreatedAt,
		})
	}
	return TransactionResponse{
		ID:               tx.ID,
		Kind:             tx.Kind,
		DocumentNumber:   tx.DocumentNumber,
		CounterpartyID:   tx.CounterpartyID,
		CounterpartyName: tx.CounterpartyName,
		TransactionDate:  tx.TransactionDate,
		DueDate:          tx.DueDate,
		Quantity:         tx.Quantity,
		UnitPrice:        tx.UnitPrice,
		TaxRatePercent:   tx.TaxRatePercent,
		TaxAmount:        tx.TaxAmount,
		TotalAmount:      tx.TotalAmount,
		PaidAmount:       tx.PaidAmount(),
		Balance:          tx.Balance(),
		Status:           tx.Status,
		Remark:           tx.Remark,
		Payments:         payments,
		Version:          tx.Version,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
}
