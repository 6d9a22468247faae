package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for the Transaction aggregate root
type TransactionModel struct {
	AggregateModel
	Kind             ledger.TransactionKind `gorm:"type:varchar(20);not null;index:idx_ledger_tx_kind_status,priority:1"`
	DocumentNumber   string                 `gorm:"type:varchar(20);not null;uniqueIndex"`
	CounterpartyID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	CounterpartyName string                 `gorm:"type:varchar(200);not null"`
	TransactionDate  time.Time              `gorm:"not null"`
	DueDate          *time.Time
	Quantity         *int64
	UnitPrice        *decimal.Decimal     `gorm:"type:decimal(18,4)"`
	TaxRatePercent   *decimal.Decimal     `gorm:"type:decimal(9,4)"`
	TaxAmount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Status           ledger.PaymentStatus `gorm:"type:varchar(20);not null;index:idx_ledger_tx_kind_status,priority:2"`
	Remark           string               `gorm:"type:text"`
	Payments         []PaymentRecordModel `gorm:"foreignKey:TransactionID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	tx := &ledger.Transaction{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		DocumentNumber:    m.DocumentNumber,
		CounterpartyID:    m.CounterpartyID,
		CounterpartyName:  m.CounterpartyName,
		TransactionDate:   m.TransactionDate,
		DueDate:           m.DueDate,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		TaxRatePercent:    m.TaxRatePercent,
		TaxAmount:         m.TaxAmount,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		Remark:            m.Remark,
		Payments:          make([]ledger.PaymentRecord, 0, len(m.Payments)),
	}
	for i := range m.Payments {
		tx.Payments = append(tx.Payments, m.Payments[i].ToDomain())
	}
	return tx
}

// TransactionModelFromDomain creates a persistence model, payments included, from a domain Transaction
func TransactionModelFromDomain(tx *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
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
		Status:           tx.Status,
		Remark:           tx.Remark,
	}
	m.FromDomainAggregateRoot(tx.BaseAggregateRoot)
	m.Payments = PaymentRecordModelsFromDomain(tx.ID, tx.Payments)
	return m
}

// PaymentRecordModel is the persistence model for a payment owned by a transaction
type PaymentRecordModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Position      int                  `gorm:"not null"`
	Amount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaymentDate   time.Time            `gorm:"not null"`
	Method        ledger.PaymentMethod `gorm:"type:varchar(20);not null"`
	Note          string               `gorm:"type:varchar(200)"`
	CreatedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentRecordModel) TableName() string {
	return "ledger_payment_records"
}

// ToDomain converts the persistence model to a domain PaymentRecord
func (m *PaymentRecordModel) ToDomain() ledger.PaymentRecord {
	return ledger.PaymentRecord{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		PaymentDate:   m.PaymentDate,
		Method:        m.Method,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentRecordModelsFromDomain converts payments, recording their display order in Position
func PaymentRecordModelsFromDomain(transactionID uuid.UUID, payments []ledger.PaymentRecord) []PaymentRecordModel {
	out := make([]PaymentRecordModel, 0, len(payments))
	for i, p := range payments {
		out = append(out, PaymentRecordModel{
			ID:            p.ID,
			TransactionID: transactionID,
			Position:      i,
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
			Method:        p.Method,
			Note:          p.Note,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out
}

// DocumentSequenceModel holds the last issued sequence number for a prefix
type DocumentSequenceModel struct {
	Prefix    string `gorm:"type:varchar(20);primaryKey"`
	LastValue int64  `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
