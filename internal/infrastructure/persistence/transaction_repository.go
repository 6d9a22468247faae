package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func preloadPayments(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// FindByID finds a transaction by ID, payments included
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	err := r.db.WithContext(ctx).
		Preload("Payments", preloadPayments).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// FindOpenByKind finds every unvoided transaction of a kind, oldest first
func (r *GormTransactionRepository) FindOpenByKind(ctx context.Context, kind ledger.TransactionKind) ([]ledger.Transaction, error) {
	var rows []models.TransactionModel
	err := r.db.WithContext(ctx).
		Preload("Payments", preloadPayments).
		Where("kind = ? AND status <> ?", kind, ledger.PaymentStatusVoid).
		Order("transaction_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find open %s transactions: %w", kind, err)
	}

	out := make([]ledger.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Create inserts a transaction and its payments
func (r *GormTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		payments := model.Payments
		model.Payments = nil
		if err := db.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError("DUPLICATE_DOCUMENT_NUMBER",
					fmt.Sprintf("Document number %s already exists", tx.DocumentNumber))
			}
			return fmt.Errorf("insert transaction: %w", err)
		}
		if len(payments) > 0 {
			if err := db.Create(&payments).Error; err != nil {
				return fmt.Errorf("insert payments: %w", err)
			}
		}
		return nil
	})
}

// Save updates a transaction with optimistic locking and replaces its payments.
// tx.Version is the new version; the stored row must still hold tx.Version-1.
func (r *GormTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Model(&models.TransactionModel{}).
			Where("id = ? AND version = ?", tx.ID, tx.Version-1).
			Updates(map[string]any{
				"version":           model.Version,
				"counterparty_name": model.CounterpartyName,
				"transaction_date":  model.TransactionDate,
				"due_date":          model.DueDate,
				"quantity":          model.Quantity,
				"unit_price":        model.UnitPrice,
				"tax_rate_percent":  model.TaxRatePercent,
				"tax_amount":        model.TaxAmount,
				"total_amount":      model.TotalAmount,
				"status":            model.Status,
				"remark":            model.Remark,
				"updated_at":        model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("update transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := db.Model(&models.TransactionModel{}).Where("id = ?", tx.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check transaction: %w", err)
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}

		if err := db.Where("transaction_id = ?", tx.ID).Delete(&models.PaymentRecordModel{}).Error; err != nil {
			return fmt.Errorf("clear payments: %w", err)
		}
		if len(model.Payments) > 0 {
			if err := db.Create(&model.Payments).Error; err != nil {
				return fmt.Errorf("insert payments: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a transaction and its payments
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Where("transaction_id = ?", id).Delete(&models.PaymentRecordModel{}).Error; err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		result := db.Delete(&models.TransactionModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("delete transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormTransactionRepository implements ledger.TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
