package persistence

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the ledger schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.TransactionModel{},
		&models.PaymentRecordModel{},
		&models.DocumentSequenceModel{},
	))
	return db
}

func newPricedTransaction(t *testing.T, kind ledger.TransactionKind, docNo, counterparty string, date time.Time) *ledger.Transaction {
	t.Helper()

	tx, err := ledger.NewTransaction(kind, docNo, uuid.New(), counterparty, date, nil)
	require.NoError(t, err)

	qty := int64(10)
	price := decimal.RequireFromString("12.50")
	rate := decimal.RequireFromString("13")
	tx.ApplyPricing(&qty, &price, &rate)
	return tx
}

func addPayment(t *testing.T, tx *ledger.Transaction, amount string, date time.Time) *ledger.PaymentRecord {
	t.Helper()

	p, err := ledger.NewPaymentRecord(decimal.RequireFromString(amount), date, ledger.PaymentMethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, tx.AttachPayment(*p))
	return p
}
