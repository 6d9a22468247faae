package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoDate = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestGormTransactionRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTransactionRepository(newSQLiteDB(t))

	tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0001", "Acme Supplies", repoDate)
	first := addPayment(t, tx, "50", repoDate.AddDate(0, 0, 1))
	second := addPayment(t, tx, "20.25", repoDate.AddDate(0, 0, 2))
	reconciled := ledger.Reconcile(*tx).Transaction

	require.NoError(t, repo.Create(ctx, &reconciled))

	found, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)

	assert.Equal(t, "PO-202501-0001", found.DocumentNumber)
	assert.Equal(t, ledger.TransactionKindPurchase, found.Kind)
	assert.Equal(t, ledger.PaymentStatusPartial, found.Status)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("141.25")), "total %s", found.TotalAmount)
	assert.True(t, found.TaxAmount.Equal(decimal.RequireFromString("16.25")), "tax %s", found.TaxAmount)
	require.NotNil(t, found.Quantity)
	assert.Equal(t, int64(10), *found.Quantity)
	assert.Equal(t, 1, found.Version)

	require.Len(t, found.Payments, 2)
	assert.Equal(t, first.ID, found.Payments[0].ID)
	assert.Equal(t, second.ID, found.Payments[1].ID)
	assert.Equal(t, tx.ID, found.Payments[0].TransactionID)
	assert.Equal(t, ledger.PaymentStatusPartial.Note(), found.Payments[0].Note)
	assert.True(t, found.PaidAmount().Equal(decimal.RequireFromString("70.25")))
}

func TestGormTransactionRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormTransactionRepository(newSQLiteDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormTransactionRepository_Create_DuplicateDocumentNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTransactionRepository(newSQLiteDB(t))

	first := newPricedTransaction(t, ledger.TransactionKindOrder, "SO-202501-0001", "Globex", repoDate)
	require.NoError(t, repo.Create(ctx, first))

	dup := newPricedTransaction(t, ledger.TransactionKindOrder, "SO-202501-0001", "Initech", repoDate)
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_DOCUMENT_NUMBER", shared.ErrorCode(err))
}

func TestGormTransactionRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces payments and bumps version", func(t *testing.T) {
		repo := NewGormTransactionRepository(newSQLiteDB(t))
		tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0002", "Acme", repoDate)
		stale := addPayment(t, tx, "10", repoDate)
		require.NoError(t, repo.Create(ctx, tx))

		loaded, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.DetachPayment(stale.ID))
		addPayment(t, loaded, "141.25", repoDate.AddDate(0, 0, 3))

		updated := ledger.Reconcile(*loaded).Transaction
		updated.IncrementVersion()
		updated.Touch(time.Now())
		require.NoError(t, repo.Save(ctx, &updated))

		reloaded, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.Version)
		assert.Equal(t, ledger.PaymentStatusPaid, reloaded.Status)
		require.Len(t, reloaded.Payments, 1)
		assert.NotEqual(t, stale.ID, reloaded.Payments[0].ID)
		assert.Equal(t, ledger.PaymentStatusPaid.Note(), reloaded.Payments[0].Note)
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		repo := NewGormTransactionRepository(newSQLiteDB(t))
		tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0003", "Acme", repoDate)
		require.NoError(t, repo.Create(ctx, tx))

		a, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		b, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)

		a.IncrementVersion()
		require.NoError(t, repo.Save(ctx, a))

		b.IncrementVersion()
		b.Remark = "lost update"
		assert.ErrorIs(t, repo.Save(ctx, b), shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Empty(t, reloaded.Remark)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		repo := NewGormTransactionRepository(newSQLiteDB(t))
		tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0004", "Acme", repoDate)
		tx.IncrementVersion()

		assert.ErrorIs(t, repo.Save(ctx, tx), shared.ErrNotFound)
	})
}

func TestGormTransactionRepository_FindOpenByKind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTransactionRepository(newSQLiteDB(t))

	older := newPricedTransaction(t, ledger.TransactionKindOrder, "SO-202501-0001", "Globex", repoDate.AddDate(0, 0, -10))
	newer := newPricedTransaction(t, ledger.TransactionKindOrder, "SO-202501-0002", "Globex", repoDate)
	voided := newPricedTransaction(t, ledger.TransactionKindOrder, "SO-202501-0003", "Globex", repoDate)
	voided.Status = ledger.PaymentStatusVoid
	purchase := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0001", "Acme", repoDate)

	for _, tx := range []*ledger.Transaction{newer, older, voided, purchase} {
		require.NoError(t, repo.Create(ctx, tx))
	}

	open, err := repo.FindOpenByKind(ctx, ledger.TransactionKindOrder)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, older.ID, open[0].ID)
	assert.Equal(t, newer.ID, open[1].ID)
}

func TestGormTransactionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormTransactionRepository(db)

	tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0005", "Acme", repoDate)
	addPayment(t, tx, "5", repoDate)
	require.NoError(t, repo.Create(ctx, tx))

	require.NoError(t, repo.Delete(ctx, tx.ID))

	_, err := repo.FindByID(ctx, tx.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var payments int64
	require.NoError(t, db.Table("ledger_payment_records").Where("transaction_id = ?", tx.ID).Count(&payments).Error)
	assert.Zero(t, payments)

	assert.ErrorIs(t, repo.Delete(ctx, tx.ID), shared.ErrNotFound)
}

func TestGormTransactionRepository_Save_PostgresConflict(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormTransactionRepository(db.DB)

	tx := newPricedTransaction(t, ledger.TransactionKindPurchase, "PO-202501-0006", "Acme", repoDate)
	tx.IncrementVersion()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ledger_transactions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "ledger_transactions" WHERE id = $1`)).
		WithArgs(tx.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), tx)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
