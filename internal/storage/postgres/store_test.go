package postgres

import (
	"context"
	"testing"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func accountRows(id string, balance string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "account_number", "owner_id", "balance", "credit_limit", "interest_rate",
		"account_type", "deposit_term_months", "locked", "deposit_start_date", "deposit_unlock_date", "created_at",
	}).AddRow(id, "acc-number", "owner-1", balance, "0", "0", "DEBIT", 0, false, now, now, now)
}

func TestAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM bank\.accounts`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Account(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountScansDecimalBalance(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM bank\.accounts`).
		WithArgs("acc-1").
		WillReturnRows(accountRows("acc-1", "1234.56"))

	account, err := store.Account(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, models.AccountDebit, account.AccountType)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("1234.56")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("acc-1").
		WillReturnRows(accountRows("acc-1", "100"))
	mock.ExpectExec(`UPDATE bank\.accounts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bank\.transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx storage.Tx) error {
		account, err := tx.AccountForUpdate("acc-1")
		if err != nil {
			return err
		}
		account.Balance = account.Balance.Sub(decimal.RequireFromString("40"))
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		return tx.AppendTransaction(&models.Transaction{
			ID:            "t-1",
			Type:          models.TransactionWithdraw,
			Amount:        decimal.RequireFromString("40"),
			Timestamp:     time.Now().UTC(),
			FromAccountID: "acc-1",
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnAppendFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("acc-1").
		WillReturnRows(accountRows("acc-1", "100"))
	mock.ExpectExec(`UPDATE bank\.accounts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bank\.transactions`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx storage.Tx) error {
		account, err := tx.AccountForUpdate("acc-1")
		if err != nil {
			return err
		}
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		return tx.AppendTransaction(&models.Transaction{ID: "t-1", Type: models.TransactionDeposit,
			Amount: decimal.RequireFromString("1"), Timestamp: time.Now().UTC(), ToAccountID: "acc-1"})
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxMissingAccountRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx storage.Tx) error {
		_, err := tx.AccountForUpdate("missing")
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCardNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM bank\.cards`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteCard(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionNullReferencesScanEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM bank\.transactions`).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "transaction_type", "amount", "description", "timestamp",
			"from_account_id", "to_account_id", "from_card_id", "to_card_id",
		}).AddRow("t-1", "DEPOSIT", "25", "", now, nil, "acc-1", nil, nil))

	tr, err := store.Transaction(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Empty(t, tr.FromAccountID)
	assert.Equal(t, "acc-1", tr.ToAccountID)
	assert.Empty(t, tr.FromCardID)
	assert.Empty(t, tr.ToCardID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
