package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount(id string) *models.Account {
	return &models.Account{
		ID:            id,
		AccountNumber: "num-" + id,
		OwnerID:       "owner",
		Balance:       decimal.RequireFromString("100"),
		AccountType:   models.AccountDebit,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestWithinTxCommit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("a")))

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		account, err := tx.AccountForUpdate("a")
		require.NoError(t, err)
		account.Balance = decimal.RequireFromString("60")
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		return tx.AppendTransaction(&models.Transaction{
			ID:            "t-1",
			Type:          models.TransactionWithdraw,
			Amount:        decimal.RequireFromString("40"),
			Timestamp:     time.Now().UTC(),
			FromAccountID: "a",
		})
	})
	require.NoError(t, err)

	account, err := store.Account(ctx, "a")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("60")))

	found, err := store.Transaction(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "a", found.FromAccountID)
}

func TestWithinTxRollback(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("a")))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		account, err := tx.AccountForUpdate("a")
		require.NoError(t, err)
		account.Balance = decimal.Zero
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		if err := tx.AppendTransaction(&models.Transaction{ID: "t-1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	account, err := store.Account(ctx, "a")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("100")), "balance change discarded")

	_, err = store.Transaction(ctx, "t-1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "append discarded")
}

func TestAccountForUpdateSameRowTwice(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("a")))

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		first, err := tx.AccountForUpdate("a")
		require.NoError(t, err)
		second, err := tx.AccountForUpdate("a")
		require.NoError(t, err)
		assert.Same(t, first, second, "a row is loaded once per transaction")
		return nil
	})
	require.NoError(t, err)
}

func TestAccountReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("a")))

	account, err := store.Account(ctx, "a")
	require.NoError(t, err)
	account.Balance = decimal.Zero

	fresh, err := store.Account(ctx, "a")
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.RequireFromString("100")), "caller mutation must not leak into the store")
}

func TestNotFound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Account(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Card(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.User(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteAccount(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteCard(ctx, "missing"), storage.ErrNotFound)
}

func TestDueDeposits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	due := testAccount("due")
	due.AccountType = models.AccountDeposit
	due.Locked = true
	due.DepositUnlockDate = now.Add(-time.Hour)
	require.NoError(t, store.SaveAccount(ctx, due))

	notYet := testAccount("not-yet")
	notYet.AccountType = models.AccountDeposit
	notYet.Locked = true
	notYet.DepositUnlockDate = now.Add(time.Hour)
	require.NoError(t, store.SaveAccount(ctx, notYet))

	unlockedAlready := testAccount("unlocked")
	unlockedAlready.AccountType = models.AccountDeposit
	unlockedAlready.DepositUnlockDate = now.Add(-time.Hour)
	require.NoError(t, store.SaveAccount(ctx, unlockedAlready))

	got, err := store.DueDeposits(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].ID)
}

func TestTransactionsByAccountBothDirections(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.WithinTx(ctx, func(tx storage.Tx) error {
		for _, tr := range []*models.Transaction{
			{ID: "in", Type: models.TransactionTransfer, ToAccountID: "a", FromAccountID: "b"},
			{ID: "out", Type: models.TransactionTransfer, FromAccountID: "a", ToAccountID: "c"},
			{ID: "other", Type: models.TransactionTransfer, FromAccountID: "b", ToAccountID: "c"},
		} {
			if err := tx.AppendTransaction(tr); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := store.TransactionsByAccount(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"in", "out"}, ids)
}
