package service

import (
	"context"
	"testing"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store *memory.Store) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveUser(context.Background(), user))
	return user
}

func TestCreateDebitAccount(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDebit, dec("150"))
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.NotEmpty(t, account.AccountNumber)
	assert.Equal(t, owner.ID, account.OwnerID)
	assert.True(t, account.Balance.Equal(dec("150")))
	assert.True(t, account.CreditLimit.IsZero())
	assert.True(t, account.InterestRate.IsZero())
	assert.False(t, account.Locked)
}

func TestCreateCreditAccountDefaults(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountCredit, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, account.CreditLimit.Equal(dec("4000.00")))
	assert.True(t, account.InterestRate.Equal(dec("0.08")))
	assert.False(t, account.Locked)
	assert.True(t, account.Floor().Equal(dec("-4000.00")))
}

type fixedRateSource struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRateSource) KeyRate() (decimal.Decimal, error) { return f.rate, f.err }

func TestCreateCreditAccountUsesKeyRate(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), fixedRateSource{rate: dec("21.5")})
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountCredit, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, account.InterestRate.Equal(dec("0.215")), "rate derived from the key rate, got %s", account.InterestRate)
}

func TestCreateCreditAccountKeyRateUnavailable(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), fixedRateSource{err: assert.AnError})
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountCredit, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, account.InterestRate.Equal(dec("0.08")), "falls back to the default rate")
}

func TestCreateDepositAccountStartsLocked(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDeposit, dec("5000"))
	require.NoError(t, err)

	assert.True(t, account.Locked)
	assert.Equal(t, 12, account.DepositTermMonths)
	assert.True(t, account.InterestRate.Equal(dec("0.04")))
	assert.False(t, account.DepositStartDate.IsZero())
	assert.Equal(t, account.DepositStartDate.AddDate(0, 12, 0), account.DepositUnlockDate)
}

func TestCreateAccountUnknownOwner(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)

	_, err := svc.CreateAccount(context.Background(), "no-such-user", models.AccountDebit, decimal.Zero)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateAccountNegativeInitialBalance(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	_, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDebit, dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDeleteAccountRejectsNonZeroBalance(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	funded, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDebit, dec("10"))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteAccount(context.Background(), funded.ID), ErrAccountNotEmpty)

	overdrawn, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountCredit, decimal.Zero)
	require.NoError(t, err)
	overdrawn.Balance = dec("-100")
	require.NoError(t, store.SaveAccount(context.Background(), overdrawn))
	assert.ErrorIs(t, svc.DeleteAccount(context.Background(), overdrawn.ID), ErrAccountNotEmpty, "owing a CREDIT account cannot be deleted either")

	empty, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDebit, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(context.Background(), empty.ID))
	_, err = svc.Account(context.Background(), empty.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUnlockMaturedDeposits(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	owner := seedUser(t, store)

	matured, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDeposit, dec("1000"))
	require.NoError(t, err)
	running, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDeposit, dec("2000"))
	require.NoError(t, err)

	asOf := matured.DepositUnlockDate.Add(time.Hour)
	// The second deposit matures a day later and must stay locked.
	running.DepositUnlockDate = asOf.Add(24 * time.Hour)
	require.NoError(t, store.SaveAccount(context.Background(), running))

	unlocked, err := svc.UnlockMaturedDeposits(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, matured.ID, unlocked[0].ID)

	got, err := svc.Account(context.Background(), matured.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)

	still, err := svc.Account(context.Background(), running.ID)
	require.NoError(t, err)
	assert.True(t, still.Locked)
}

func TestAccountsByOwnerIncludesCards(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, testLogger(), nil)
	cards := NewCardService(store, testLogger())
	owner := seedUser(t, store)

	account, err := svc.CreateAccount(context.Background(), owner.ID, models.AccountDebit, decimal.Zero)
	require.NoError(t, err)
	card, err := cards.CreateCard(context.Background(), account.ID, "")
	require.NoError(t, err)

	dtos, err := svc.AccountsByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	require.Len(t, dtos[0].Cards, 1)
	assert.Equal(t, card.ID, dtos[0].Cards[0].ID)
	assert.Equal(t, card.CardNumber, dtos[0].Cards[0].CardNumber)
}
