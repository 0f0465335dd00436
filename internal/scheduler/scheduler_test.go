package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/service"
	"bankledger/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingNotifier struct {
	recipients []string
}

func (n *capturingNotifier) SendDepositUnlockedNotice(to, username, accountNumber string, unlockDate time.Time) error {
	n.recipients = append(n.recipients, to)
	return nil
}

func TestUnlockMaturedDepositsJob(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	owner := &models.User{
		ID:       uuid.NewString(),
		Username: "alice",
		Email:    "alice@example.com",
	}
	require.NoError(t, store.SaveUser(ctx, owner))

	now := time.Now().UTC()
	matured := &models.Account{
		ID:                uuid.NewString(),
		AccountNumber:     uuid.NewString(),
		OwnerID:           owner.ID,
		AccountType:       models.AccountDeposit,
		Locked:            true,
		DepositStartDate:  now.AddDate(-1, 0, 0),
		DepositUnlockDate: now.Add(-time.Hour),
	}
	running := &models.Account{
		ID:                uuid.NewString(),
		AccountNumber:     uuid.NewString(),
		OwnerID:           owner.ID,
		AccountType:       models.AccountDeposit,
		Locked:            true,
		DepositStartDate:  now,
		DepositUnlockDate: now.AddDate(0, 6, 0),
	}
	require.NoError(t, store.SaveAccount(ctx, matured))
	require.NoError(t, store.SaveAccount(ctx, running))

	accounts := service.NewAccountService(store, log, nil)
	notifier := &capturingNotifier{}
	s := New(accounts, store, notifier, log)

	s.unlockMaturedDeposits()

	got, err := store.Account(ctx, matured.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)

	got, err = store.Account(ctx, running.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)

	assert.Equal(t, []string{owner.Email}, notifier.recipients)
}

func TestJobWithoutNotifier(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	owner := &models.User{ID: uuid.NewString(), Username: "bob", Email: "bob@example.com"}
	require.NoError(t, store.SaveUser(ctx, owner))

	now := time.Now().UTC()
	matured := &models.Account{
		ID:                uuid.NewString(),
		AccountNumber:     uuid.NewString(),
		OwnerID:           owner.ID,
		AccountType:       models.AccountDeposit,
		Locked:            true,
		DepositUnlockDate: now.Add(-time.Minute),
	}
	require.NoError(t, store.SaveAccount(ctx, matured))

	accounts := service.NewAccountService(store, log, nil)
	s := New(accounts, store, nil, log)

	s.unlockMaturedDeposits()

	got, err := store.Account(ctx, matured.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)
}
