package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Provisioning defaults per account kind.
var (
	defaultCreditLimit = decimal.RequireFromString("4000.00")
	defaultCreditRate  = decimal.RequireFromString("0.08")
	defaultDepositRate = decimal.RequireFromString("0.04")
	defaultDepositTerm = 12 // months
)

// RateSource supplies the current central-bank key rate in percent.
type RateSource interface {
	KeyRate() (decimal.Decimal, error)
}

// AccountService provisions and manages accounts. Balance mutation is the
// transfer engine's job; this service only reads balances.
type AccountService struct {
	store storage.Store
	log   *logrus.Logger
	rates RateSource
}

// NewAccountService initializes the account service. rates may be nil;
// CREDIT accounts then get the default interest rate.
func NewAccountService(store storage.Store, log *logrus.Logger, rates RateSource) *AccountService {
	return &AccountService{store: store, log: log, rates: rates}
}

// CreateAccount provisions a new account of the given kind for the owner.
// DEPOSIT accounts start locked for their term.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID string, kind models.AccountType, initialBalance decimal.Decimal) (*models.Account, error) {
	if initialBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if _, err := s.store.User(ctx, ownerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve owner: %w", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:            uuid.NewString(),
		AccountNumber: uuid.NewString(),
		OwnerID:       ownerID,
		Balance:       initialBalance,
		AccountType:   kind,
		CreatedAt:     now,
	}

	switch kind {
	case models.AccountDebit:
		account.CreditLimit = decimal.Zero
		account.InterestRate = decimal.Zero
	case models.AccountCredit:
		account.CreditLimit = defaultCreditLimit
		account.InterestRate = s.creditRate()
	case models.AccountDeposit:
		account.CreditLimit = decimal.Zero
		account.InterestRate = defaultDepositRate
		account.DepositTermMonths = defaultDepositTerm
		account.Locked = true
		account.DepositStartDate = now
		account.DepositUnlockDate = now.AddDate(0, defaultDepositTerm, 0)
	default:
		return nil, fmt.Errorf("unsupported account type: %s", kind)
	}

	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account created: id=%s type=%s owner=%s number=%s", account.ID, kind, ownerID, account.AccountNumber)
	return account, nil
}

// creditRate derives the CREDIT provisioning rate from the central-bank
// key rate; falls back to the default when the feed is unavailable.
func (s *AccountService) creditRate() decimal.Decimal {
	if s.rates == nil {
		return defaultCreditRate
	}
	keyRate, err := s.rates.KeyRate()
	if err != nil {
		s.log.Warnf("Key rate unavailable, using default credit rate: %v", err)
		return defaultCreditRate
	}
	return keyRate.Div(decimal.NewFromInt(100))
}

// Account returns a single account by id.
func (s *AccountService) Account(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.Account(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// AccountsByOwner returns the owner's accounts with their cards, in the
// caller-facing shape.
func (s *AccountService) AccountsByOwner(ctx context.Context, ownerID string) ([]models.AccountDTO, error) {
	accounts, err := s.store.AccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]models.AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		cards, err := s.store.CardsByAccount(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list cards: %w", err)
		}
		out = append(out, models.NewAccountDTO(account, cards))
	}
	return out, nil
}

// DeleteAccount removes an account. An account holding funds (or owing
// them, for CREDIT) cannot be deleted.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	account, err := s.Account(ctx, id)
	if err != nil {
		return err
	}
	if !account.Balance.IsZero() {
		s.log.Errorf("Refusing to delete account %s with balance %s", id, account.Balance)
		return ErrAccountNotEmpty
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.log.Infof("Account deleted: id=%s", id)
	return nil
}

// UnlockMaturedDeposits clears the locked flag on DEPOSIT accounts whose
// term has passed and returns the unlocked accounts.
func (s *AccountService) UnlockMaturedDeposits(ctx context.Context, asOf time.Time) ([]*models.Account, error) {
	due, err := s.store.DueDeposits(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due deposits: %w", err)
	}
	for _, account := range due {
		account.Locked = false
		if err := s.store.SaveAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to unlock account %s: %w", account.ID, err)
		}
		s.log.Infof("Deposit account unlocked: id=%s matured=%s", account.ID, account.DepositUnlockDate.Format("2006-01-02"))
	}
	return due, nil
}
