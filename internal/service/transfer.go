package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bankledger/internal/events"
	"bankledger/internal/models"
	"bankledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers movement notices to account owners. Failures are
// logged, never surfaced to the caller.
type Notifier interface {
	SendMovementNotice(to, username, accountNumber string, amount decimal.Decimal, movement string, balance decimal.Decimal) error
}

// TransferService is the balance-mutation engine. Every public operation
// funnels into apply: resolve the endpoints, enforce the locked and floor
// invariants, mutate balances and append one immutable transaction record,
// all inside a single store transaction. Accounts are additionally
// serialized through an ordered per-account mutex pair so two concurrent
// movements over the same accounts can never both read a stale balance,
// whatever the backing store.
type TransferService struct {
	store     storage.Store
	log       *logrus.Logger
	publisher events.Publisher
	notifier  Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTransferService initializes the engine. publisher and notifier may be
// nil; the engine then skips the corresponding post-commit step.
func NewTransferService(store storage.Store, log *logrus.Logger, publisher events.Publisher, notifier Notifier) *TransferService {
	return &TransferService{
		store:     store,
		log:       log,
		publisher: publisher,
		notifier:  notifier,
		locks:     make(map[string]*sync.Mutex),
	}
}

// movement is the single internal primitive behind the four public
// operations: apply the amount as a debit on from and a credit on to,
// where either side may be absent.
type movement struct {
	kind          models.TransactionType
	fromAccountID string
	toAccountID   string
	fromCardID    string
	toCardID      string
	amount        decimal.Decimal
	description   string
}

// Deposit credits amount to the destination account.
func (s *TransferService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	return s.apply(ctx, movement{
		kind:        models.TransactionDeposit,
		toAccountID: accountID,
		amount:      amount,
		description: description,
	})
}

// Withdraw debits amount from the source account, respecting its floor.
func (s *TransferService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	return s.apply(ctx, movement{
		kind:          models.TransactionWithdraw,
		fromAccountID: accountID,
		amount:        amount,
		description:   description,
	})
}

// Transfer atomically moves amount between two accounts. Self-transfer is
// permitted; it nets to the same balance but is still recorded.
func (s *TransferService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	return s.apply(ctx, movement{
		kind:          models.TransactionTransfer,
		fromAccountID: fromAccountID,
		toAccountID:   toAccountID,
		amount:        amount,
		description:   description,
	})
}

// CardTransfer resolves each card to its linked account and performs the
// same movement as Transfer. The recorded transaction carries the card
// references alongside the resolved account references.
func (s *TransferService) CardTransfer(ctx context.Context, fromCardID, toCardID string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	fromCard, err := s.card(ctx, fromCardID)
	if err != nil {
		return nil, err
	}
	toCard, err := s.card(ctx, toCardID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, movement{
		kind:          models.TransactionTransfer,
		fromAccountID: fromCard.AccountID,
		toAccountID:   toCard.AccountID,
		fromCardID:    fromCard.ID,
		toCardID:      toCard.ID,
		amount:        amount,
		description:   description,
	})
}

func (s *TransferService) card(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.store.Card(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Errorf("Card not found: %s", id)
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve card: %w", err)
	}
	if card.AccountID == "" {
		s.log.Errorf("Card %s has no linked account", id)
		return nil, ErrInvariant
	}
	return card, nil
}

func (s *TransferService) apply(ctx context.Context, mv movement) (*models.Transaction, error) {
	if mv.amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	ids := involvedAccounts(mv)
	unlock := s.lockAccounts(ids)
	defer unlock()

	var (
		recorded *models.Transaction
		balances = make(map[string]decimal.Decimal, len(ids))
	)
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		accounts := make(map[string]*models.Account, len(ids))
		for _, id := range ids {
			account, err := tx.AccountForUpdate(id)
			if errors.Is(err, storage.ErrNotFound) {
				return ErrAccountNotFound
			}
			if err != nil {
				return err
			}
			if account.AccountType == models.AccountDeposit && account.Locked {
				return ErrAccountLocked
			}
			accounts[id] = account
		}

		source := accounts[mv.fromAccountID]
		destination := accounts[mv.toAccountID]

		if source != nil {
			if source.Balance.Sub(mv.amount).LessThan(source.Floor()) {
				return ErrInsufficientFunds
			}
			source.Balance = source.Balance.Sub(mv.amount)
		}
		if destination != nil {
			destination.Balance = destination.Balance.Add(mv.amount)
		}

		for _, id := range ids {
			if err := tx.SaveAccount(accounts[id]); err != nil {
				return err
			}
			balances[id] = accounts[id].Balance
		}

		recorded = &models.Transaction{
			ID:            uuid.NewString(),
			Type:          mv.kind,
			Amount:        mv.amount,
			Description:   mv.description,
			Timestamp:     time.Now().UTC(),
			FromAccountID: mv.fromAccountID,
			ToAccountID:   mv.toAccountID,
			FromCardID:    mv.fromCardID,
			ToCardID:      mv.toCardID,
		}
		return tx.AppendTransaction(recorded)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Movement applied: id=%s type=%s amount=%s from=%s to=%s",
		recorded.ID, recorded.Type, recorded.Amount, recorded.FromAccountID, recorded.ToAccountID)

	s.afterCommit(ctx, recorded, balances)
	return recorded, nil
}

// involvedAccounts returns the distinct participating account ids in
// ascending order, which is also the lock and row-lock acquisition order.
func involvedAccounts(mv movement) []string {
	var ids []string
	if mv.fromAccountID != "" {
		ids = append(ids, mv.fromAccountID)
	}
	if mv.toAccountID != "" && mv.toAccountID != mv.fromAccountID {
		ids = append(ids, mv.toAccountID)
	}
	sort.Strings(ids)
	return ids
}

func (s *TransferService) accountLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// lockAccounts acquires the per-account mutexes in ascending id order and
// returns a function releasing them in reverse.
func (s *TransferService) lockAccounts(ids []string) func() {
	acquired := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := s.accountLock(id)
		l.Lock()
		acquired = append(acquired, l)
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

// afterCommit publishes the completed-movement event and emails the
// affected owners. Both are best-effort; the movement is already durable.
func (s *TransferService) afterCommit(ctx context.Context, t *models.Transaction, balances map[string]decimal.Decimal) {
	if s.publisher != nil {
		event := events.TransactionCompleted{
			TransactionID: t.ID,
			Type:          string(t.Type),
			FromAccountID: t.FromAccountID,
			ToAccountID:   t.ToAccountID,
			Amount:        t.Amount,
			OccurredAt:    t.Timestamp,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Errorf("Failed to publish transaction event %s: %v", t.ID, err)
		}
	}

	if s.notifier == nil {
		return
	}
	switch t.Type {
	case models.TransactionDeposit:
		s.notifyOwner(ctx, t.ToAccountID, t.Amount, "Deposit", balances[t.ToAccountID])
	case models.TransactionWithdraw:
		s.notifyOwner(ctx, t.FromAccountID, t.Amount, "Withdrawal", balances[t.FromAccountID])
	}
}

func (s *TransferService) notifyOwner(ctx context.Context, accountID string, amount decimal.Decimal, movement string, balance decimal.Decimal) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		s.log.Errorf("Failed to load account %s for notification: %v", accountID, err)
		return
	}
	owner, err := s.store.User(ctx, account.OwnerID)
	if err != nil {
		s.log.Errorf("Failed to load owner of account %s for notification: %v", accountID, err)
		return
	}
	if err := s.notifier.SendMovementNotice(owner.Email, owner.Username, account.AccountNumber, amount, movement, balance); err != nil {
		s.log.Errorf("Failed to send %s notice to %s: %v", movement, owner.Email, err)
	}
}

// TransactionHistory returns both-direction movements for the account,
// projected into the caller-facing shape.
func (s *TransferService) TransactionHistory(ctx context.Context, accountID string) ([]models.TransactionDTO, error) {
	transactions, err := s.store.TransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	history := make([]models.TransactionDTO, 0, len(transactions))
	for _, t := range transactions {
		history = append(history, models.NewTransactionDTO(t))
	}
	return history, nil
}

// Transaction returns a single movement by id.
func (s *TransferService) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	t, err := s.store.Transaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return t, nil
}
