// Package memory is an in-memory implementation of storage.Store. It backs
// the test suite and local runs without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"
)

// Store keeps all records in maps guarded by a single mutex. Transactions
// run against copies and are merged back only on success, so a failed
// WithinTx leaves no trace.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	cards        map[string]*models.Card
	users        map[string]*models.User
	transactions []*models.Transaction
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		cards:    make(map[string]*models.Card),
		users:    make(map[string]*models.User),
	}
}

type memTx struct {
	store    *Store
	accounts map[string]*models.Account
	appended []*models.Transaction
}

func (t *memTx) AccountForUpdate(id string) (*models.Account, error) {
	if a, ok := t.accounts[id]; ok {
		return a, nil
	}
	orig, ok := t.store.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *orig
	t.accounts[id] = &cp
	return &cp, nil
}

func (t *memTx) SaveAccount(account *models.Account) error {
	cp := *account
	t.accounts[account.ID] = &cp
	return nil
}

func (t *memTx) AppendTransaction(tr *models.Transaction) error {
	cp := *tr
	t.appended = append(t.appended, &cp)
	return nil
}

// WithinTx serializes all units of work behind the store mutex, which is
// at least as strict as the serializable isolation the engine asks for.
func (m *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, accounts: make(map[string]*models.Account)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, a := range tx.accounts {
		m.accounts[id] = a
	}
	m.transactions = append(m.transactions, tx.appended...)
	return nil
}

func (m *Store) Account(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Store) AccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Account
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *Store) DeleteAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *Store) DueDeposits(ctx context.Context, asOf time.Time) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Account
	for _, a := range m.accounts {
		if a.AccountType == models.AccountDeposit && a.Locked && !a.DepositUnlockDate.After(asOf) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) Card(ctx context.Context, id string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Store) CardsByAccount(ctx context.Context, accountID string) ([]*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Card
	for _, c := range m.cards {
		if c.AccountID == accountID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) CountCardsByAccount(ctx context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.cards {
		if c.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (m *Store) SaveCard(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *card
	m.cards[card.ID] = &cp
	return nil
}

func (m *Store) DeleteCard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *Store) User(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *Store) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *Store) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *Store) TransactionsByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ storage.Store = (*Store)(nil)
