package storage

import (
	"context"
	"errors"
	"time"

	"bankledger/internal/models"
)

// ErrNotFound is returned by point reads when no record exists for the
// given identifier. Services translate it into their own taxonomy.
var ErrNotFound = errors.New("record not found")

// Tx is the unit of work the transfer engine runs inside. Every balance
// read through AccountForUpdate holds its row until the surrounding
// transaction commits or rolls back; callers acquire accounts in
// ascending id order.
type Tx interface {
	AccountForUpdate(id string) (*models.Account, error)
	SaveAccount(account *models.Account) error
	AppendTransaction(t *models.Transaction) error
}

// Store is the durable keyed storage for accounts, cards, users and the
// append-only transaction log.
type Store interface {
	// WithinTx runs fn inside a single isolation boundary. If fn returns
	// an error nothing fn did through the Tx is observable afterwards.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Account(ctx context.Context, id string) (*models.Account, error)
	AccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	DueDeposits(ctx context.Context, asOf time.Time) ([]*models.Account, error)

	Card(ctx context.Context, id string) (*models.Card, error)
	CardsByAccount(ctx context.Context, accountID string) ([]*models.Card, error)
	CountCardsByAccount(ctx context.Context, accountID string) (int, error)
	SaveCard(ctx context.Context, card *models.Card) error
	DeleteCard(ctx context.Context, id string) error

	User(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	Transaction(ctx context.Context, id string) (*models.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error)
}
