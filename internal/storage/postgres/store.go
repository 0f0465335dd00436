// Package postgres is the durable storage.Store implementation. Balance
// mutations run inside serializable transactions with account rows locked
// FOR UPDATE, so concurrent movements against the same account serialize
// at the database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"
)

// Store provides database operations
type Store struct {
	db *sql.DB
}

// NewStore initializes a new postgres-backed store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const accountColumns = `id, account_number, owner_id, balance, credit_limit, interest_rate,
		account_type, deposit_term_months, locked, deposit_start_date, deposit_unlock_date, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.AccountNumber, &a.OwnerID, &a.Balance, &a.CreditLimit, &a.InterestRate,
		&a.AccountType, &a.DepositTermMonths, &a.Locked, &a.DepositStartDate, &a.DepositUnlockDate, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) AccountForUpdate(id string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM bank.accounts
		WHERE id = $1
		FOR UPDATE`
	account, err := scanAccount(t.tx.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

func (t *pgTx) SaveAccount(account *models.Account) error {
	query := `
		UPDATE bank.accounts
		SET balance = $2, credit_limit = $3, interest_rate = $4, locked = $5,
			deposit_start_date = $6, deposit_unlock_date = $7
		WHERE id = $1`
	res, err := t.tx.Exec(query, account.ID, account.Balance, account.CreditLimit, account.InterestRate,
		account.Locked, account.DepositStartDate, account.DepositUnlockDate)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendTransaction(tr *models.Transaction) error {
	query := `
		INSERT INTO bank.transactions
			(id, transaction_type, amount, description, timestamp,
			 from_account_id, to_account_id, from_card_id, to_card_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.Exec(query, tr.ID, tr.Type, tr.Amount, tr.Description, tr.Timestamp,
		nullable(tr.FromAccountID), nullable(tr.ToAccountID), nullable(tr.FromCardID), nullable(tr.ToCardID))
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a serializable database transaction and rolls
// back if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Account(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM bank.accounts
		WHERE id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

func (s *Store) AccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM bank.accounts
		WHERE owner_id = $1
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO bank.accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET balance = EXCLUDED.balance, credit_limit = EXCLUDED.credit_limit,
			interest_rate = EXCLUDED.interest_rate, locked = EXCLUDED.locked,
			deposit_start_date = EXCLUDED.deposit_start_date,
			deposit_unlock_date = EXCLUDED.deposit_unlock_date`
	_, err := s.db.ExecContext(ctx, query, account.ID, account.AccountNumber, account.OwnerID,
		account.Balance, account.CreditLimit, account.InterestRate, account.AccountType,
		account.DepositTermMonths, account.Locked, account.DepositStartDate,
		account.DepositUnlockDate, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bank.accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DueDeposits(ctx context.Context, asOf time.Time) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM bank.accounts
		WHERE account_type = 'DEPOSIT' AND locked AND deposit_unlock_date <= $1`
	rows, err := s.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due deposits: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) Card(ctx context.Context, id string) (*models.Card, error) {
	card := &models.Card{}
	query := `
		SELECT id, account_id, card_number, expiry_date, cvv, created_at
		FROM bank.cards
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&card.ID, &card.AccountID, &card.CardNumber, &card.ExpiryDate, &card.CVV, &card.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

func (s *Store) CardsByAccount(ctx context.Context, accountID string) ([]*models.Card, error) {
	query := `
		SELECT id, account_id, card_number, expiry_date, cvv, created_at
		FROM bank.cards
		WHERE account_id = $1
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.AccountID, &card.CardNumber, &card.ExpiryDate, &card.CVV, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *Store) CountCardsByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank.cards WHERE account_id = $1`, accountID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

func (s *Store) SaveCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank.cards (id, account_id, card_number, expiry_date, cvv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, card.ID, card.AccountID, card.CardNumber,
		card.ExpiryDate, card.CVV, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) User(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM bank.users
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM bank.users
		WHERE email = $1`
	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO bank.users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

const transactionColumns = `id, transaction_type, amount, description, timestamp,
		from_account_id, to_account_id, from_card_id, to_card_id`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	t := &models.Transaction{}
	var fromAccount, toAccount, fromCard, toCard sql.NullString
	err := row.Scan(&t.ID, &t.Type, &t.Amount, &t.Description, &t.Timestamp,
		&fromAccount, &toAccount, &fromCard, &toCard)
	if err != nil {
		return nil, err
	}
	t.FromAccountID = fromAccount.String
	t.ToAccountID = toAccount.String
	t.FromCardID = fromCard.String
	t.ToCardID = toCard.String
	return t, nil
}

func (s *Store) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank.transactions
		WHERE id = $1`
	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return t, nil
}

func (s *Store) TransactionsByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank.transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY timestamp`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ storage.Store = (*Store)(nil)
