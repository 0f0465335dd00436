package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes the three supported money movements.
type TransactionType string

const (
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionWithdraw TransactionType = "WITHDRAW"
	TransactionTransfer TransactionType = "TRANSFER"
)

// Transaction is an immutable record of a completed money movement.
// Amount is always the positive magnitude; direction is encoded by
// which reference fields are populated. Empty reference fields mean
// the side does not participate (no source for a deposit, no
// destination for a withdrawal).
type Transaction struct {
	ID            string          `json:"id"`
	Type          TransactionType `json:"transaction_type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	FromCardID    string          `json:"from_card_id,omitempty"`
	ToCardID      string          `json:"to_card_id,omitempty"`
}
