package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Publisher delivers completed-movement events to interested consumers.
// Delivery is best-effort and happens after the movement has committed.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// TransactionCompleted is emitted once per committed money movement.
type TransactionCompleted struct {
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"transaction_type"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
