package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDTO is the caller-facing view of a Transaction.
type TransactionDTO struct {
	ID            string          `json:"id"`
	Type          string          `json:"transaction_type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	FromCardID    string          `json:"from_card_id,omitempty"`
	ToCardID      string          `json:"to_card_id,omitempty"`
}

// NewTransactionDTO projects a stored Transaction into its caller-facing
// representation. Reference fields are copied verbatim; an absent side
// stays absent.
func NewTransactionDTO(t *Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Description:   t.Description,
		Timestamp:     t.Timestamp,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		FromCardID:    t.FromCardID,
		ToCardID:      t.ToCardID,
	}
}

// CardSummaryDTO is the card view embedded in account responses.
type CardSummaryDTO struct {
	ID         string `json:"id"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
}

// AccountDTO is the caller-facing view of an Account with its cards.
type AccountDTO struct {
	ID                string           `json:"id"`
	AccountNumber     string           `json:"account_number"`
	Balance           decimal.Decimal  `json:"balance"`
	CreditLimit       decimal.Decimal  `json:"credit_limit"`
	InterestRate      decimal.Decimal  `json:"interest_rate"`
	AccountType       AccountType      `json:"account_type"`
	DepositTermMonths int              `json:"deposit_term_months"`
	Locked            bool             `json:"locked"`
	Cards             []CardSummaryDTO `json:"cards"`
}

// NewAccountDTO maps an account and its cards into the response shape.
func NewAccountDTO(a *Account, cards []*Card) AccountDTO {
	dto := AccountDTO{
		ID:                a.ID,
		AccountNumber:     a.AccountNumber,
		Balance:           a.Balance,
		CreditLimit:       a.CreditLimit,
		InterestRate:      a.InterestRate,
		AccountType:       a.AccountType,
		DepositTermMonths: a.DepositTermMonths,
		Locked:            a.Locked,
		Cards:             make([]CardSummaryDTO, 0, len(cards)),
	}
	for _, c := range cards {
		dto.Cards = append(dto.Cards, CardSummaryDTO{
			ID:         c.ID,
			CardNumber: c.CardNumber,
			ExpiryDate: c.ExpiryDate,
		})
	}
	return dto
}
