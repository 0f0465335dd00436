package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is fixed at creation and determines the balance floor.
type AccountType string

const (
	AccountDebit   AccountType = "DEBIT"
	AccountCredit  AccountType = "CREDIT"
	AccountDeposit AccountType = "DEPOSIT"
)

// Account represents a bank account
type Account struct {
	ID                string          `json:"id"`
	AccountNumber     string          `json:"account_number"`
	OwnerID           string          `json:"owner_id"`
	Balance           decimal.Decimal `json:"balance"`
	CreditLimit       decimal.Decimal `json:"credit_limit"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	AccountType       AccountType     `json:"account_type"`
	DepositTermMonths int             `json:"deposit_term_months"`
	Locked            bool            `json:"locked"`
	DepositStartDate  time.Time       `json:"deposit_start_date"`
	DepositUnlockDate time.Time       `json:"deposit_unlock_date"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Floor returns the minimum balance the account may reach:
// -credit_limit for CREDIT accounts, zero otherwise.
func (a *Account) Floor() decimal.Decimal {
	if a.AccountType == AccountCredit {
		return a.CreditLimit.Neg()
	}
	return decimal.Zero
}
