package models

import "time"

// Card represents a bank card linked to exactly one account.
// A card carries no balance of its own; movements on a card
// resolve to the linked account.
type Card struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	CardNumber string    `json:"card_number"`
	ExpiryDate string    `json:"expiry_date"` // MM/YY
	CVV        string    `json:"-"`           // Not serialized
	CreatedAt  time.Time `json:"created_at"`
}
