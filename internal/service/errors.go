package service

import "errors"

// Domain errors returned by the services. Handlers translate them into
// HTTP status codes; none are retried internally.
var (
	// ErrAccountNotFound indicates that an account id resolves to nothing.
	ErrAccountNotFound = errors.New("account not found")

	// ErrCardNotFound indicates that a card id resolves to nothing.
	ErrCardNotFound = errors.New("card not found")

	// ErrUserNotFound indicates that a user id or email resolves to nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidAmount indicates a movement amount that is zero, negative
	// or malformed.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds indicates the movement would push the source
	// balance below its floor.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountLocked indicates a movement endpoint is a locked DEPOSIT
	// account.
	ErrAccountLocked = errors.New("account is locked")

	// ErrInvalidCardNumber indicates a card number that fails the Luhn
	// checksum or is not 16 digits.
	ErrInvalidCardNumber = errors.New("invalid card number")

	// ErrCardLimitExceeded indicates the linked account already has the
	// maximum of 2 cards.
	ErrCardLimitExceeded = errors.New("maximum 2 cards allowed per account")

	// ErrAccountNotEmpty indicates a deletion attempt on an account whose
	// balance is not zero.
	ErrAccountNotEmpty = errors.New("account balance must be zero")

	// ErrInvariant is reserved for unexpected internal inconsistency,
	// such as a card whose linked account is missing.
	ErrInvariant = errors.New("internal invariant violated")
)
