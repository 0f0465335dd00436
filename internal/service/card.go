package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankledger/internal/models"
	"bankledger/internal/storage"
	"bankledger/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxCardsPerAccount = 2

// CardService issues and manages cards. A card number must pass the Luhn
// gate before the card can participate in movements.
type CardService struct {
	store storage.Store
	log   *logrus.Logger
}

// NewCardService initializes the card service.
func NewCardService(store storage.Store, log *logrus.Logger) *CardService {
	return &CardService{store: store, log: log}
}

// CreateCard links a new card to an account. The card number is generated
// when the request leaves it empty; a supplied number must be Luhn-valid.
func (s *CardService) CreateCard(ctx context.Context, accountID, cardNumber string) (*models.Card, error) {
	if _, err := s.store.Account(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	count, err := s.store.CountCardsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}
	if count >= maxCardsPerAccount {
		s.log.Errorf("Card creation failed: account %s already has %d cards", accountID, count)
		return nil, ErrCardLimitExceeded
	}

	if cardNumber == "" {
		cardNumber, err = utils.GenerateCardNumber("400000")
		if err != nil {
			return nil, fmt.Errorf("failed to generate card number: %w", err)
		}
	}
	if !utils.IsValidCardNumber(cardNumber) {
		s.log.Errorf("Invalid card number provided for account %s", accountID)
		return nil, ErrInvalidCardNumber
	}

	card := &models.Card{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		CardNumber: cardNumber,
		ExpiryDate: utils.GenerateExpiryDate(),
		CVV:        utils.GenerateCVV(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Card created: id=%s account=%s", card.ID, accountID)
	return card, nil
}

// CardsByAccount lists the account's cards.
func (s *CardService) CardsByAccount(ctx context.Context, accountID string) ([]*models.Card, error) {
	cards, err := s.store.CardsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card. The linked account and its recorded
// transactions are untouched.
func (s *CardService) DeleteCard(ctx context.Context, id string) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCardNotFound
		}
		return fmt.Errorf("failed to delete card: %w", err)
	}
	s.log.Infof("Card deleted: id=%s", id)
	return nil
}
