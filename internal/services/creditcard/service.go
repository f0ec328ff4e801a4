package creditcard

import (
	"context"
	"errors"
	"strings"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"

	"go.uber.org/zap"
)

type service struct {
	cards     repositories.CreditCardRepository
	tokenizer Tokenizer
	logger    *zap.SugaredLogger
}

// NewService creates the card service.
func NewService(cards repositories.CreditCardRepository, tokenizer Tokenizer, logger *zap.SugaredLogger) Service {
	if cards == nil {
		panic("creditcard: card repository is required")
	}
	if tokenizer == nil {
		panic("creditcard: tokenizer is required")
	}
	if logger == nil {
		panic("creditcard: logger is required")
	}
	return &service{cards: cards, tokenizer: tokenizer, logger: logger}
}

func (s *service) LinkCard(ctx context.Context, userID uint, p LinkCardParams) (*models.CreditCard, error) {
	tokenized, err := s.tokenizer.Tokenize(p)
	if err != nil {
		return nil, err
	}

	existing, err := s.cards.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.Token == tokenized.Token {
			return nil, ErrCardAlreadyLinked
		}
	}

	card := &models.CreditCard{
		UserID:      userID,
		Token:       tokenized.Token,
		Brand:       tokenized.Brand,
		LastFour:    tokenized.LastFour,
		ExpiryMonth: tokenized.ExpiryMonth,
		ExpiryYear:  tokenized.ExpiryYear,
		Status:      models.CardStatusActive,
		IsDefault:   p.MakeDefault || len(existing) == 0,
	}
	if err := s.cards.Create(card); err != nil {
		if isUniqueTokenErr(err) {
			return nil, ErrCardAlreadyLinked
		}
		return nil, err
	}
	if card.IsDefault {
		if err := s.cards.SetDefault(card.ID); err != nil {
			s.logger.Warnw("failed to set default card", "card_id", card.ID, "err", err)
		}
	}

	s.logger.Infow("card linked", "user_id", userID, "card_id", card.ID, "brand", card.Brand)
	return card, nil
}

func (s *service) ListCards(ctx context.Context, userID uint) ([]*models.CreditCard, error) {
	return s.cards.GetByUserID(userID)
}

func (s *service) GetCard(ctx context.Context, userID, cardID uint) (*models.CreditCard, error) {
	card, err := s.cards.GetByIDAndUserID(cardID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return card, nil
}

func (s *service) TokenFor(ctx context.Context, userID, cardID uint) (string, error) {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return "", err
	}
	if card.Status != models.CardStatusActive {
		return "", ErrCardNotActive
	}
	return card.Token, nil
}

func (s *service) RemoveCard(ctx context.Context, userID, cardID uint) error {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return err
	}
	if card.Status != models.CardStatusActive {
		return ErrCardNotActive
	}

	card.Status = models.CardStatusRemoved
	card.IsDefault = false
	if err := s.cards.Update(card); err != nil {
		return err
	}

	// Promote the most recently added card so the user keeps a default.
	remaining, err := s.cards.GetByUserID(userID)
	if err == nil && len(remaining) > 0 {
		if err := s.cards.SetDefault(remaining[0].ID); err != nil {
			s.logger.Warnw("failed to promote default card", "card_id", remaining[0].ID, "err", err)
		}
	}

	s.logger.Infow("card removed", "user_id", userID, "card_id", cardID)
	return nil
}

func (s *service) SetDefaultCard(ctx context.Context, userID, cardID uint) error {
	card, err := s.GetCard(ctx, userID, cardID)
	if err != nil {
		return err
	}
	if card.Status != models.CardStatusActive {
		return ErrCardNotActive
	}
	return s.cards.SetDefault(cardID)
}

func isUniqueTokenErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
