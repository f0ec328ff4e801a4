package creditcard

import (
	"context"

	"vaultpay/internal/models"
)

// LinkCardParams carries raw card details or a client-side token
// through tokenization. Nothing in here is persisted directly.
type LinkCardParams struct {
	CardNumber  string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	MakeDefault bool
}

// TokenizedCard is the processor's answer: an opaque token plus the
// display fields we are allowed to keep.
type TokenizedCard struct {
	Token       string
	Brand       string
	LastFour    string
	ExpiryMonth string
	ExpiryYear  string
}

// Tokenizer exchanges card details for a processor token.
type Tokenizer interface {
	Tokenize(p LinkCardParams) (*TokenizedCard, error)
}

// Service manages tokenized cards used as payment and deposit sources.
type Service interface {
	LinkCard(ctx context.Context, userID uint, p LinkCardParams) (*models.CreditCard, error)
	ListCards(ctx context.Context, userID uint) ([]*models.CreditCard, error)
	GetCard(ctx context.Context, userID, cardID uint) (*models.CreditCard, error)

	// TokenFor returns the charge token for an active card owned by
	// the user. Payment flows call this to turn a card ID into a
	// capability the ledger can charge against.
	TokenFor(ctx context.Context, userID, cardID uint) (string, error)

	RemoveCard(ctx context.Context, userID, cardID uint) error
	SetDefaultCard(ctx context.Context, userID, cardID uint) error
}
