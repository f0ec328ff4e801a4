package moneyrequest

import (
	"context"
	"time"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
)

// CreateParams asks payerID to send amount to requesterID.
type CreateParams struct {
	RequesterID uint
	PayerID     uint
	Amount      decimal.Decimal
	Currency    string
	Description string
	ExpiresAt   *time.Time
}

// Service manages requests for payment. Accepting one runs a regular
// transfer and links the resulting transaction to the request in the
// same commit.
type Service interface {
	Create(ctx context.Context, p CreateParams) (*models.MoneyRequest, error)
	Accept(ctx context.Context, requestID, payerID uint) (*models.MoneyRequest, *models.Transaction, error)
	Decline(ctx context.Context, requestID, payerID uint) (*models.MoneyRequest, error)
	Cancel(ctx context.Context, requestID, requesterID uint) (*models.MoneyRequest, error)

	Get(ctx context.Context, requestID, callerID uint) (*models.MoneyRequest, error)
	ListIncoming(ctx context.Context, payerID uint, limit, offset int) ([]models.MoneyRequest, error)
	ListOutgoing(ctx context.Context, requesterID uint, limit, offset int) ([]models.MoneyRequest, error)

	// ExpireDue sweeps pending requests past their expiry.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
