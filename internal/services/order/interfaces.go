package order

import (
	"context"

	"vaultpay/internal/models"
)

// Service runs the merchant order lifecycle. Authorization reserves
// the payer's funds without moving them; capture turns reserved funds
// into a payment; void releases whatever authorization remains; refund
// returns captured money.
type Service interface {
	Authorize(ctx context.Context, p AuthorizeParams) (*models.Order, error)
	Capture(ctx context.Context, p CaptureParams) (*models.Order, *models.Transaction, error)
	Void(ctx context.Context, orderID, merchantID uint) (*models.Order, error)
	Refund(ctx context.Context, p RefundParams) (*models.Order, *models.Transaction, error)

	Get(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	ListForMerchant(ctx context.Context, merchantID uint, limit, offset int) ([]models.Order, error)
	ListForPayer(ctx context.Context, payerID uint, limit, offset int) ([]models.Order, error)
}
