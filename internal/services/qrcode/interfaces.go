package qrcode

import (
	"context"

	"vaultpay/internal/models"
)

// Service manages payment QR codes. Paying a scanned code is the
// payment service's job; this service creates, resolves and revokes
// the codes themselves.
type Service interface {
	// GetReceiveCode returns the user's static receive code, creating
	// it on first use. Receive codes never expire and have no amount;
	// the payer chooses how much to send.
	GetReceiveCode(ctx context.Context, userID uint) (*models.QRCode, error)

	// CreateAmountCode creates a single-use (by default) code bound to
	// a fixed amount, for invoices and checkout displays.
	CreateAmountCode(ctx context.Context, p AmountCodeParams) (*models.QRCode, error)

	// Resolve validates a scanned code for display before payment.
	Resolve(ctx context.Context, code string) (*models.QRCode, error)

	Revoke(ctx context.Context, code string, userID uint) (*models.QRCode, error)
	ListForUser(ctx context.Context, userID uint) ([]models.QRCode, error)
}
