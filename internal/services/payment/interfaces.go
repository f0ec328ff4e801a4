package payment

import (
	"context"

	"vaultpay/internal/models"
	"vaultpay/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// CodePaymentParams pays a scanned QR code. Amount is what the payer
// chose; for amount codes it must be zero or equal the code's amount.
type CodePaymentParams struct {
	PayerID        uint
	Code           string
	Amount         decimal.Decimal
	Source         ledger.PaymentSource
	Description    string
	IdempotencyKey string
}

// Service executes payments: direct ones through the ledger and QR
// ones where the code's usage count advances in the same commit as the
// money.
type Service interface {
	Pay(ctx context.Context, p ledger.PaymentParams) (*models.Transaction, error)
	PayByCode(ctx context.Context, p CodePaymentParams) (*models.Transaction, error)
}
