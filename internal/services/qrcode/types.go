package qrcode

import (
	"time"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
)

// Default lifetime of an amount code when the caller sets no expiry.
const DefaultAmountCodeTTL = 24 * time.Hour

// AmountCodeParams describes a dynamic code bound to a fixed amount.
type AmountCodeParams struct {
	UserID        uint
	Amount        decimal.Decimal
	Currency      string
	ExpiresAt     *time.Time
	MaxUses       int
	AllowedPayers []uint
	Metadata      models.JSON
}
