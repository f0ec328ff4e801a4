package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderStatusPending           = "PENDING"
	OrderStatusAuthorized        = "AUTHORIZED"
	OrderStatusCaptured          = "CAPTURED"
	OrderStatusPartiallyCaptured = "PARTIALLY_CAPTURED"
	OrderStatusRefunded          = "REFUNDED"
	OrderStatusPartiallyRefunded = "PARTIALLY_REFUNDED"
	OrderStatusVoided            = "VOIDED"
)

// Order tracks a merchant charge through authorize, capture, void and
// refund. CapturedAmount never exceeds Total and RefundedAmount never
// exceeds CapturedAmount; both ceilings are enforced inside the same
// atomic scope that moves the money.
type Order struct {
	ID             uint            `gorm:"primarykey"`
	ReferenceID    string          `gorm:"uniqueIndex;not null"`
	MerchantID     uint            `gorm:"not null;index"`
	PayerID        uint            `gorm:"not null;index"`
	Currency       string          `gorm:"size:3;not null"`
	Total          decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CapturedAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	Status         string          `gorm:"size:24;not null;default:'PENDING';index"`
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Remaining returns the authorized amount not yet captured.
func (o *Order) Remaining() decimal.Decimal {
	return o.Total.Sub(o.CapturedAmount)
}
