package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeTransferIn  = "TRANSFER_IN"
	TransactionTypeTransferOut = "TRANSFER_OUT"
	TransactionTypeDeposit     = "DEPOSIT"
	TransactionTypeWithdrawal  = "WITHDRAWAL"
	TransactionTypePayment     = "PAYMENT"
	TransactionTypeRefund      = "REFUND"
	TransactionTypePayout      = "PAYOUT"
	TransactionTypeFee         = "FEE"
	TransactionTypeConversion  = "CONVERSION"
)

// Transaction statuses
const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusCompleted  = "COMPLETED"
	TransactionStatusFailed     = "FAILED"
	TransactionStatusCancelled  = "CANCELLED"
	TransactionStatusReversed   = "REVERSED"
)

// Transaction is the business-level record of one money movement.
// Transfers are stored once, anchored on the sender (TRANSFER_OUT);
// history views relabel the receiving side as TRANSFER_IN.
type Transaction struct {
	ID          uint   `gorm:"primarykey"`
	ReferenceID string `gorm:"uniqueIndex;not null"`
	Type        string `gorm:"not null;index"`
	Status      string `gorm:"not null;default:'PENDING';index"`

	SenderID         *uint `gorm:"index"`
	ReceiverID       *uint `gorm:"index"`
	SenderWalletID   *uint `gorm:"index"`
	ReceiverWalletID *uint `gorm:"index"`

	Amount    decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Fee       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	NetAmount decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency  string          `gorm:"size:3;not null"`

	Description string

	// Set on REFUND rows; lets refund ceilings be computed with an
	// indexed query instead of scanning metadata.
	OriginalTransactionID *uint `gorm:"index"`
	OrderID               *uint `gorm:"index"`

	FailureReason string
	Metadata      JSON `gorm:"type:jsonb"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// Terminal reports whether the transaction can no longer change state,
// other than COMPLETED flipping to REVERSED on full refund.
func (t *Transaction) Terminal() bool {
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusReversed:
		return true
	}
	return false
}
