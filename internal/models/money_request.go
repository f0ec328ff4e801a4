package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money request statuses
const (
	MoneyRequestStatusPending   = "PENDING"
	MoneyRequestStatusAccepted  = "ACCEPTED"
	MoneyRequestStatusDeclined  = "DECLINED"
	MoneyRequestStatusCancelled = "CANCELLED"
	MoneyRequestStatusExpired   = "EXPIRED"
)

// MoneyRequest asks another user to pay. Accepting it executes a
// regular transfer from the payer to the requester and links the
// resulting transaction.
type MoneyRequest struct {
	ID            uint            `gorm:"primarykey"`
	RequesterID   uint            `gorm:"not null;index"`
	PayerID       uint            `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency      string          `gorm:"size:3;not null"`
	Description   string
	Status        string `gorm:"size:16;not null;default:'PENDING';index"`
	ExpiresAt     *time.Time
	TransactionID *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
