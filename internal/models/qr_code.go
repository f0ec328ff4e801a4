package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	QRTypeReceive = "receive" // static code, payer chooses the amount
	QRTypeAmount  = "amount"  // dynamic code bound to a fixed amount
)

const (
	QRStatusActive  = "active"
	QRStatusExpired = "expired"
	QRStatusRevoked = "revoked"
)

// QRCode resolves a scanned code to its owner and, for amount codes,
// the amount to pay. AllowedPayers restricts who may pay the code; an
// empty list means anyone.
type QRCode struct {
	ID            uint             `gorm:"primarykey"`
	Code          string           `gorm:"uniqueIndex;not null"`
	UserID        uint             `gorm:"not null;index"`
	Type          string           `gorm:"size:16;not null"`
	Amount        *decimal.Decimal `gorm:"type:numeric(20,2)"`
	Currency      string           `gorm:"size:3;not null;default:'USD'"`
	ExpiresAt     *time.Time
	MaxUses       int           `gorm:"not null;default:1"`
	UsageCount    int           `gorm:"not null;default:0"`
	Status        string        `gorm:"size:16;not null;default:'active'"`
	AllowedPayers pq.Int64Array `gorm:"type:bigint[]"`
	Metadata      JSON          `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Unlimited codes use MaxUses = 0.
func (q *QRCode) Exhausted() bool {
	return q.MaxUses > 0 && q.UsageCount >= q.MaxUses
}

func (q *QRCode) AllowsPayer(userID uint) bool {
	if len(q.AllowedPayers) == 0 {
		return true
	}
	for _, id := range q.AllowedPayers {
		if id == int64(userID) {
			return true
		}
	}
	return false
}
