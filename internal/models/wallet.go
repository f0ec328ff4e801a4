package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds one user's funds in one currency. Balance is the total;
// the three sub-balances classify it by availability:
//
//	Balance = AvailableBalance + PendingBalance + ReservedBalance
//
// The ledger service maintains this identity on every commit.
type Wallet struct {
	ID               uint            `gorm:"primarykey"`
	UserID           uint            `gorm:"not null;uniqueIndex:idx_wallets_user_currency"`
	Currency         string          `gorm:"size:3;not null;default:'USD';uniqueIndex:idx_wallets_user_currency"`
	Balance          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	AvailableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	PendingBalance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	ReservedBalance  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`
	IsDefault        bool            `gorm:"not null;default:false"`
	IsActive         bool            `gorm:"not null;default:true"`
	StatusReason     string          `gorm:"default:''"`
	Version          int64           `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// New wallets always start empty
	w.Balance = decimal.Zero
	w.AvailableBalance = decimal.Zero
	w.PendingBalance = decimal.Zero
	w.ReservedBalance = decimal.Zero
	return nil
}

// Consistent reports whether the sub-balances still sum to the total.
func (w *Wallet) Consistent() bool {
	sum := w.AvailableBalance.Add(w.PendingBalance).Add(w.ReservedBalance)
	return w.Balance.Equal(sum)
}
