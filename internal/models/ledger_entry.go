package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types
const (
	LedgerEntryDebit  = "DEBIT"
	LedgerEntryCredit = "CREDIT"
)

// LedgerEntry is the append-only audit record of one wallet's total
// balance changing. Entries are written in the same database
// transaction as the balance update and are never updated or deleted.
// Bucket reclassifications (available to pending, available to
// reserved) do not change the total and therefore produce no entry.
type LedgerEntry struct {
	ID            uint            `gorm:"primarykey"`
	WalletID      uint            `gorm:"not null;index"`
	TransactionID uint            `gorm:"not null;index"`
	EntryType     string          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Description   string
	ReferenceID   string `gorm:"index"`
	CreatedAt     time.Time
}
