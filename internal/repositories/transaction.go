package repositories

import (
	"context"
	"errors"
	"time"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction reference already exists")
)

// TransactionRepository defines the interface for transaction records.
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	GetByID(id uint) (*models.Transaction, error)
	GetByReference(ref string) (*models.Transaction, error)
	Update(tx *models.Transaction) error

	// GetForUpdate locks the row; refunds lock the original so
	// concurrent reversal attempts serialize on it.
	GetForUpdate(id uint) (*models.Transaction, error)

	// SumRefunded totals COMPLETED refunds pointing at the original.
	SumRefunded(originalID uint) (decimal.Decimal, error)

	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	ListForWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error)
	CountForUser(userID uint) (int64, error)

	Stats(start, end time.Time) (*TransactionStats, error)

	WithTx(tx *gorm.DB) TransactionRepository
}

// TransactionStats represents aggregated transaction statistics
type TransactionStats struct {
	TotalTransactions int64
	TotalVolume       decimal.Decimal
	AvgAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	SuccessRate       float64
}
