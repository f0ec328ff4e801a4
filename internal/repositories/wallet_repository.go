package repositories

import (
	"errors"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrDuplicateWallet = errors.New("wallet already exists")
	// ErrWalletConflict signals that a versioned save lost against a
	// concurrent writer and the whole operation should be retried.
	ErrWalletConflict = errors.New("wallet modified concurrently")
)

// WalletRepository defines the interface for wallet-related database operations
type WalletRepository interface {
	// Core wallet operations
	Create(wallet *models.Wallet) error
	GetByID(id uint) (*models.Wallet, error)
	GetByUserAndCurrency(userID uint, currency string) (*models.Wallet, error)
	ListByUser(userID uint) ([]*models.Wallet, error)
	CountByUser(userID uint) (int64, error)

	// Locked reads and versioned writes, used inside atomic scopes.
	// GetManyForUpdate locks rows in ascending id order so two scopes
	// touching the same pair can never deadlock each other.
	GetForUpdate(id uint) (*models.Wallet, error)
	GetManyForUpdate(ids ...uint) (map[uint]*models.Wallet, error)
	Save(wallet *models.Wallet) error

	// Status operations
	UpdateStatus(walletID uint, active bool, reason string) error

	// Analytics and reporting
	TotalBalance() (decimal.Decimal, error)
	ActiveWalletsCount() (int64, error)

	// WithTx binds the repository to an open database transaction.
	WithTx(tx *gorm.DB) WalletRepository
}
