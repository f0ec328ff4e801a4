package wallet

import (
	"context"

	"vaultpay/internal/models"
)

// Service defines the wallet management interface. Balances only ever
// change through the ledger; this surface reads and administers them.
type Service interface {
	// Wallet lookup and creation
	GetOrCreate(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetByID(ctx context.Context, walletID uint) (*models.Wallet, error)
	List(ctx context.Context, userID uint) ([]*models.Wallet, error)

	// Balance views
	Summary(ctx context.Context, userID uint, currency string) (*BalanceSummary, error)
	Summaries(ctx context.Context, userID uint) ([]BalanceSummary, error)

	// History lists the user's transactions newest first, relabeling
	// the receiving side of transfers as TRANSFER_IN.
	History(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)

	// Administrative status changes
	Lock(ctx context.Context, walletID uint, reason string) error
	Unlock(ctx context.Context, walletID uint) error
}
