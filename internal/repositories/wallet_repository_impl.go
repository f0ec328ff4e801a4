package repositories

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

func (r *walletRepository) WithTx(tx *gorm.DB) WalletRepository {
	return &walletRepository{db: tx}
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByID(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserAndCurrency(userID uint, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("user_id = ? AND currency = ?", userID, currency).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) ListByUser(userID uint) ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	if err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Wallet{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}

func (r *walletRepository) GetForUpdate(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.locking().First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetManyForUpdate(ids ...uint) (map[uint]*models.Wallet, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	wallets := make(map[uint]*models.Wallet, len(sorted))
	for _, id := range sorted {
		if _, ok := wallets[id]; ok {
			continue
		}
		w, err := r.GetForUpdate(id)
		if err != nil {
			return nil, err
		}
		wallets[id] = w
	}
	return wallets, nil
}

// Save writes the wallet's balances and status back under an
// optimistic version check. A lost race returns ErrWalletConflict.
func (r *walletRepository) Save(wallet *models.Wallet) error {
	res := r.db.Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"balance":           wallet.Balance,
			"available_balance": wallet.AvailableBalance,
			"pending_balance":   wallet.PendingBalance,
			"reserved_balance":  wallet.ReservedBalance,
			"is_active":         wallet.IsActive,
			"status_reason":     wallet.StatusReason,
			"version":           wallet.Version + 1,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletConflict
	}
	wallet.Version++
	return nil
}

func (r *walletRepository) UpdateStatus(walletID uint, active bool, reason string) error {
	res := r.db.Model(&models.Wallet{}).Where("id = ?", walletID).Updates(map[string]interface{}{
		"is_active":     active,
		"status_reason": reason,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update wallet status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) TotalBalance() (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&models.Wallet{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get total balance: %w", err)
	}
	return total, nil
}

func (r *walletRepository) ActiveWalletsCount() (int64, error) {
	var count int64
	err := r.db.Model(&models.Wallet{}).Where("is_active = ?", true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get active wallets count: %w", err)
	}
	return count, nil
}

// locking adds FOR UPDATE on engines that support it. SQLite has no
// row locks; tests there run single-writer and rely on the version
// check in Save.
func (r *walletRepository) locking() *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return r.db
	}
	return r.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
