package repositories

import (
	"context"
	"fmt"

	"vaultpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRepository appends and reads the audit trail. Entries are
// write-once; there is deliberately no update or delete method.
type LedgerRepository interface {
	Record(entry *models.LedgerEntry) error
	ListForWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)
	ListForTransaction(transactionID uint) ([]models.LedgerEntry, error)
	CountForWallet(walletID uint) (int64, error)

	// ReplayBalance recomputes a wallet's total balance from its
	// entries (credits minus debits), for reconciliation checks.
	ReplayBalance(walletID uint) (decimal.Decimal, error)

	WithTx(tx *gorm.DB) LedgerRepository
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}

func (r *ledgerRepository) Record(entry *models.LedgerEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ListForWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListForTransaction(transactionID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) CountForWallet(walletID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func (r *ledgerRepository) ReplayBalance(walletID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&models.LedgerEntry{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to replay balance: %w", err)
	}
	return total, nil
}
