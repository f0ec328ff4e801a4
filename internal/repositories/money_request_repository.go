package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrMoneyRequestNotFound = errors.New("money request not found")

// MoneyRequestRepository stores payment requests between users.
type MoneyRequestRepository interface {
	Create(req *models.MoneyRequest) error
	GetByID(id uint) (*models.MoneyRequest, error)
	GetForUpdate(id uint) (*models.MoneyRequest, error)
	Update(req *models.MoneyRequest) error
	ListIncoming(ctx context.Context, payerID uint, limit, offset int) ([]models.MoneyRequest, error)
	ListOutgoing(ctx context.Context, requesterID uint, limit, offset int) ([]models.MoneyRequest, error)

	// ExpireDue marks PENDING requests past their expiry.
	ExpireDue(now time.Time) (int64, error)

	WithTx(tx *gorm.DB) MoneyRequestRepository
}

type moneyRequestRepository struct {
	db *gorm.DB
}

func NewMoneyRequestRepository(db *gorm.DB) MoneyRequestRepository {
	return &moneyRequestRepository{db: db}
}

func (r *moneyRequestRepository) WithTx(tx *gorm.DB) MoneyRequestRepository {
	return &moneyRequestRepository{db: tx}
}

func (r *moneyRequestRepository) Create(req *models.MoneyRequest) error {
	if err := r.db.Create(req).Error; err != nil {
		return fmt.Errorf("failed to create money request: %w", err)
	}
	return nil
}

func (r *moneyRequestRepository) GetByID(id uint) (*models.MoneyRequest, error) {
	var req models.MoneyRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMoneyRequestNotFound
		}
		return nil, fmt.Errorf("failed to get money request: %w", err)
	}
	return &req, nil
}

func (r *moneyRequestRepository) GetForUpdate(id uint) (*models.MoneyRequest, error) {
	q := r.db
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req models.MoneyRequest
	if err := q.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMoneyRequestNotFound
		}
		return nil, fmt.Errorf("failed to lock money request: %w", err)
	}
	return &req, nil
}

func (r *moneyRequestRepository) Update(req *models.MoneyRequest) error {
	if err := r.db.Save(req).Error; err != nil {
		return fmt.Errorf("failed to update money request: %w", err)
	}
	return nil
}

func (r *moneyRequestRepository) ListIncoming(ctx context.Context, payerID uint, limit, offset int) ([]models.MoneyRequest, error) {
	var reqs []models.MoneyRequest
	err := r.db.WithContext(ctx).
		Where("payer_id = ?", payerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming money requests: %w", err)
	}
	return reqs, nil
}

func (r *moneyRequestRepository) ListOutgoing(ctx context.Context, requesterID uint, limit, offset int) ([]models.MoneyRequest, error) {
	var reqs []models.MoneyRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing money requests: %w", err)
	}
	return reqs, nil
}

func (r *moneyRequestRepository) ExpireDue(now time.Time) (int64, error) {
	res := r.db.Model(&models.MoneyRequest{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			models.MoneyRequestStatusPending, now).
		Update("status", models.MoneyRequestStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire money requests: %w", res.Error)
	}
	return res.RowsAffected, nil
}
