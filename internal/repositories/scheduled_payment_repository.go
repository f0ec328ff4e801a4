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

var ErrScheduledPaymentNotFound = errors.New("scheduled payment not found")

// ScheduledPaymentRepository stores recurring payment definitions and
// their run history.
type ScheduledPaymentRepository interface {
	Create(sp *models.ScheduledPayment) error
	GetByID(id uint) (*models.ScheduledPayment, error)
	GetForUpdate(id uint) (*models.ScheduledPayment, error)
	Update(sp *models.ScheduledPayment) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ScheduledPayment, error)

	// ListDue returns ACTIVE schedules whose NextRunDate is not after
	// now, oldest first.
	ListDue(now time.Time, limit int) ([]models.ScheduledPayment, error)

	CreateRun(run *models.ScheduledPaymentRun) error
	ListRuns(scheduleID uint, limit, offset int) ([]models.ScheduledPaymentRun, error)

	WithTx(tx *gorm.DB) ScheduledPaymentRepository
}

type scheduledPaymentRepository struct {
	db *gorm.DB
}

func NewScheduledPaymentRepository(db *gorm.DB) ScheduledPaymentRepository {
	return &scheduledPaymentRepository{db: db}
}

func (r *scheduledPaymentRepository) WithTx(tx *gorm.DB) ScheduledPaymentRepository {
	return &scheduledPaymentRepository{db: tx}
}

func (r *scheduledPaymentRepository) Create(sp *models.ScheduledPayment) error {
	if err := r.db.Create(sp).Error; err != nil {
		return fmt.Errorf("failed to create scheduled payment: %w", err)
	}
	return nil
}

func (r *scheduledPaymentRepository) GetByID(id uint) (*models.ScheduledPayment, error) {
	var sp models.ScheduledPayment
	if err := r.db.First(&sp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduledPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get scheduled payment: %w", err)
	}
	return &sp, nil
}

func (r *scheduledPaymentRepository) GetForUpdate(id uint) (*models.ScheduledPayment, error) {
	q := r.db
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sp models.ScheduledPayment
	if err := q.First(&sp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduledPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock scheduled payment: %w", err)
	}
	return &sp, nil
}

func (r *scheduledPaymentRepository) Update(sp *models.ScheduledPayment) error {
	if err := r.db.Save(sp).Error; err != nil {
		return fmt.Errorf("failed to update scheduled payment: %w", err)
	}
	return nil
}

func (r *scheduledPaymentRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ScheduledPayment, error) {
	var sps []models.ScheduledPayment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled payments: %w", err)
	}
	return sps, nil
}

func (r *scheduledPaymentRepository) ListDue(now time.Time, limit int) ([]models.ScheduledPayment, error) {
	var sps []models.ScheduledPayment
	err := r.db.
		Where("status = ? AND next_run_date <= ?", models.ScheduleStatusActive, now).
		Order("next_run_date ASC").
		Limit(limit).
		Find(&sps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due scheduled payments: %w", err)
	}
	return sps, nil
}

func (r *scheduledPaymentRepository) CreateRun(run *models.ScheduledPaymentRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to record scheduled payment run: %w", err)
	}
	return nil
}

func (r *scheduledPaymentRepository) ListRuns(scheduleID uint, limit, offset int) ([]models.ScheduledPaymentRun, error) {
	var runs []models.ScheduledPaymentRun
	err := r.db.
		Where("scheduled_payment_id = ?", scheduleID).
		Order("run_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled payment runs: %w", err)
	}
	return runs, nil
}
