package repositories

import (
	"fmt"
	"time"

	"vaultpay/internal/models"

	"gorm.io/gorm"
)

// OutboxRepository stores events awaiting publication by the relay.
type OutboxRepository interface {
	Append(event *models.OutboxEvent) error
	FetchUnprocessed(limit int) ([]models.OutboxEvent, error)
	MarkProcessed(ids []uint) error
	WithTx(tx *gorm.DB) OutboxRepository
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository {
	return &outboxRepository{db: tx}
}

func (r *outboxRepository) Append(event *models.OutboxEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) FetchUnprocessed(limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.Where("processed = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	err := r.db.Model(&models.OutboxEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"processed": true, "processed_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to mark outbox events processed: %w", err)
	}
	return nil
}
