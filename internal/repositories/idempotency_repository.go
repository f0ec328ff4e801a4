package repositories

import (
	"errors"
	"fmt"

	"vaultpay/internal/models"

	"gorm.io/gorm"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// IdempotencyRepository stores (user, key) request claims. Claims are
// created inside the same atomic scope as the movement they guard, so
// a replayed request either sees the stored result or conflicts on the
// unique index and is retried as a lookup.
type IdempotencyRepository interface {
	Get(userID uint, key string) (*models.IdempotencyKey, error)
	Create(k *models.IdempotencyKey) error
	WithTx(tx *gorm.DB) IdempotencyRepository
}

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) WithTx(tx *gorm.DB) IdempotencyRepository {
	return &idempotencyRepository{db: tx}
}

func (r *idempotencyRepository) Get(userID uint, key string) (*models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	err := r.db.Where("user_id = ? AND key = ?", userID, key).First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdempotencyKeyNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return &k, nil
}

func (r *idempotencyRepository) Create(k *models.IdempotencyKey) error {
	if err := r.db.Create(k).Error; err != nil {
		return fmt.Errorf("failed to create idempotency key: %w", err)
	}
	return nil
}
