package repositories

import (
	"errors"
	"fmt"

	"vaultpay/internal/models"

	"gorm.io/gorm"
)

type creditCardRepository struct {
	db *gorm.DB
}

func NewCreditCardRepository(db *gorm.DB) CreditCardRepository {
	return &creditCardRepository{
		db: db,
	}
}

func (r *creditCardRepository) GetByID(cardID uint) (*models.CreditCard, error) {
	var card models.CreditCard
	if err := r.db.First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *creditCardRepository) GetByIDAndUserID(cardID, userID uint) (*models.CreditCard, error) {
	var card models.CreditCard
	err := r.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *creditCardRepository) Create(card *models.CreditCard) error {
	if err := r.db.Create(card).Error; err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *creditCardRepository) Update(card *models.CreditCard) error {
	if err := r.db.Save(card).Error; err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

func (r *creditCardRepository) GetByUserID(userID uint) ([]*models.CreditCard, error) {
	var cards []*models.CreditCard
	err := r.db.Where("user_id = ? AND status = ?", userID, models.CardStatusActive).
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user cards: %w", err)
	}
	return cards, nil
}

func (r *creditCardRepository) GetDefaultCard(userID uint) (*models.CreditCard, error) {
	var card models.CreditCard
	err := r.db.Where("user_id = ? AND is_default = ? AND status = ?",
		userID, true, models.CardStatusActive).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get default card: %w", err)
	}
	return &card, nil
}

func (r *creditCardRepository) UpdateStatus(cardID uint, status string) error {
	result := r.db.Model(&models.CreditCard{}).Where("id = ?", cardID).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update card status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *creditCardRepository) SetDefault(cardID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var card models.CreditCard
		if err := tx.First(&card, cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}

		if err := tx.Model(&models.CreditCard{}).
			Where("user_id = ?", card.UserID).
			Update("is_default", false).Error; err != nil {
			return err
		}

		return tx.Model(&models.CreditCard{}).
			Where("id = ?", cardID).
			Update("is_default", true).Error
	})
}
