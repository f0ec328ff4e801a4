package repositories

import (
	"errors"

	"vaultpay/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
	ErrPhoneTaken   = errors.New("phone number already taken")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByPhone(phone string) (*models.User, error)
	Update(user *models.User) error

	// IncrementTokenVersion invalidates all outstanding tokens.
	IncrementTokenVersion(userID uint) error

	List(offset, limit int) ([]*models.User, int64, error)
	UpdatePassword(userID uint, hashedPassword string) error
	UpdateStatus(userID uint, status string) error

	WithTx(tx *gorm.DB) UserRepository
}
