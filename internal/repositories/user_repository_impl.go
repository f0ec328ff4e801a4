package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories/cache"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userRepository struct {
	db     *gorm.DB
	cache  *cache.CacheService
	logger *zap.SugaredLogger
}

// NewUserRepository creates a new instance of UserRepository. The
// cache is optional; a nil cache disables read-through caching.
func NewUserRepository(db *gorm.DB, cacheSvc *cache.CacheService, logger *zap.SugaredLogger) UserRepository {
	return &userRepository{
		db:     db,
		cache:  cacheSvc,
		logger: logger,
	}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx, cache: r.cache, logger: r.logger}
}

func (r *userRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "phone") {
				return ErrPhoneTaken
			}
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	if r.cache != nil {
		if user, err := r.cache.GetUser(context.Background(), id); err == nil {
			return user, nil
		}
	}

	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheUser(context.Background(), &user); err != nil {
			r.logger.Warnw("failed to cache user", "user_id", user.ID, "err", err)
		}
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	r.invalidate(user.ID)
	return nil
}

func (r *userRepository) IncrementTokenVersion(userID uint) error {
	err := r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment token version: %w", err)
	}
	r.invalidate(userID)
	return nil
}

func (r *userRepository) List(offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if err := r.db.Offset(offset).Limit(limit).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) UpdatePassword(userID uint, hashedPassword string) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", hashedPassword)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	r.invalidate(userID)
	return nil
}

func (r *userRepository) UpdateStatus(userID uint, status string) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	r.invalidate(userID)
	return nil
}

func (r *userRepository) invalidate(userID uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateUser(context.Background(), userID); err != nil {
		r.logger.Warnw("failed to invalidate user cache", "user_id", userID, "err", err)
	}
}
