package user

import (
	"errors"
	"fmt"
	"strings"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type service struct {
	users  repositories.UserRepository
	logger *zap.SugaredLogger
}

// NewService creates the user service.
func NewService(users repositories.UserRepository, logger *zap.SugaredLogger) Service {
	if users == nil {
		panic("user: user repository is required")
	}
	if logger == nil {
		panic("user: logger is required")
	}
	return &service{users: users, logger: logger}
}

func (s *service) Register(p RegisterParams) (*models.User, error) {
	v := validation.New()
	v.Required("name", p.Name)
	v.Email("email", p.Email)
	v.Phone("phone", p.Phone)
	v.Password("password", p.Password)
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, firstError(v.Errors))
	}

	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleUser, models.RoleMerchant:
	default:
		// Admin accounts are provisioned out of band, never via signup.
		return nil, ErrInvalidRole
	}
	if role == models.RoleMerchant && strings.TrimSpace(p.BusinessName) == "" {
		return nil, ErrBusinessNameRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:            p.Name,
		Email:           strings.ToLower(strings.TrimSpace(p.Email)),
		Phone:           strings.TrimSpace(p.Phone),
		Password:        string(hash),
		Role:            role,
		Status:          models.UserStatusActive,
		DefaultCurrency: currency,
		BusinessName:    p.BusinessName,
		BusinessType:    p.BusinessType,
	}
	if err := s.users.Create(user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, repositories.ErrPhoneTaken):
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	s.logger.Infow("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *service) Get(id uint) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *service) GetByEmail(email string) (*models.User, error) {
	user, err := s.users.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *service) UpdateProfile(id uint, p UpdateProfileParams) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if p.Name != "" {
		user.Name = p.Name
	}
	if p.Currency != "" {
		v := validation.New()
		v.Currency("currency", strings.ToUpper(p.Currency))
		if !v.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, firstError(v.Errors))
		}
		user.DefaultCurrency = strings.ToUpper(p.Currency)
	}
	if p.BusinessName != "" {
		user.BusinessName = p.BusinessName
	}
	if p.BusinessType != "" {
		user.BusinessType = p.BusinessType
	}

	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) List(offset, limit int) ([]*models.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.users.List(offset, limit)
}

func (s *service) SetStatus(id uint, status string) error {
	switch status {
	case models.UserStatusActive, models.UserStatusSuspended:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.users.UpdateStatus(id, status); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Infow("user status changed", "user_id", id, "status", status)
	return nil
}

func firstError(errs map[string]string) string {
	for field, msg := range errs {
		return field + " " + msg
	}
	return "invalid input"
}
