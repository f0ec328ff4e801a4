package auth

import (
	"errors"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/utils"
	"vaultpay/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

type service struct {
	users  repositories.UserRepository
	logger *zap.SugaredLogger
}

// NewService creates the auth service.
func NewService(users repositories.UserRepository, logger *zap.SugaredLogger) Service {
	if users == nil {
		panic("auth: user repository is required")
	}
	if logger == nil {
		panic("auth: logger is required")
	}
	return &service{users: users, logger: logger}
}

func (s *service) Login(p LoginParams) (*models.User, string, string, error) {
	user, err := s.getUserByIdentifier(p.Email, p.Phone)
	if err != nil {
		// Same error as a bad password so identifiers can't be probed.
		return nil, "", "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if user.AccountLockoutUntil != nil && now.Before(*user.AccountLockoutUntil) {
		return nil, "", "", ErrAccountLocked
	}
	if user.Status != models.UserStatusActive {
		return nil, "", "", ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(p.Password)); err != nil {
		s.recordFailedAttempt(user, now)
		return nil, "", "", ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.AccountLockoutUntil = nil
	user.LastLoginAt = now
	user.LastLoginIP = p.IP
	if err := s.users.Update(user); err != nil {
		s.logger.Warnw("failed to record login", "user_id", user.ID, "err", err)
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}

	s.logger.Infow("user logged in", "user_id", user.ID, "ip", p.IP)
	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", "", ErrTokenRevoked
	}
	if user.Status != models.UserStatusActive {
		return "", "", ErrAccountDisabled
	}

	return s.issueTokens(user)
}

func (s *service) Logout(userID uint) error {
	return s.users.IncrementTokenVersion(userID)
}

func (s *service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return errors.Join(ErrWeakPassword, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashedPassword)
	user.TokenVersion++
	if err := s.users.Update(user); err != nil {
		return err
	}

	s.logger.Infow("password changed", "user_id", userID)
	return nil
}

func (s *service) recordFailedAttempt(user *models.User, now time.Time) {
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= maxFailedLogins {
		until := now.Add(lockoutDuration)
		user.AccountLockoutUntil = &until
		user.FailedLoginAttempts = 0
		s.logger.Warnw("account locked after failed logins", "user_id", user.ID)
	}
	if err := s.users.Update(user); err != nil {
		s.logger.Warnw("failed to record login attempt", "user_id", user.ID, "err", err)
	}
}

func (s *service) issueTokens(user *models.User) (string, string, error) {
	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
}

func (s *service) getUserByIdentifier(email, phone string) (*models.User, error) {
	if email != "" {
		return s.users.GetByEmail(email)
	}
	return s.users.GetByPhone(phone)
}
