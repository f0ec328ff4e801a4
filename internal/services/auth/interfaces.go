package auth

import "vaultpay/internal/models"

// LoginParams identifies a user by email or phone.
type LoginParams struct {
	Email    string
	Phone    string
	Password string
	IP       string
}

// Service handles credentials and token lifecycle. Token invalidation
// works through the user's token version: bumping it revokes every
// outstanding access and refresh token at once.
type Service interface {
	Login(p LoginParams) (*models.User, string, string, error)
	RefreshTokens(refreshToken string) (string, string, error)
	Logout(userID uint) error
	ChangePassword(userID uint, oldPassword, newPassword string) error
}
