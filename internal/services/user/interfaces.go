package user

import "vaultpay/internal/models"

// RegisterParams carries a signup request.
type RegisterParams struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	Role         string
	Currency     string
	BusinessName string
	BusinessType string
}

// UpdateProfileParams carries the fields a user may change themselves.
// Empty fields are left untouched.
type UpdateProfileParams struct {
	Name         string
	Currency     string
	BusinessName string
	BusinessType string
}

// Service manages accounts. Authentication lives in the auth service;
// this one owns registration and profile data.
type Service interface {
	Register(p RegisterParams) (*models.User, error)
	Get(id uint) (*models.User, error)

	// GetByEmail resolves a transfer recipient typed in by address.
	GetByEmail(email string) (*models.User, error)
	UpdateProfile(id uint, p UpdateProfileParams) (*models.User, error)

	// Admin operations.
	List(offset, limit int) ([]*models.User, int64, error)
	SetStatus(id uint, status string) error
}
