package user

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrPhoneTaken           = errors.New("phone number already registered")
	ErrInvalidInput         = errors.New("invalid registration input")
	ErrInvalidRole          = errors.New("invalid role")
	ErrBusinessNameRequired = errors.New("business name required for merchants")
)
