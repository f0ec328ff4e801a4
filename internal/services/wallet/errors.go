package wallet

import "errors"

// Service errors
var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAlreadyLocked   = errors.New("wallet is already locked")
	ErrNotLocked       = errors.New("wallet is not locked")
)
