package payment

import "errors"

// Service errors
var (
	ErrAmountRequired = errors.New("this code requires the payer to choose an amount")
	ErrAmountMismatch = errors.New("amount does not match the code")
)
