package schedule

import "errors"

// Service errors
var (
	ErrScheduleNotFound = errors.New("scheduled payment not found")
	ErrNotOwner         = errors.New("scheduled payment belongs to another user")
	ErrInvalidFrequency = errors.New("invalid schedule frequency")
	ErrInvalidStart     = errors.New("start date is required")
	ErrInvalidAmount    = errors.New("amount must be positive with at most two decimal places")
	ErrSelfPayment      = errors.New("cannot schedule a payment to yourself")
	ErrNotActive        = errors.New("scheduled payment is not active")
	ErrNotPaused        = errors.New("scheduled payment is not paused")
	ErrAlreadyFinished  = errors.New("scheduled payment has already finished")
)
