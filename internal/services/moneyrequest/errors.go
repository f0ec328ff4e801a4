package moneyrequest

import "errors"

// Service errors
var (
	ErrRequestNotFound = errors.New("money request not found")
	ErrNotPayer        = errors.New("only the requested payer can act on this request")
	ErrNotRequester    = errors.New("only the requester can cancel this request")
	ErrNotPending      = errors.New("money request is no longer pending")
	ErrRequestExpired  = errors.New("money request has expired")
	ErrSelfRequest     = errors.New("cannot request money from yourself")
	ErrInvalidAmount   = errors.New("amount must be positive with at most two decimal places")
)
