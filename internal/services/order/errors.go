package order

import "errors"

// Service errors
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotMerchant        = errors.New("order belongs to another merchant")
	ErrInvalidAmount      = errors.New("amount must be positive with at most two decimal places")
	ErrNotCapturable      = errors.New("order is not open for capture")
	ErrCaptureExceedsAuth = errors.New("capture amount exceeds the authorized remainder")
	ErrNotVoidable        = errors.New("order has no authorization left to void")
	ErrNotRefundable      = errors.New("order has nothing captured to refund")
)
