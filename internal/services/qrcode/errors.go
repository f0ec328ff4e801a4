package qrcode

import "errors"

// Service errors. State failures on scanned codes use the shared
// domain errors so handlers map them to stable codes.
var (
	ErrNotOwner       = errors.New("qr code belongs to another user")
	ErrAmountRequired = errors.New("amount codes require a positive amount")
	ErrInvalidExpiry  = errors.New("expiry must be in the future")
)
