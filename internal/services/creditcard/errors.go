package creditcard

import "errors"

var (
	ErrCardNotFound      = errors.New("card not found")
	ErrCardNotActive     = errors.New("card not active")
	ErrCardAlreadyLinked = errors.New("card already linked")
	ErrInvalidCard       = errors.New("invalid card details")
	ErrCardExpired       = errors.New("card is expired")

	// ErrRawCardUnsupported is returned for untokenized live card
	// numbers. Clients tokenize with Stripe Elements or the mobile SDK
	// and send the resulting token; raw PANs never transit this API.
	ErrRawCardUnsupported = errors.New("direct card tokenization is not supported - use Stripe Elements or Mobile SDK")
)
