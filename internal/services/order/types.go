package order

import "github.com/shopspring/decimal"

// AuthorizeParams opens an order by reserving the payer's funds.
type AuthorizeParams struct {
	MerchantID  uint
	PayerID     uint
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// CaptureParams draws on an order's authorization. A zero amount
// captures the full remainder.
type CaptureParams struct {
	OrderID        uint
	MerchantID     uint
	Amount         decimal.Decimal
	IdempotencyKey string
}

// RefundParams returns captured money to the payer. A zero amount
// refunds everything still refundable.
type RefundParams struct {
	OrderID        uint
	MerchantID     uint
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
}
