package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"vaultpay/internal/models"
)

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	MaxAmount    decimal.Decimal
}

// PaymentSourceKind selects where a payment draws its funds from.
type PaymentSourceKind string

const (
	// SourceWallet debits the payer's wallet balance.
	SourceWallet PaymentSourceKind = "wallet"
	// SourceCard captures against a tokenized card; the payer's
	// wallet is not touched.
	SourceCard PaymentSourceKind = "card"
)

// PaymentSource is the capability a payment runs against. The
// orchestrator branches on the capability, not on who the payer is.
type PaymentSource struct {
	Kind      PaymentSourceKind
	CardToken string
}

type TransferParams struct {
	SenderID       uint
	ReceiverID     uint
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       models.JSON
}

type DepositParams struct {
	UserID         uint
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       models.JSON
}

type WithdrawParams struct {
	UserID         uint
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       models.JSON
}

type PayoutParams struct {
	MerchantID     uint
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       models.JSON
}

type PaymentParams struct {
	PayerID        uint
	PayeeID        uint
	Amount         decimal.Decimal
	Currency       string
	Description    string
	Source         PaymentSource
	IdempotencyKey string
	Metadata       models.JSON
}

type RefundParams struct {
	TransactionID uint
	// Amount zero means refund the full refundable remainder.
	Amount         decimal.Decimal
	Reason         string
	RequestedBy    uint
	IdempotencyKey string
}

type ConvertParams struct {
	UserID         uint
	FromCurrency   string
	ToCurrency     string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// ReconcileReport compares a wallet's stored total against the balance
// replayed from its ledger entries.
type ReconcileReport struct {
	WalletID   uint            `json:"wallet_id"`
	Balance    decimal.Decimal `json:"balance"`
	Replayed   decimal.Decimal `json:"replayed"`
	EntryCount int64           `json:"entry_count"`
	Consistent bool            `json:"consistent"`
}
