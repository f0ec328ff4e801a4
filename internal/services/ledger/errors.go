package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrAmountTooLarge      = errors.New("amount exceeds the single transaction limit")
	ErrInsufficientFunds   = errors.New("insufficient available balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletInactive      = errors.New("wallet is locked or inactive")
	ErrCurrencyMismatch    = errors.New("wallet currencies do not match")
	ErrSelfTransfer        = errors.New("sender and receiver are the same wallet")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotSettleable       = errors.New("transaction is not awaiting settlement")
	ErrNotRefundable       = errors.New("transaction cannot be refunded")
	ErrAlreadyRefunded     = errors.New("transaction already fully refunded")
	ErrUnsupportedSource   = errors.New("unsupported payment source")

	// ErrConcurrentModification is returned after the bounded retry
	// budget is exhausted; individual conflicts are retried silently.
	ErrConcurrentModification = errors.New("operation conflicted with concurrent updates")
)
