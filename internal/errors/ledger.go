package errors

var (
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive value with at most two decimal places",
	}
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient available balance",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrWalletInactive = &DomainError{
		Code:    "WALLET_INACTIVE",
		Message: "wallet is locked or inactive",
	}
	ErrCurrencyMismatch = &DomainError{
		Code:    "CURRENCY_MISMATCH",
		Message: "wallet currencies do not match",
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER",
		Message: "sender and receiver wallets are the same",
	}
	ErrAlreadyRefunded = &DomainError{
		Code:    "ALREADY_REFUNDED",
		Message: "transaction has already been fully refunded",
	}
	ErrNotRefundable = &DomainError{
		Code:    "NOT_REFUNDABLE",
		Message: "transaction cannot be refunded",
	}
	ErrConcurrentModification = &DomainError{
		Code:    "CONCURRENT_MODIFICATION",
		Message: "the operation conflicted with a concurrent update, try again",
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrDuplicateRequest = &DomainError{
		Code:    "DUPLICATE_REQUEST",
		Message: "a request with this idempotency key was already processed",
	}
)
