package ledger

import (
	"context"

	"vaultpay/internal/models"
)

// Service is the transaction orchestrator. Nothing else in the system
// writes balances, transactions or ledger entries.
type Service interface {
	// Atomic runs fn inside one database transaction with every
	// repository bound to it, retrying the whole closure a bounded
	// number of times when it loses a concurrency race. Specialized
	// flows that need their own rows updated alongside a money
	// movement pass a closure here.
	Atomic(ctx context.Context, fn func(op *Scope) error) error

	// Two-party and single-sided movements.
	Transfer(ctx context.Context, p TransferParams) (*models.Transaction, error)
	Deposit(ctx context.Context, p DepositParams) (*models.Transaction, error)
	Pay(ctx context.Context, p PaymentParams) (*models.Transaction, error)
	Convert(ctx context.Context, p ConvertParams) (*models.Transaction, error)

	// Two-phase outflows: initiation holds funds in the pending
	// bucket; settlement or failure finalizes the hold.
	InitiateWithdrawal(ctx context.Context, p WithdrawParams) (*models.Transaction, error)
	InitiatePayout(ctx context.Context, p PayoutParams) (*models.Transaction, error)
	Settle(ctx context.Context, transactionID uint) (*models.Transaction, error)
	Fail(ctx context.Context, transactionID uint, reason string) (*models.Transaction, error)

	// Refund reverses value from a completed transaction's receiver
	// back to its sender, bounded by what remains unrefunded.
	Refund(ctx context.Context, p RefundParams) (*models.Transaction, error)

	// Reconcile replays a wallet's ledger entries and compares the
	// result against its stored balance.
	Reconcile(ctx context.Context, walletID uint) (*ReconcileReport, error)
}
