package repositories

import (
	"vaultpay/internal/repositories/cache"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry bundles every repository over one database handle so
// services take a single dependency. WithTx rebinds the bundle to an
// open transaction; the ledger service uses that to hand atomic
// scopes a transaction-consistent view of all storage.
type Registry struct {
	Wallets       WalletRepository
	Transactions  TransactionRepository
	Ledger        LedgerRepository
	Idempotency   IdempotencyRepository
	Outbox        OutboxRepository
	Orders        OrderRepository
	Schedules     ScheduledPaymentRepository
	MoneyRequests MoneyRequestRepository
	QRCodes       QRCodeRepository
	Users         UserRepository
	Cards         CreditCardRepository
}

func NewRegistry(db *gorm.DB, cacheSvc *cache.CacheService, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		Wallets:       NewWalletRepository(db),
		Transactions:  NewTransactionRepository(db),
		Ledger:        NewLedgerRepository(db),
		Idempotency:   NewIdempotencyRepository(db),
		Outbox:        NewOutboxRepository(db),
		Orders:        NewOrderRepository(db),
		Schedules:     NewScheduledPaymentRepository(db),
		MoneyRequests: NewMoneyRequestRepository(db),
		QRCodes:       NewQRCodeRepository(db),
		Users:         NewUserRepository(db, cacheSvc, logger),
		Cards:         NewCreditCardRepository(db),
	}
}

// WithTx rebinds every transactional repository to tx. Card storage
// never participates in money scopes and keeps its own handle.
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{
		Wallets:       r.Wallets.WithTx(tx),
		Transactions:  r.Transactions.WithTx(tx),
		Ledger:        r.Ledger.WithTx(tx),
		Idempotency:   r.Idempotency.WithTx(tx),
		Outbox:        r.Outbox.WithTx(tx),
		Orders:        r.Orders.WithTx(tx),
		Schedules:     r.Schedules.WithTx(tx),
		MoneyRequests: r.MoneyRequests.WithTx(tx),
		QRCodes:       r.QRCodes.WithTx(tx),
		Users:         r.Users.WithTx(tx),
		Cards:         r.Cards,
	}
}
