package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errIdempotencyRace marks a lost race on an idempotency claim; the
// retry loop re-runs the closure, which then replays the stored result.
var errIdempotencyRace = errors.New("idempotency key claimed concurrently")

// Scope is one atomic unit of work. Every repository it exposes is
// bound to the same open database transaction, and every balance
// mutation goes through Credit, Debit or Reclassify so the audit
// trail can never diverge from the balances.
//
// A Scope is not safe for concurrent use and must not outlive the
// closure it was handed to.
type Scope struct {
	tx      *gorm.DB
	repos   *repositories.Registry
	refs    *reference.Generator
	now     time.Time
	touched map[uint]*models.Wallet
}

func newScope(tx *gorm.DB, repos *repositories.Registry, refs *reference.Generator, now time.Time) *Scope {
	return &Scope{
		tx:      tx,
		repos:   repos,
		refs:    refs,
		now:     now,
		touched: make(map[uint]*models.Wallet),
	}
}

// Now is the scope's single timestamp; one operation's rows all carry
// the same time.
func (s *Scope) Now() time.Time { return s.now }

// Tx exposes the underlying transaction for sibling repositories.
func (s *Scope) Tx() *gorm.DB { return s.tx }

// Tx-bound repository accessors for flows that update their own rows
// in the same commit as a money movement.
func (s *Scope) Transactions() repositories.TransactionRepository { return s.repos.Transactions }
func (s *Scope) Orders() repositories.OrderRepository { return s.repos.Orders }
func (s *Scope) Schedules() repositories.ScheduledPaymentRepository { return s.repos.Schedules }
func (s *Scope) MoneyRequests() repositories.MoneyRequestRepository { return s.repos.MoneyRequests }
func (s *Scope) QRCodes() repositories.QRCodeRepository { return s.repos.QRCodes }
func (s *Scope) Users() repositories.UserRepository { return s.repos.Users }

// WalletIDFor resolves an existing wallet's id without locking it.
func (s *Scope) WalletIDFor(userID uint, currency string) (uint, error) {
	w, err := s.repos.Wallets.GetByUserAndCurrency(userID, currency)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}
	return w.ID, nil
}

// EnsureWalletID resolves a wallet's id, creating the wallet when the
// user has none in that currency. The first wallet a user gets becomes
// their default. Creation races resolve by refetching.
func (s *Scope) EnsureWalletID(userID uint, currency string) (uint, error) {
	w, err := s.repos.Wallets.GetByUserAndCurrency(userID, currency)
	if err == nil {
		return w.ID, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return 0, err
	}

	count, err := s.repos.Wallets.CountByUser(userID)
	if err != nil {
		return 0, err
	}
	wallet := &models.Wallet{
		UserID:    userID,
		Currency:  currency,
		IsDefault: count == 0,
		IsActive:  true,
	}
	if err := s.repos.Wallets.Create(wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			existing, gerr := s.repos.Wallets.GetByUserAndCurrency(userID, currency)
			if gerr != nil {
				return 0, gerr
			}
			return existing.ID, nil
		}
		return 0, err
	}
	return wallet.ID, nil
}

// LockWallet fetches a wallet FOR UPDATE, memoized for the scope's
// lifetime so repeated locks return the same in-memory copy.
func (s *Scope) LockWallet(id uint) (*models.Wallet, error) {
	if w, ok := s.touched[id]; ok {
		return w, nil
	}
	w, err := s.repos.Wallets.GetForUpdate(id)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	s.touched[id] = w
	return w, nil
}

// LockWallets locks a set of wallets in ascending id order. Always
// lock everything an operation needs in one call; piecemeal locking
// can interleave with another scope and deadlock.
func (s *Scope) LockWallets(ids ...uint) (map[uint]*models.Wallet, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[uint]*models.Wallet, len(sorted))
	for _, id := range sorted {
		w, err := s.LockWallet(id)
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}

// TouchedWallets returns every wallet locked during the scope, for
// post-commit cache invalidation.
func (s *Scope) TouchedWallets() []*models.Wallet {
	out := make([]*models.Wallet, 0, len(s.touched))
	for _, w := range s.touched {
		out = append(out, w)
	}
	return out
}

// Credit adds amount to the wallet's available balance and total, and
// records the CREDIT ledger entry against txn.
func (s *Scope) Credit(w *models.Wallet, amount decimal.Decimal, txn *models.Transaction, desc string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	before := w.Balance
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	w.Balance = w.Balance.Add(amount)

	return s.repos.Ledger.Record(&models.LedgerEntry{
		WalletID:      w.ID,
		TransactionID: txn.ID,
		EntryType:     models.LedgerEntryCredit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Description:   desc,
		ReferenceID:   txn.ReferenceID,
		CreatedAt:     s.now,
	})
}

// Debit removes amount from the named sub-balance and the total, and
// records the DEBIT ledger entry against txn. A shortfall in available
// is the caller's error (insufficient funds); a shortfall in pending
// or reserved means a hold went missing and the scope must abort.
func (s *Scope) Debit(w *models.Wallet, bucket string, amount decimal.Decimal, txn *models.Transaction, desc string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	src, err := s.bucketPtr(w, bucket)
	if err != nil {
		return err
	}
	if src.LessThan(amount) {
		if bucket == BucketAvailable {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("wallet %d %s balance %s cannot cover %s", w.ID, bucket, src, amount)
	}

	before := w.Balance
	*src = src.Sub(amount)
	w.Balance = w.Balance.Sub(amount)

	return s.repos.Ledger.Record(&models.LedgerEntry{
		WalletID:      w.ID,
		TransactionID: txn.ID,
		EntryType:     models.LedgerEntryDebit,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Description:   desc,
		ReferenceID:   txn.ReferenceID,
		CreatedAt:     s.now,
	})
}

// Reclassify moves amount between two sub-balances of one wallet. The
// total balance is unchanged, so no ledger entry is written.
func (s *Scope) Reclassify(w *models.Wallet, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("cannot reclassify %s onto itself", from)
	}
	src, err := s.bucketPtr(w, from)
	if err != nil {
		return err
	}
	dst, err := s.bucketPtr(w, to)
	if err != nil {
		return err
	}
	if src.LessThan(amount) {
		if from == BucketAvailable {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("wallet %d %s balance %s cannot cover %s", w.ID, from, src, amount)
	}
	*src = src.Sub(amount)
	*dst = dst.Add(amount)
	return nil
}

func (s *Scope) bucketPtr(w *models.Wallet, bucket string) (*decimal.Decimal, error) {
	switch bucket {
	case BucketAvailable:
		return &w.AvailableBalance, nil
	case BucketPending:
		return &w.PendingBalance, nil
	case BucketReserved:
		return &w.ReservedBalance, nil
	default:
		return nil, fmt.Errorf("unknown balance bucket %q", bucket)
	}
}

// CreateTransaction persists a new transaction row, stamping a
// reference ID and creation time if unset.
func (s *Scope) CreateTransaction(txn *models.Transaction) error {
	if txn.ReferenceID == "" {
		txn.ReferenceID = s.refs.Generate(reference.ForTransactionType(txn.Type))
	}
	if txn.Status == "" {
		txn.Status = models.TransactionStatusPending
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = s.now
	}
	return s.repos.Transactions.Create(txn)
}

func (s *Scope) UpdateTransaction(txn *models.Transaction) error {
	return s.repos.Transactions.Update(txn)
}

// LockTransaction fetches a transaction FOR UPDATE so state changes
// against it (settlement, refunds) serialize.
func (s *Scope) LockTransaction(id uint) (*models.Transaction, error) {
	txn, err := s.repos.Transactions.GetForUpdate(id)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// SumRefunded totals completed refunds recorded against the original.
func (s *Scope) SumRefunded(originalID uint) (decimal.Decimal, error) {
	return s.repos.Transactions.SumRefunded(originalID)
}

// Emit appends an outbox event to be published after commit.
func (s *Scope) Emit(aggregateType, aggregateID, eventType string, payload models.JSON) error {
	return s.repos.Outbox.Append(&models.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     s.now,
	})
}

// ReplayIdempotent looks up a prior result for (userID, key).
func (s *Scope) ReplayIdempotent(userID uint, key string) (*models.Transaction, bool, error) {
	claim, err := s.repos.Idempotency.Get(userID, key)
	if err != nil {
		if errors.Is(err, repositories.ErrIdempotencyKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	txn, err := s.repos.Transactions.GetByID(claim.TransactionID)
	if err != nil {
		return nil, false, err
	}
	return txn, true, nil
}

// ClaimIdempotency records (userID, key) -> transactionID. Losing a
// race on the unique index surfaces as a retryable conflict; the
// retry then replays the winner's result.
func (s *Scope) ClaimIdempotency(userID uint, key string, transactionID uint) error {
	err := s.repos.Idempotency.Create(&models.IdempotencyKey{
		UserID:        userID,
		Key:           key,
		TransactionID: transactionID,
		CreatedAt:     s.now,
	})
	if err != nil {
		if isUniqueViolationErr(err) {
			return errIdempotencyRace
		}
		return err
	}
	return nil
}

// flush validates and persists every wallet the scope touched. Wallets
// save under an optimistic version check; a conflict rolls the whole
// scope back for retry.
func (s *Scope) flush() error {
	ids := make([]uint, 0, len(s.touched))
	for id := range s.touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		w := s.touched[id]
		if w.AvailableBalance.IsNegative() || w.PendingBalance.IsNegative() || w.ReservedBalance.IsNegative() {
			return fmt.Errorf("wallet %d sub-balance went negative", w.ID)
		}
		if !w.Consistent() {
			return fmt.Errorf("wallet %d balance does not equal the sum of its sub-balances", w.ID)
		}
		if err := s.repos.Wallets.Save(w); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolationErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
