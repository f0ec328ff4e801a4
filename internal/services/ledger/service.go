package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db      *gorm.DB
	repos   *repositories.Registry
	fees    *fee.Engine
	refs    *reference.Generator
	cache   *cache.CacheService
	logger  *zap.SugaredLogger
	metrics MetricsCollector
	config  Config
}

// NewService creates the transaction orchestrator. The cache is
// optional; everything else is required.
func NewService(
	db *gorm.DB,
	repos *repositories.Registry,
	fees *fee.Engine,
	refs *reference.Generator,
	cacheSvc *cache.CacheService,
	logger *zap.SugaredLogger,
	metrics MetricsCollector,
	config Config,
) Service {
	if db == nil {
		panic("ledger: database handle is required")
	}
	if repos == nil {
		panic("ledger: repository registry is required")
	}
	if fees == nil {
		panic("ledger: fee engine is required")
	}
	if refs == nil {
		panic("ledger: reference generator is required")
	}
	if logger == nil {
		panic("ledger: logger is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	if config.MaxAmount.IsZero() {
		config.MaxAmount = decimal.RequireFromString(DefaultMaxAmount)
	}
	return &service{
		db:      db,
		repos:   repos,
		fees:    fees,
		refs:    refs,
		cache:   cacheSvc,
		logger:  logger,
		metrics: metrics,
		config:  config,
	}
}

// Atomic runs fn in one database transaction. Version conflicts and
// lost idempotency races roll the transaction back and re-run the
// closure from scratch, up to the configured retry budget.
func (s *service) Atomic(ctx context.Context, fn func(op *Scope) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordRetry("atomic")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.config.RetryBackoff):
			}
		}

		var scope *Scope
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			scope = newScope(tx, s.repos.WithTx(tx), s.refs, time.Now().UTC())
			if err := fn(scope); err != nil {
				return err
			}
			return scope.flush()
		})
		if err == nil {
			s.invalidateWalletCaches(ctx, scope)
			return nil
		}
		if !isRetryableConflict(err) {
			return err
		}
		lastErr = err
		s.logger.Warnw("atomic scope conflicted, retrying", "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("%w: %v", ErrConcurrentModification, lastErr)
}

func (s *service) invalidateWalletCaches(ctx context.Context, scope *Scope) {
	if s.cache == nil || scope == nil {
		return
	}
	for _, w := range scope.TouchedWallets() {
		if err := s.cache.InvalidateWallet(ctx, w.UserID, w.Currency); err != nil {
			s.logger.Warnw("failed to invalidate wallet cache", "wallet_id", w.ID, "error", err)
		}
	}
}

// isRetryableConflict classifies errors worth re-running the closure
// for: optimistic version losses, idempotency claim races, and the
// database's own serialization failures.
func isRetryableConflict(err error) bool {
	if errors.Is(err, repositories.ErrWalletConflict) || errors.Is(err, errIdempotencyRace) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}

// movement wraps the shared skeleton of every money operation:
// idempotent replay, the build closure, the claim, metrics and the
// completion log line.
func (s *service) movement(ctx context.Context, opName string, callerID uint, idemKey string, build func(op *Scope) (*models.Transaction, error)) (*models.Transaction, error) {
	start := time.Now()
	var (
		result   *models.Transaction
		replayed bool
	)
	err := s.Atomic(ctx, func(op *Scope) error {
		result, replayed = nil, false
		if idemKey != "" {
			prior, ok, err := op.ReplayIdempotent(callerID, idemKey)
			if err != nil {
				return err
			}
			if ok {
				result, replayed = prior, true
				return nil
			}
		}
		txn, err := build(op)
		if err != nil {
			return err
		}
		if idemKey != "" {
			if err := op.ClaimIdempotency(callerID, idemKey, txn.ID); err != nil {
				return err
			}
		}
		result = txn
		return nil
	})
	s.metrics.RecordOperationDuration(opName, time.Since(start))
	if err != nil {
		s.metrics.RecordOperationResult(opName, "error")
		return nil, err
	}
	s.metrics.RecordOperationResult(opName, "success")
	if !replayed {
		s.metrics.RecordTransactionVolume(result.Type, result.Amount.InexactFloat64())
	}
	s.logger.Infow("movement complete",
		"op", opName,
		"reference", result.ReferenceID,
		"type", result.Type,
		"status", result.Status,
		"amount", result.Amount,
		"currency", result.Currency,
		"replayed", replayed,
	)
	return result, nil
}

func (s *service) Transfer(ctx context.Context, p TransferParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(p.Currency)

	return s.movement(ctx, "transfer", p.SenderID, p.IdempotencyKey, func(op *Scope) (*models.Transaction, error) {
		feeAmount := s.fees.Calculate(models.TransactionTypeTransferOut, p.Amount)
		net := p.Amount.Sub(feeAmount)

		senderWID, err := op.WalletIDFor(p.SenderID, currency)
		if err != nil {
			return nil, err
		}
		receiverWID, err := op.EnsureWalletID(p.ReceiverID, currency)
		if err != nil {
			return nil, err
		}
		if senderWID == receiverWID {
			return nil, ErrSelfTransfer
		}

		wallets, err := op.LockWallets(senderWID, receiverWID)
		if err != nil {
			return nil, err
		}
		sender, receiver := wallets[senderWID], wallets[receiverWID]
		if err := requireActive(sender, receiver); err != nil {
			return nil, err
		}
		if sender.Currency != receiver.Currency {
			return nil, ErrCurrencyMismatch
		}
		if sender.AvailableBalance.LessThan(p.Amount) {
			return nil, ErrInsufficientFunds
		}

		txn := &models.Transaction{
			Type:             models.TransactionTypeTransferOut,
			Status:           models.TransactionStatusProcessing,
			SenderID:         uintPtr(p.SenderID),
			ReceiverID:       uintPtr(p.ReceiverID),
			SenderWalletID:   uintPtr(senderWID),
			ReceiverWalletID: uintPtr(receiverWID),
			Amount:           p.Amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         currency,
			Description:      p.Description,
			Metadata:         p.Metadata,
		}
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Debit(sender, BucketAvailable, p.Amount, txn, "transfer out"); err != nil {
			return nil, err
		}
		if err := op.Credit(receiver, net, txn, "transfer in"); err != nil {
			return nil, err
		}
		return s.complete(op, txn)
	})
}

func (s *service) Deposit(ctx context.Context, p DepositParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(p.Currency)

	return s.movement(ctx, "deposit", p.UserID, p.IdempotencyKey, func(op *Scope) (*models.Transaction, error) {
		feeAmount := s.fees.Calculate(models.TransactionTypeDeposit, p.Amount)
		net := p.Amount.Sub(feeAmount)

		walletID, err := op.EnsureWalletID(p.UserID, currency)
		if err != nil {
			return nil, err
		}
		wallet, err := op.LockWallet(walletID)
		if err != nil {
			return nil, err
		}
		if err := requireActive(wallet); err != nil {
			return nil, err
		}

		txn := &models.Transaction{
			Type:             models.TransactionTypeDeposit,
			Status:           models.TransactionStatusProcessing,
			ReceiverID:       uintPtr(p.UserID),
			ReceiverWalletID: uintPtr(walletID),
			Amount:           p.Amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         currency,
			Description:      p.Description,
			Metadata:         p.Metadata,
		}
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Credit(wallet, net, txn, "deposit"); err != nil {
			return nil, err
		}
		return s.complete(op, txn)
	})
}

func (s *service) Pay(ctx context.Context, p PaymentParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(p.Currency)

	switch p.Source.Kind {
	case SourceWallet, "":
	case SourceCard:
		if p.Source.CardToken == "" {
			return nil, ErrUnsupportedSource
		}
	default:
		return nil, ErrUnsupportedSource
	}

	return s.movement(ctx, "payment", p.PayerID, p.IdempotencyKey, func(op *Scope) (*models.Transaction, error) {
		feeAmount := s.fees.Calculate(models.TransactionTypePayment, p.Amount)
		net := p.Amount.Sub(feeAmount)

		payeeWID, err := op.EnsureWalletID(p.PayeeID, currency)
		if err != nil {
			return nil, err
		}

		txn := &models.Transaction{
			Type:             models.TransactionTypePayment,
			Status:           models.TransactionStatusProcessing,
			SenderID:         uintPtr(p.PayerID),
			ReceiverID:       uintPtr(p.PayeeID),
			ReceiverWalletID: uintPtr(payeeWID),
			Amount:           p.Amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         currency,
			Description:      p.Description,
			Metadata:         p.Metadata,
		}

		if p.Source.Kind == SourceCard {
			payee, err := op.LockWallet(payeeWID)
			if err != nil {
				return nil, err
			}
			if err := requireActive(payee); err != nil {
				return nil, err
			}
			txn.Metadata = mergeMetadata(txn.Metadata, models.JSON{
				"source":     "card",
				"card_token": p.Source.CardToken,
			})
			if err := op.CreateTransaction(txn); err != nil {
				return nil, err
			}
			if err := op.Credit(payee, net, txn, "card payment"); err != nil {
				return nil, err
			}
			return s.complete(op, txn)
		}

		payerWID, err := op.WalletIDFor(p.PayerID, currency)
		if err != nil {
			return nil, err
		}
		if payerWID == payeeWID {
			return nil, ErrSelfTransfer
		}
		wallets, err := op.LockWallets(payerWID, payeeWID)
		if err != nil {
			return nil, err
		}
		payer, payee := wallets[payerWID], wallets[payeeWID]
		if err := requireActive(payer, payee); err != nil {
			return nil, err
		}
		if payer.Currency != payee.Currency {
			return nil, ErrCurrencyMismatch
		}
		if payer.AvailableBalance.LessThan(p.Amount) {
			return nil, ErrInsufficientFunds
		}

		txn.SenderWalletID = uintPtr(payerWID)
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Debit(payer, BucketAvailable, p.Amount, txn, "payment"); err != nil {
			return nil, err
		}
		if err := op.Credit(payee, net, txn, "payment received"); err != nil {
			return nil, err
		}
		return s.complete(op, txn)
	})
}

func (s *service) Convert(ctx context.Context, p ConvertParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	from := normalizeCurrency(p.FromCurrency)
	to := normalizeCurrency(p.ToCurrency)
	if from == to {
		return nil, ErrCurrencyMismatch
	}
	rate, err := s.fees.ConversionRate(from, to)
	if err != nil {
		return nil, err
	}

	return s.movement(ctx, "conversion", p.UserID, p.IdempotencyKey, func(op *Scope) (*models.Transaction, error) {
		feeAmount := s.fees.Calculate(models.TransactionTypeConversion, p.Amount)
		converted := p.Amount.Sub(feeAmount).Mul(rate).Round(2)
		if !converted.IsPositive() {
			return nil, ErrInvalidAmount
		}

		sourceWID, err := op.WalletIDFor(p.UserID, from)
		if err != nil {
			return nil, err
		}
		targetWID, err := op.EnsureWalletID(p.UserID, to)
		if err != nil {
			return nil, err
		}
		wallets, err := op.LockWallets(sourceWID, targetWID)
		if err != nil {
			return nil, err
		}
		source, target := wallets[sourceWID], wallets[targetWID]
		if err := requireActive(source, target); err != nil {
			return nil, err
		}
		if source.AvailableBalance.LessThan(p.Amount) {
			return nil, ErrInsufficientFunds
		}

		txn := &models.Transaction{
			Type:             models.TransactionTypeConversion,
			Status:           models.TransactionStatusProcessing,
			SenderID:         uintPtr(p.UserID),
			ReceiverID:       uintPtr(p.UserID),
			SenderWalletID:   uintPtr(sourceWID),
			ReceiverWalletID: uintPtr(targetWID),
			Amount:           p.Amount,
			Fee:              feeAmount,
			NetAmount:        converted,
			Currency:         from,
			Description:      fmt.Sprintf("convert %s to %s", from, to),
			Metadata: models.JSON{
				"target_currency": to,
				"rate":            rate.String(),
			},
		}
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Debit(source, BucketAvailable, p.Amount, txn, "currency conversion"); err != nil {
			return nil, err
		}
		if err := op.Credit(target, converted, txn, "currency conversion"); err != nil {
			return nil, err
		}
		return s.complete(op, txn)
	})
}

func (s *service) InitiateWithdrawal(ctx context.Context, p WithdrawParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	return s.initiateHold(ctx, "withdrawal", models.TransactionTypeWithdrawal, p.UserID, p.Amount, normalizeCurrency(p.Currency), p.Description, p.IdempotencyKey, p.Metadata)
}

func (s *service) InitiatePayout(ctx context.Context, p PayoutParams) (*models.Transaction, error) {
	if err := s.validateAmount(p.Amount); err != nil {
		return nil, err
	}
	return s.initiateHold(ctx, "payout", models.TransactionTypePayout, p.MerchantID, p.Amount, normalizeCurrency(p.Currency), p.Description, p.IdempotencyKey, p.Metadata)
}

// initiateHold starts a two-phase outflow: the gross amount moves from
// available into pending and the transaction stays PENDING until an
// operator settles or fails it.
func (s *service) initiateHold(ctx context.Context, opName, txType string, userID uint, amount decimal.Decimal, currency, description, idemKey string, metadata models.JSON) (*models.Transaction, error) {
	return s.movement(ctx, opName, userID, idemKey, func(op *Scope) (*models.Transaction, error) {
		feeAmount := s.fees.Calculate(txType, amount)
		gross := amount.Add(feeAmount)

		walletID, err := op.WalletIDFor(userID, currency)
		if err != nil {
			return nil, err
		}
		wallet, err := op.LockWallet(walletID)
		if err != nil {
			return nil, err
		}
		if err := requireActive(wallet); err != nil {
			return nil, err
		}
		if wallet.AvailableBalance.LessThan(gross) {
			return nil, ErrInsufficientFunds
		}

		txn := &models.Transaction{
			Type:           txType,
			Status:         models.TransactionStatusPending,
			SenderID:       uintPtr(userID),
			SenderWalletID: uintPtr(walletID),
			Amount:         amount,
			Fee:            feeAmount,
			NetAmount:      amount,
			Currency:       currency,
			Description:    description,
			Metadata:       metadata,
		}
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Reclassify(wallet, BucketAvailable, BucketPending, gross); err != nil {
			return nil, err
		}
		return txn, nil
	})
}

// Settle finalizes a pending withdrawal or payout: the held gross
// leaves the wallet for good and the debit entry is written.
func (s *service) Settle(ctx context.Context, transactionID uint) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.Atomic(ctx, func(op *Scope) error {
		txn, err := s.lockSettleable(op, transactionID)
		if err != nil {
			return err
		}
		wallet, err := op.LockWallet(*txn.SenderWalletID)
		if err != nil {
			return err
		}
		gross := txn.Amount.Add(txn.Fee)
		if err := op.Debit(wallet, BucketPending, gross, txn, strings.ToLower(txn.Type)+" settled"); err != nil {
			return err
		}
		now := op.Now()
		txn.Status = models.TransactionStatusCompleted
		txn.ProcessedAt = &now
		if err := op.UpdateTransaction(txn); err != nil {
			return err
		}
		if err := op.Emit("transaction", txn.ReferenceID, models.EventTransactionCompleted, eventPayload(txn)); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("hold settled", "reference", result.ReferenceID, "type", result.Type)
	return result, nil
}

// Fail abandons a pending withdrawal or payout and releases its hold
// back to available. The release changes no total, so no entry is
// written.
func (s *service) Fail(ctx context.Context, transactionID uint, reason string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.Atomic(ctx, func(op *Scope) error {
		txn, err := s.lockSettleable(op, transactionID)
		if err != nil {
			return err
		}
		wallet, err := op.LockWallet(*txn.SenderWalletID)
		if err != nil {
			return err
		}
		gross := txn.Amount.Add(txn.Fee)
		if err := op.Reclassify(wallet, BucketPending, BucketAvailable, gross); err != nil {
			return err
		}
		txn.Status = models.TransactionStatusFailed
		txn.FailureReason = reason
		if err := op.UpdateTransaction(txn); err != nil {
			return err
		}
		if err := op.Emit("transaction", txn.ReferenceID, models.EventTransactionFailed, eventPayload(txn)); err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("hold released", "reference", result.ReferenceID, "type", result.Type, "reason", reason)
	return result, nil
}

func (s *service) lockSettleable(op *Scope, transactionID uint) (*models.Transaction, error) {
	txn, err := op.LockTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TransactionTypeWithdrawal && txn.Type != models.TransactionTypePayout {
		return nil, ErrNotSettleable
	}
	if txn.Status != models.TransactionStatusPending && txn.Status != models.TransactionStatusProcessing {
		return nil, ErrNotSettleable
	}
	if txn.SenderWalletID == nil {
		return nil, fmt.Errorf("transaction %d has no source wallet", txn.ID)
	}
	return txn, nil
}

// Refund reverses value from a completed transfer or payment back to
// the sender, capped at the net amount not yet refunded. A zero
// amount refunds the whole remainder. Fees are not returned.
func (s *service) Refund(ctx context.Context, p RefundParams) (*models.Transaction, error) {
	if !p.Amount.IsZero() {
		if err := s.validateAmount(p.Amount); err != nil {
			return nil, err
		}
	}

	return s.movement(ctx, "refund", p.RequestedBy, p.IdempotencyKey, func(op *Scope) (*models.Transaction, error) {
		orig, err := op.LockTransaction(p.TransactionID)
		if err != nil {
			return nil, err
		}
		if orig.Type != models.TransactionTypeTransferOut && orig.Type != models.TransactionTypePayment {
			return nil, ErrNotRefundable
		}
		if orig.OrderID != nil {
			// Order money is refunded through the order flow so the
			// order's captured and refunded totals stay in step.
			return nil, ErrNotRefundable
		}
		if orig.Status == models.TransactionStatusReversed {
			return nil, ErrAlreadyRefunded
		}
		if orig.Status != models.TransactionStatusCompleted {
			return nil, ErrNotRefundable
		}

		refunded, err := op.SumRefunded(orig.ID)
		if err != nil {
			return nil, err
		}
		remaining := orig.NetAmount.Sub(refunded)
		if !remaining.IsPositive() {
			return nil, ErrAlreadyRefunded
		}
		// A request for more than is left collapses to the remainder,
		// so a full-amount retry after a partial refund still closes
		// the transaction out.
		amount := p.Amount
		if amount.IsZero() || amount.GreaterThan(remaining) {
			amount = remaining
		}

		if orig.ReceiverWalletID == nil {
			return nil, ErrNotRefundable
		}
		ids := []uint{*orig.ReceiverWalletID}
		if orig.SenderWalletID != nil {
			ids = append(ids, *orig.SenderWalletID)
		}
		wallets, err := op.LockWallets(ids...)
		if err != nil {
			return nil, err
		}
		holder := wallets[*orig.ReceiverWalletID]
		if err := requireActive(holder); err != nil {
			return nil, err
		}

		txn := &models.Transaction{
			Type:                  models.TransactionTypeRefund,
			Status:                models.TransactionStatusProcessing,
			SenderID:              orig.ReceiverID,
			ReceiverID:            orig.SenderID,
			SenderWalletID:        orig.ReceiverWalletID,
			ReceiverWalletID:      orig.SenderWalletID,
			Amount:                amount,
			Fee:                   decimal.Zero,
			NetAmount:             amount,
			Currency:              orig.Currency,
			Description:           p.Reason,
			OriginalTransactionID: uintPtr(orig.ID),
			Metadata: models.JSON{
				"original_reference": orig.ReferenceID,
			},
		}
		if orig.SenderWalletID == nil {
			// Card-funded payment: the money leaves the platform back
			// toward the card, so only the holder's leg is recorded.
			txn.Metadata["destination"] = "card"
		}
		if err := op.CreateTransaction(txn); err != nil {
			return nil, err
		}
		if err := op.Debit(holder, BucketAvailable, amount, txn, "refund"); err != nil {
			return nil, err
		}
		if orig.SenderWalletID != nil {
			origin := wallets[*orig.SenderWalletID]
			if err := requireActive(origin); err != nil {
				return nil, err
			}
			if err := op.Credit(origin, amount, txn, "refund received"); err != nil {
				return nil, err
			}
		}

		if refunded.Add(amount).Equal(orig.NetAmount) {
			orig.Status = models.TransactionStatusReversed
			if err := op.UpdateTransaction(orig); err != nil {
				return nil, err
			}
			if err := op.Emit("transaction", orig.ReferenceID, models.EventTransactionReversed, eventPayload(orig)); err != nil {
				return nil, err
			}
		}
		return s.complete(op, txn)
	})
}

// Reconcile replays a wallet's ledger entries against its stored
// balance. Plain reads; holding locks here would let an audit stall
// live traffic.
func (s *service) Reconcile(ctx context.Context, walletID uint) (*ReconcileReport, error) {
	wallet, err := s.repos.Wallets.GetByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	replayed, err := s.repos.Ledger.ReplayBalance(walletID)
	if err != nil {
		return nil, err
	}
	count, err := s.repos.Ledger.CountForWallet(walletID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{
		WalletID:   walletID,
		Balance:    wallet.Balance,
		Replayed:   replayed,
		EntryCount: count,
		Consistent: wallet.Balance.Equal(replayed) && wallet.Consistent(),
	}
	if !report.Consistent {
		s.logger.Errorw("wallet failed reconciliation",
			"wallet_id", walletID,
			"balance", wallet.Balance,
			"replayed", replayed,
		)
	}
	return report, nil
}

// complete marks a transaction COMPLETED, stamps ProcessedAt and
// emits the completion event.
func (s *service) complete(op *Scope, txn *models.Transaction) (*models.Transaction, error) {
	now := op.Now()
	txn.Status = models.TransactionStatusCompleted
	txn.ProcessedAt = &now
	if err := op.UpdateTransaction(txn); err != nil {
		return nil, err
	}
	if err := op.Emit("transaction", txn.ReferenceID, models.EventTransactionCompleted, eventPayload(txn)); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(s.config.MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

func requireActive(wallets ...*models.Wallet) error {
	for _, w := range wallets {
		if !w.IsActive {
			return ErrWalletInactive
		}
	}
	return nil
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func eventPayload(txn *models.Transaction) models.JSON {
	return models.JSON{
		"reference": txn.ReferenceID,
		"type":      txn.Type,
		"status":    txn.Status,
		"amount":    txn.Amount.String(),
		"currency":  txn.Currency,
	}
}

func mergeMetadata(base, extra models.JSON) models.JSON {
	if base == nil {
		base = models.JSON{}
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func uintPtr(v uint) *uint { return &v }
