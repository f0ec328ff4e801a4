package order

import (
	"context"
	"errors"
	"strings"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type service struct {
	repos  *repositories.Registry
	ledger ledger.Service
	fees   *fee.Engine
	refs   *reference.Generator
	logger *zap.SugaredLogger
}

// NewService creates the order service.
func NewService(repos *repositories.Registry, ledgerSvc ledger.Service, fees *fee.Engine, refs *reference.Generator, logger *zap.SugaredLogger) Service {
	if repos == nil {
		panic("order: repository registry is required")
	}
	if ledgerSvc == nil {
		panic("order: ledger service is required")
	}
	if fees == nil {
		panic("order: fee engine is required")
	}
	if refs == nil {
		panic("order: reference generator is required")
	}
	if logger == nil {
		panic("order: logger is required")
	}
	return &service{repos: repos, ledger: ledgerSvc, fees: fees, refs: refs, logger: logger}
}

// Authorize reserves the payer's funds against a new order. No money
// moves and no ledger entry is written; the total is reclassified from
// available into reserved until capture or void.
func (s *service) Authorize(ctx context.Context, p AuthorizeParams) (*models.Order, error) {
	if err := validAmount(p.Amount); err != nil {
		return nil, err
	}
	currency := normalizeCurrency(p.Currency)

	var result *models.Order
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		walletID, err := op.WalletIDFor(p.PayerID, currency)
		if err != nil {
			return err
		}
		w, err := op.LockWallet(walletID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return ledger.ErrWalletInactive
		}
		if w.AvailableBalance.LessThan(p.Amount) {
			return ledger.ErrInsufficientFunds
		}
		if err := op.Reclassify(w, ledger.BucketAvailable, ledger.BucketReserved, p.Amount); err != nil {
			return err
		}

		ord := &models.Order{
			ReferenceID: s.refs.Generate(reference.CategoryOrder),
			MerchantID:  p.MerchantID,
			PayerID:     p.PayerID,
			Currency:    currency,
			Total:       p.Amount,
			Status:      models.OrderStatusAuthorized,
			Description: p.Description,
		}
		if err := op.Orders().Create(ord); err != nil {
			return err
		}
		result = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order authorized",
		"order_ref", result.ReferenceID,
		"merchant_id", result.MerchantID,
		"payer_id", result.PayerID,
		"total", result.Total,
	)
	return result, nil
}

// Capture draws on the order's authorization: the captured amount
// leaves the payer's reserved bucket and the merchant receives it net
// of the payment fee.
func (s *service) Capture(ctx context.Context, p CaptureParams) (*models.Order, *models.Transaction, error) {
	if !p.Amount.IsZero() {
		if err := validAmount(p.Amount); err != nil {
			return nil, nil, err
		}
	}

	var (
		resultOrder *models.Order
		resultTxn   *models.Transaction
	)
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		if p.IdempotencyKey != "" {
			prior, ok, err := op.ReplayIdempotent(p.MerchantID, p.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				ord, err := s.orderOf(op, prior)
				if err != nil {
					return err
				}
				resultOrder, resultTxn = ord, prior
				return nil
			}
		}

		ord, err := s.lockOwned(op, p.OrderID, p.MerchantID)
		if err != nil {
			return err
		}
		if ord.Status != models.OrderStatusAuthorized && ord.Status != models.OrderStatusPartiallyCaptured {
			return ErrNotCapturable
		}
		remaining := ord.Remaining()
		amount := p.Amount
		if amount.IsZero() {
			amount = remaining
		}
		if amount.GreaterThan(remaining) {
			return ErrCaptureExceedsAuth
		}

		payerWID, err := op.WalletIDFor(ord.PayerID, ord.Currency)
		if err != nil {
			return err
		}
		merchantWID, err := op.EnsureWalletID(ord.MerchantID, ord.Currency)
		if err != nil {
			return err
		}
		wallets, err := op.LockWallets(payerWID, merchantWID)
		if err != nil {
			return err
		}
		payer, merchant := wallets[payerWID], wallets[merchantWID]
		if !merchant.IsActive {
			return ledger.ErrWalletInactive
		}

		feeAmount := s.fees.Calculate(models.TransactionTypePayment, amount)
		net := amount.Sub(feeAmount)
		now := op.Now()

		txn := &models.Transaction{
			Type:             models.TransactionTypePayment,
			Status:           models.TransactionStatusCompleted,
			SenderID:         &ord.PayerID,
			ReceiverID:       &ord.MerchantID,
			SenderWalletID:   &payerWID,
			ReceiverWalletID: &merchantWID,
			Amount:           amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         ord.Currency,
			Description:      ord.Description,
			OrderID:          &ord.ID,
			ProcessedAt:      &now,
			Metadata:         models.JSON{"order_reference": ord.ReferenceID},
		}
		if err := op.CreateTransaction(txn); err != nil {
			return err
		}
		// The capture consumes the hold made at authorization, even if
		// the payer's wallet was frozen in the meantime.
		if err := op.Debit(payer, ledger.BucketReserved, amount, txn, "order capture"); err != nil {
			return err
		}
		if err := op.Credit(merchant, net, txn, "order capture"); err != nil {
			return err
		}

		ord.CapturedAmount = ord.CapturedAmount.Add(amount)
		if ord.CapturedAmount.Equal(ord.Total) {
			ord.Status = models.OrderStatusCaptured
		} else {
			ord.Status = models.OrderStatusPartiallyCaptured
		}
		if err := op.Orders().Update(ord); err != nil {
			return err
		}
		if err := op.Emit("order", ord.ReferenceID, models.EventOrderCaptured, models.JSON{
			"order_reference": ord.ReferenceID,
			"transaction":     txn.ReferenceID,
			"amount":          amount.String(),
			"currency":        ord.Currency,
			"status":          ord.Status,
		}); err != nil {
			return err
		}

		if p.IdempotencyKey != "" {
			if err := op.ClaimIdempotency(p.MerchantID, p.IdempotencyKey, txn.ID); err != nil {
				return err
			}
		}
		resultOrder, resultTxn = ord, txn
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Infow("order captured",
		"order_ref", resultOrder.ReferenceID,
		"amount", resultTxn.Amount,
		"order_status", resultOrder.Status,
	)
	return resultOrder, resultTxn, nil
}

// Void releases whatever authorization remains. Captures already made
// stand; an order with none becomes VOIDED, otherwise its capture
// window closes as CAPTURED.
func (s *service) Void(ctx context.Context, orderID, merchantID uint) (*models.Order, error) {
	var result *models.Order
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		ord, err := s.lockOwned(op, orderID, merchantID)
		if err != nil {
			return err
		}
		if ord.Status != models.OrderStatusAuthorized && ord.Status != models.OrderStatusPartiallyCaptured {
			return ErrNotVoidable
		}

		released := ord.Remaining()
		if released.IsPositive() {
			walletID, err := op.WalletIDFor(ord.PayerID, ord.Currency)
			if err != nil {
				return err
			}
			w, err := op.LockWallet(walletID)
			if err != nil {
				return err
			}
			if err := op.Reclassify(w, ledger.BucketReserved, ledger.BucketAvailable, released); err != nil {
				return err
			}
		}

		if ord.CapturedAmount.IsZero() {
			ord.Status = models.OrderStatusVoided
		} else {
			ord.Status = models.OrderStatusCaptured
		}
		if err := op.Orders().Update(ord); err != nil {
			return err
		}
		if err := op.Emit("order", ord.ReferenceID, models.EventOrderVoided, models.JSON{
			"order_reference": ord.ReferenceID,
			"released":        released.String(),
			"currency":        ord.Currency,
			"status":          ord.Status,
		}); err != nil {
			return err
		}
		result = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("order voided", "order_ref", result.ReferenceID, "order_status", result.Status)
	return result, nil
}

// Refund returns captured money from the merchant to the payer. The
// merchant bears the original fee, so a full refund makes the payer
// whole while the merchant is out the fee.
func (s *service) Refund(ctx context.Context, p RefundParams) (*models.Order, *models.Transaction, error) {
	if !p.Amount.IsZero() {
		if err := validAmount(p.Amount); err != nil {
			return nil, nil, err
		}
	}

	var (
		resultOrder *models.Order
		resultTxn   *models.Transaction
	)
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		if p.IdempotencyKey != "" {
			prior, ok, err := op.ReplayIdempotent(p.MerchantID, p.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				ord, err := s.orderOf(op, prior)
				if err != nil {
					return err
				}
				resultOrder, resultTxn = ord, prior
				return nil
			}
		}

		ord, err := s.lockOwned(op, p.OrderID, p.MerchantID)
		if err != nil {
			return err
		}
		// Refunds wait until the capture window has closed; a merchant
		// holding an open authorization voids it first.
		switch ord.Status {
		case models.OrderStatusCaptured, models.OrderStatusPartiallyRefunded:
		default:
			return ErrNotRefundable
		}
		refundable := ord.CapturedAmount.Sub(ord.RefundedAmount)
		if !refundable.IsPositive() {
			return ErrNotRefundable
		}
		// Over-asking collapses to the captured remainder, the same
		// cap the standalone refund applies.
		amount := p.Amount
		if amount.IsZero() || amount.GreaterThan(refundable) {
			amount = refundable
		}

		merchantWID, err := op.WalletIDFor(ord.MerchantID, ord.Currency)
		if err != nil {
			return err
		}
		payerWID, err := op.WalletIDFor(ord.PayerID, ord.Currency)
		if err != nil {
			return err
		}
		wallets, err := op.LockWallets(merchantWID, payerWID)
		if err != nil {
			return err
		}
		merchant, payer := wallets[merchantWID], wallets[payerWID]

		now := op.Now()
		txn := &models.Transaction{
			Type:             models.TransactionTypeRefund,
			Status:           models.TransactionStatusCompleted,
			SenderID:         &ord.MerchantID,
			ReceiverID:       &ord.PayerID,
			SenderWalletID:   &merchantWID,
			ReceiverWalletID: &payerWID,
			Amount:           amount,
			Fee:              decimal.Zero,
			NetAmount:        amount,
			Currency:         ord.Currency,
			Description:      p.Reason,
			OrderID:          &ord.ID,
			ProcessedAt:      &now,
			Metadata:         models.JSON{"order_reference": ord.ReferenceID},
		}
		if err := op.CreateTransaction(txn); err != nil {
			return err
		}
		if err := op.Debit(merchant, ledger.BucketAvailable, amount, txn, "order refund"); err != nil {
			return err
		}
		if err := op.Credit(payer, amount, txn, "order refund"); err != nil {
			return err
		}

		ord.RefundedAmount = ord.RefundedAmount.Add(amount)
		if ord.RefundedAmount.Equal(ord.CapturedAmount) {
			ord.Status = models.OrderStatusRefunded
		} else {
			ord.Status = models.OrderStatusPartiallyRefunded
		}
		if err := op.Orders().Update(ord); err != nil {
			return err
		}
		if err := op.Emit("order", ord.ReferenceID, models.EventOrderRefunded, models.JSON{
			"order_reference": ord.ReferenceID,
			"transaction":     txn.ReferenceID,
			"amount":          amount.String(),
			"currency":        ord.Currency,
			"status":          ord.Status,
		}); err != nil {
			return err
		}

		if p.IdempotencyKey != "" {
			if err := op.ClaimIdempotency(p.MerchantID, p.IdempotencyKey, txn.ID); err != nil {
				return err
			}
		}
		resultOrder, resultTxn = ord, txn
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Infow("order refunded",
		"order_ref", resultOrder.ReferenceID,
		"amount", resultTxn.Amount,
		"order_status", resultOrder.Status,
	)
	return resultOrder, resultTxn, nil
}

func (s *service) Get(ctx context.Context, orderID, callerID uint) (*models.Order, error) {
	ord, err := s.repos.Orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if ord.MerchantID != callerID && ord.PayerID != callerID {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *service) ListForMerchant(ctx context.Context, merchantID uint, limit, offset int) ([]models.Order, error) {
	return s.repos.Orders.ListByMerchant(ctx, merchantID, limit, offset)
}

func (s *service) ListForPayer(ctx context.Context, payerID uint, limit, offset int) ([]models.Order, error) {
	return s.repos.Orders.ListByPayer(ctx, payerID, limit, offset)
}

func (s *service) lockOwned(op *ledger.Scope, orderID, merchantID uint) (*models.Order, error) {
	ord, err := op.Orders().GetForUpdate(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if ord.MerchantID != merchantID {
		return nil, ErrNotMerchant
	}
	return ord, nil
}

func (s *service) orderOf(op *ledger.Scope, txn *models.Transaction) (*models.Order, error) {
	if txn.OrderID == nil {
		return nil, ErrOrderNotFound
	}
	return op.Orders().GetByID(*txn.OrderID)
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return "USD"
	}
	return c
}
