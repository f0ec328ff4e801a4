package payment

import (
	"context"
	"errors"

	appErrors "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/qrcode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type service struct {
	ledger ledger.Service
	fees   *fee.Engine
	logger *zap.SugaredLogger
}

// NewService creates the payment service.
func NewService(ledgerSvc ledger.Service, fees *fee.Engine, logger *zap.SugaredLogger) Service {
	if ledgerSvc == nil {
		panic("payment: ledger service is required")
	}
	if fees == nil {
		panic("payment: fee engine is required")
	}
	if logger == nil {
		panic("payment: logger is required")
	}
	return &service{ledger: ledgerSvc, fees: fees, logger: logger}
}

func (s *service) Pay(ctx context.Context, p ledger.PaymentParams) (*models.Transaction, error) {
	return s.ledger.Pay(ctx, p)
}

// PayByCode locks the scanned code, validates it against the payer,
// moves the money and advances the code's usage count, all in one
// atomic scope. A code can therefore never be spent past its use
// limit, no matter how many payers scan it at once.
func (s *service) PayByCode(ctx context.Context, p CodePaymentParams) (*models.Transaction, error) {
	switch p.Source.Kind {
	case ledger.SourceWallet, "":
	case ledger.SourceCard:
		if p.Source.CardToken == "" {
			return nil, ledger.ErrUnsupportedSource
		}
	default:
		return nil, ledger.ErrUnsupportedSource
	}

	var result *models.Transaction
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		if p.IdempotencyKey != "" {
			prior, ok, err := op.ReplayIdempotent(p.PayerID, p.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				result = prior
				return nil
			}
		}

		qr, err := op.QRCodes().GetByCodeForUpdate(p.Code)
		if err != nil {
			if errors.Is(err, repositories.ErrQRCodeNotFound) {
				return appErrors.ErrInvalidQR
			}
			return err
		}
		if err := qrcode.Usable(qr, op.Now()); err != nil {
			return err
		}
		if !qr.AllowsPayer(p.PayerID) {
			return appErrors.ErrQRPayerNotAllowed
		}
		if qr.UserID == p.PayerID {
			return ledger.ErrSelfTransfer
		}

		amount, err := resolveAmount(qr, p.Amount)
		if err != nil {
			return err
		}

		feeAmount := s.fees.Calculate(models.TransactionTypePayment, amount)
		net := amount.Sub(feeAmount)

		payeeWID, err := op.EnsureWalletID(qr.UserID, qr.Currency)
		if err != nil {
			return err
		}

		txn := &models.Transaction{
			Type:             models.TransactionTypePayment,
			Status:           models.TransactionStatusProcessing,
			SenderID:         &p.PayerID,
			ReceiverID:       &qr.UserID,
			ReceiverWalletID: &payeeWID,
			Amount:           amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         qr.Currency,
			Description:      p.Description,
			Metadata:         models.JSON{"qr_id": qr.ID, "qr_type": qr.Type},
		}

		if p.Source.Kind == ledger.SourceCard {
			payee, err := op.LockWallet(payeeWID)
			if err != nil {
				return err
			}
			if !payee.IsActive {
				return ledger.ErrWalletInactive
			}
			txn.Metadata["source"] = "card"
			txn.Metadata["card_token"] = p.Source.CardToken
			if err := op.CreateTransaction(txn); err != nil {
				return err
			}
			if err := op.Credit(payee, net, txn, "qr card payment"); err != nil {
				return err
			}
		} else {
			payerWID, err := op.WalletIDFor(p.PayerID, qr.Currency)
			if err != nil {
				return err
			}
			wallets, err := op.LockWallets(payerWID, payeeWID)
			if err != nil {
				return err
			}
			payer, payee := wallets[payerWID], wallets[payeeWID]
			if !payer.IsActive || !payee.IsActive {
				return ledger.ErrWalletInactive
			}
			if payer.AvailableBalance.LessThan(amount) {
				return ledger.ErrInsufficientFunds
			}
			txn.SenderWalletID = &payerWID
			if err := op.CreateTransaction(txn); err != nil {
				return err
			}
			if err := op.Debit(payer, ledger.BucketAvailable, amount, txn, "qr payment"); err != nil {
				return err
			}
			if err := op.Credit(payee, net, txn, "qr payment received"); err != nil {
				return err
			}
		}

		now := op.Now()
		txn.Status = models.TransactionStatusCompleted
		txn.ProcessedAt = &now
		if err := op.UpdateTransaction(txn); err != nil {
			return err
		}
		if err := op.Emit("transaction", txn.ReferenceID, models.EventTransactionCompleted, models.JSON{
			"reference": txn.ReferenceID,
			"type":      txn.Type,
			"status":    txn.Status,
			"amount":    txn.Amount.String(),
			"currency":  txn.Currency,
		}); err != nil {
			return err
		}

		qr.UsageCount++
		if qr.Exhausted() {
			qr.Status = models.QRStatusExpired
		}
		if err := op.QRCodes().Update(qr); err != nil {
			return err
		}

		if p.IdempotencyKey != "" {
			if err := op.ClaimIdempotency(p.PayerID, p.IdempotencyKey, txn.ID); err != nil {
				return err
			}
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("qr payment complete",
		"reference", result.ReferenceID,
		"payer_id", p.PayerID,
		"amount", result.Amount,
	)
	return result, nil
}

// resolveAmount reconciles the payer's amount with the code's. Amount
// codes dictate the amount; receive codes leave it to the payer.
func resolveAmount(qr *models.QRCode, chosen decimal.Decimal) (decimal.Decimal, error) {
	if qr.Type == models.QRTypeAmount && qr.Amount != nil {
		if !chosen.IsZero() && !chosen.Equal(*qr.Amount) {
			return decimal.Zero, ErrAmountMismatch
		}
		return *qr.Amount, nil
	}
	if !chosen.IsPositive() || !chosen.Equal(chosen.Round(2)) {
		if chosen.IsZero() {
			return decimal.Zero, ErrAmountRequired
		}
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	return chosen, nil
}
