// Package refund fronts the ledger's reversal primitive with the
// authorization rules of the public refund endpoint: a refund may only
// be requested by a party to the original transaction or by an admin.
// Ceilings, status flips and the money itself live in the ledger.
package refund

import (
	"context"
	"errors"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Params describes one refund request.
type Params struct {
	TransactionID uint
	// Amount zero refunds the full refundable remainder.
	Amount         decimal.Decimal
	Reason         string
	RequestedBy    uint
	RequesterRole  string
	IdempotencyKey string
}

// Service authorizes and executes refund requests.
type Service interface {
	Refund(ctx context.Context, p Params) (*models.Transaction, error)
}

type service struct {
	transactions repositories.TransactionRepository
	ledger       ledger.Service
	logger       *zap.SugaredLogger
}

func NewService(transactions repositories.TransactionRepository, ledgerSvc ledger.Service, logger *zap.SugaredLogger) Service {
	if transactions == nil {
		panic("refund: transaction repository is required")
	}
	if ledgerSvc == nil {
		panic("refund: ledger service is required")
	}
	if logger == nil {
		panic("refund: logger is required")
	}
	return &service{transactions: transactions, ledger: ledgerSvc, logger: logger}
}

func (s *service) Refund(ctx context.Context, p Params) (*models.Transaction, error) {
	original, err := s.transactions.GetByID(p.TransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}

	if !isParticipant(original, p.RequestedBy) && p.RequesterRole != models.RoleAdmin {
		s.logger.Warnw("refund denied",
			"transaction_id", p.TransactionID,
			"requested_by", p.RequestedBy,
		)
		return nil, ErrNotParticipant
	}

	// The ledger re-reads and locks the original inside its atomic
	// scope; this pre-read only gates who may ask.
	return s.ledger.Refund(ctx, ledger.RefundParams{
		TransactionID:  p.TransactionID,
		Amount:         p.Amount,
		Reason:         p.Reason,
		RequestedBy:    p.RequestedBy,
		IdempotencyKey: p.IdempotencyKey,
	})
}

func isParticipant(t *models.Transaction, userID uint) bool {
	if t.SenderID != nil && *t.SenderID == userID {
		return true
	}
	if t.ReceiverID != nil && *t.ReceiverID == userID {
		return true
	}
	return false
}
