package moneyrequest

import (
	"context"
	"errors"
	"strings"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"

	"go.uber.org/zap"
)

// DefaultRequestTTL is how long a request stays open when the caller
// sets no expiry.
const DefaultRequestTTL = 7 * 24 * time.Hour

type service struct {
	repos  *repositories.Registry
	ledger ledger.Service
	fees   *fee.Engine
	logger *zap.SugaredLogger
}

// NewService creates the money request service.
func NewService(repos *repositories.Registry, ledgerSvc ledger.Service, fees *fee.Engine, logger *zap.SugaredLogger) Service {
	if repos == nil {
		panic("moneyrequest: repository registry is required")
	}
	if ledgerSvc == nil {
		panic("moneyrequest: ledger service is required")
	}
	if fees == nil {
		panic("moneyrequest: fee engine is required")
	}
	if logger == nil {
		panic("moneyrequest: logger is required")
	}
	return &service{repos: repos, ledger: ledgerSvc, fees: fees, logger: logger}
}

func (s *service) Create(ctx context.Context, p CreateParams) (*models.MoneyRequest, error) {
	if !p.Amount.IsPositive() || !p.Amount.Equal(p.Amount.Round(2)) {
		return nil, ErrInvalidAmount
	}
	if p.RequesterID == p.PayerID {
		return nil, ErrSelfRequest
	}
	now := time.Now().UTC()
	expires := p.ExpiresAt
	if expires == nil {
		e := now.Add(DefaultRequestTTL)
		expires = &e
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}

	req := &models.MoneyRequest{
		RequesterID: p.RequesterID,
		PayerID:     p.PayerID,
		Amount:      p.Amount,
		Currency:    currency,
		Description: p.Description,
		Status:      models.MoneyRequestStatusPending,
		ExpiresAt:   expires,
	}
	if err := s.repos.MoneyRequests.Create(req); err != nil {
		return nil, err
	}
	s.logger.Infow("money request created",
		"request_id", req.ID,
		"requester_id", req.RequesterID,
		"payer_id", req.PayerID,
		"amount", req.Amount,
	)
	return req, nil
}

// Accept pays the request. The transfer and the request's state change
// commit together, so a request can never be paid twice.
func (s *service) Accept(ctx context.Context, requestID, payerID uint) (*models.MoneyRequest, *models.Transaction, error) {
	var (
		resultReq *models.MoneyRequest
		resultTxn *models.Transaction
		staleErr  error
	)
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		resultReq, resultTxn, staleErr = nil, nil, nil

		req, err := s.lockRequest(op, requestID)
		if err != nil {
			return err
		}
		if req.PayerID != payerID {
			return ErrNotPayer
		}
		if req.Status != models.MoneyRequestStatusPending {
			return ErrNotPending
		}
		if req.ExpiresAt != nil && op.Now().After(*req.ExpiresAt) {
			// Commit the expiry; the caller still gets an error.
			req.Status = models.MoneyRequestStatusExpired
			if err := op.MoneyRequests().Update(req); err != nil {
				return err
			}
			staleErr = ErrRequestExpired
			return nil
		}

		payerWID, err := op.WalletIDFor(payerID, req.Currency)
		if err != nil {
			return err
		}
		requesterWID, err := op.EnsureWalletID(req.RequesterID, req.Currency)
		if err != nil {
			return err
		}
		wallets, err := op.LockWallets(payerWID, requesterWID)
		if err != nil {
			return err
		}
		payer, requester := wallets[payerWID], wallets[requesterWID]
		if !payer.IsActive || !requester.IsActive {
			return ledger.ErrWalletInactive
		}
		if payer.AvailableBalance.LessThan(req.Amount) {
			return ledger.ErrInsufficientFunds
		}

		feeAmount := s.fees.Calculate(models.TransactionTypeTransferOut, req.Amount)
		net := req.Amount.Sub(feeAmount)
		now := op.Now()

		txn := &models.Transaction{
			Type:             models.TransactionTypeTransferOut,
			Status:           models.TransactionStatusCompleted,
			SenderID:         &payerID,
			ReceiverID:       &req.RequesterID,
			SenderWalletID:   &payerWID,
			ReceiverWalletID: &requesterWID,
			Amount:           req.Amount,
			Fee:              feeAmount,
			NetAmount:        net,
			Currency:         req.Currency,
			Description:      req.Description,
			ProcessedAt:      &now,
			Metadata:         models.JSON{"money_request_id": req.ID},
		}
		if err := op.CreateTransaction(txn); err != nil {
			return err
		}
		if err := op.Debit(payer, ledger.BucketAvailable, req.Amount, txn, "money request paid"); err != nil {
			return err
		}
		if err := op.Credit(requester, net, txn, "money request received"); err != nil {
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

		req.Status = models.MoneyRequestStatusAccepted
		req.TransactionID = &txn.ID
		if err := op.MoneyRequests().Update(req); err != nil {
			return err
		}
		resultReq, resultTxn = req, txn
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if staleErr != nil {
		return nil, nil, staleErr
	}
	s.logger.Infow("money request accepted",
		"request_id", resultReq.ID,
		"reference", resultTxn.ReferenceID,
	)
	return resultReq, resultTxn, nil
}

func (s *service) Decline(ctx context.Context, requestID, payerID uint) (*models.MoneyRequest, error) {
	return s.transition(ctx, requestID, func(req *models.MoneyRequest) error {
		if req.PayerID != payerID {
			return ErrNotPayer
		}
		if req.Status != models.MoneyRequestStatusPending {
			return ErrNotPending
		}
		req.Status = models.MoneyRequestStatusDeclined
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, requestID, requesterID uint) (*models.MoneyRequest, error) {
	return s.transition(ctx, requestID, func(req *models.MoneyRequest) error {
		if req.RequesterID != requesterID {
			return ErrNotRequester
		}
		if req.Status != models.MoneyRequestStatusPending {
			return ErrNotPending
		}
		req.Status = models.MoneyRequestStatusCancelled
		return nil
	})
}

func (s *service) transition(ctx context.Context, requestID uint, mutate func(*models.MoneyRequest) error) (*models.MoneyRequest, error) {
	var result *models.MoneyRequest
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		req, err := s.lockRequest(op, requestID)
		if err != nil {
			return err
		}
		if err := mutate(req); err != nil {
			return err
		}
		if err := op.MoneyRequests().Update(req); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("money request updated", "request_id", result.ID, "status", result.Status)
	return result, nil
}

func (s *service) lockRequest(op *ledger.Scope, requestID uint) (*models.MoneyRequest, error) {
	req, err := op.MoneyRequests().GetForUpdate(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrMoneyRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *service) Get(ctx context.Context, requestID, callerID uint) (*models.MoneyRequest, error) {
	req, err := s.repos.MoneyRequests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrMoneyRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.RequesterID != callerID && req.PayerID != callerID {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *service) ListIncoming(ctx context.Context, payerID uint, limit, offset int) ([]models.MoneyRequest, error) {
	return s.repos.MoneyRequests.ListIncoming(ctx, payerID, limit, offset)
}

func (s *service) ListOutgoing(ctx context.Context, requesterID uint, limit, offset int) ([]models.MoneyRequest, error) {
	return s.repos.MoneyRequests.ListOutgoing(ctx, requesterID, limit, offset)
}

func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.MoneyRequests.ExpireDue(now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Infow("expired money requests", "count", n)
	}
	return n, nil
}
