package qrcode

import (
	"context"
	"errors"
	"strings"
	"time"

	appErrors "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type service struct {
	repos  *repositories.Registry
	logger *zap.SugaredLogger
}

// NewService creates the QR code service.
func NewService(repos *repositories.Registry, logger *zap.SugaredLogger) Service {
	if repos == nil {
		panic("qrcode: repository registry is required")
	}
	if logger == nil {
		panic("qrcode: logger is required")
	}
	return &service{repos: repos, logger: logger}
}

func (s *service) GetReceiveCode(ctx context.Context, userID uint) (*models.QRCode, error) {
	existing, err := s.repos.QRCodes.GetUserReceiveCode(userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrQRCodeNotFound) {
		return nil, err
	}

	qr := &models.QRCode{
		Code:     utils.MustGenerateSecureCode(),
		UserID:   userID,
		Type:     models.QRTypeReceive,
		Currency: "USD",
		MaxUses:  0,
		Status:   models.QRStatusActive,
		Metadata: models.JSON{"kind": "receive"},
	}
	if err := s.repos.QRCodes.Create(qr); err != nil {
		return nil, err
	}
	s.logger.Infow("receive code created", "user_id", userID, "qr_id", qr.ID)
	return qr, nil
}

func (s *service) CreateAmountCode(ctx context.Context, p AmountCodeParams) (*models.QRCode, error) {
	if !p.Amount.IsPositive() || !p.Amount.Equal(p.Amount.Round(2)) {
		return nil, ErrAmountRequired
	}
	now := time.Now().UTC()
	expires := p.ExpiresAt
	if expires == nil {
		e := now.Add(DefaultAmountCodeTTL)
		expires = &e
	} else if !expires.After(now) {
		return nil, ErrInvalidExpiry
	}
	maxUses := p.MaxUses
	if maxUses <= 0 {
		maxUses = 1
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "USD"
	}

	var allowed pq.Int64Array
	for _, id := range p.AllowedPayers {
		allowed = append(allowed, int64(id))
	}

	amount := p.Amount
	qr := &models.QRCode{
		Code:          utils.MustGenerateSecureCode(),
		UserID:        p.UserID,
		Type:          models.QRTypeAmount,
		Amount:        &amount,
		Currency:      currency,
		ExpiresAt:     expires,
		MaxUses:       maxUses,
		Status:        models.QRStatusActive,
		AllowedPayers: allowed,
		Metadata:      p.Metadata,
	}
	if err := s.repos.QRCodes.Create(qr); err != nil {
		return nil, err
	}
	s.logger.Infow("amount code created",
		"user_id", p.UserID,
		"qr_id", qr.ID,
		"amount", p.Amount,
		"max_uses", maxUses,
	)
	return qr, nil
}

func (s *service) Resolve(ctx context.Context, code string) (*models.QRCode, error) {
	qr, err := s.repos.QRCodes.GetByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrQRCodeNotFound) {
			return nil, appErrors.ErrInvalidQR
		}
		return nil, err
	}
	if err := Usable(qr, time.Now().UTC()); err != nil {
		return nil, err
	}
	return qr, nil
}

func (s *service) Revoke(ctx context.Context, code string, userID uint) (*models.QRCode, error) {
	qr, err := s.repos.QRCodes.GetByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrQRCodeNotFound) {
			return nil, appErrors.ErrInvalidQR
		}
		return nil, err
	}
	if qr.UserID != userID {
		return nil, ErrNotOwner
	}
	if qr.Status == models.QRStatusActive {
		qr.Status = models.QRStatusRevoked
		if err := s.repos.QRCodes.Update(qr); err != nil {
			return nil, err
		}
		s.logger.Infow("qr code revoked", "qr_id", qr.ID, "user_id", userID)
	}
	return qr, nil
}

func (s *service) ListForUser(ctx context.Context, userID uint) ([]models.QRCode, error) {
	return s.repos.QRCodes.ListByUser(ctx, userID)
}

// Usable reports whether a code can be paid right now. The payment
// flow re-checks under the row lock; this is also the pre-payment
// display check.
func Usable(qr *models.QRCode, now time.Time) error {
	if qr.Status != models.QRStatusActive {
		return appErrors.ErrQRInactive
	}
	if qr.ExpiresAt != nil && now.After(*qr.ExpiresAt) {
		return appErrors.ErrQRExpired
	}
	if qr.Exhausted() {
		return appErrors.ErrQRLimitExceeded
	}
	return nil
}
