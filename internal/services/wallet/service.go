package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"

	"go.uber.org/zap"
)

type service struct {
	repos   *repositories.Registry
	cache   *cache.CacheService
	logger  *zap.SugaredLogger
	metrics MetricsCollector
	config  Config
}

// NewService creates a new wallet service. The cache is optional.
func NewService(repos *repositories.Registry, cacheSvc *cache.CacheService, logger *zap.SugaredLogger, metrics MetricsCollector, config Config) Service {
	if repos == nil {
		panic("wallet: repository registry is required")
	}
	if logger == nil {
		panic("wallet: logger is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	return &service{
		repos:   repos,
		cache:   cacheSvc,
		logger:  logger,
		metrics: metrics,
		config:  config,
	}
}

func (s *service) GetOrCreate(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	currency, err := s.normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	w, err := s.repos.Wallets.GetByUserAndCurrency(userID, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, err
	}

	count, err := s.repos.Wallets.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	wallet := &models.Wallet{
		UserID:    userID,
		Currency:  currency,
		IsDefault: count == 0,
		IsActive:  true,
	}
	if err := s.repos.Wallets.Create(wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return s.repos.Wallets.GetByUserAndCurrency(userID, currency)
		}
		return nil, err
	}
	s.logger.Infow("wallet created", "wallet_id", wallet.ID, "user_id", userID, "currency", currency)
	return wallet, nil
}

func (s *service) GetByID(ctx context.Context, walletID uint) (*models.Wallet, error) {
	w, err := s.repos.Wallets.GetByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	return s.repos.Wallets.ListByUser(userID)
}

func (s *service) Summary(ctx context.Context, userID uint, currency string) (*BalanceSummary, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("summary", time.Since(start)) }()

	currency, err := s.normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.GetWallet(ctx, userID, currency); err == nil {
			s.metrics.RecordCacheHit("wallet")
			return summarize(cached), nil
		}
		s.metrics.RecordCacheMiss("wallet")
	}

	w, err := s.repos.Wallets.GetByUserAndCurrency(userID, currency)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.CacheWallet(ctx, w); err != nil {
			s.logger.Warnw("failed to cache wallet", "wallet_id", w.ID, "error", err)
		}
	}
	return summarize(w), nil
}

func (s *service) Summaries(ctx context.Context, userID uint) ([]BalanceSummary, error) {
	wallets, err := s.repos.Wallets.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceSummary, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, *summarize(w))
	}
	return out, nil
}

// History returns the user's transactions newest first. Transfers are
// stored once on the sending side; rows where this user is the
// receiver come back relabeled as TRANSFER_IN.
func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	txns, err := s.repos.Transactions.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		t := &txns[i]
		if t.Type == models.TransactionTypeTransferOut &&
			t.ReceiverID != nil && *t.ReceiverID == userID &&
			(t.SenderID == nil || *t.SenderID != userID) {
			t.Type = models.TransactionTypeTransferIn
		}
	}
	return txns, nil
}

func (s *service) Lock(ctx context.Context, walletID uint, reason string) error {
	w, err := s.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return ErrAlreadyLocked
	}
	if err := s.repos.Wallets.UpdateStatus(walletID, false, reason); err != nil {
		return fmt.Errorf("failed to lock wallet: %w", err)
	}
	s.invalidate(ctx, w)
	s.logger.Infow("wallet locked", "wallet_id", walletID, "reason", reason)
	return nil
}

func (s *service) Unlock(ctx context.Context, walletID uint) error {
	w, err := s.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if w.IsActive {
		return ErrNotLocked
	}
	if err := s.repos.Wallets.UpdateStatus(walletID, true, ""); err != nil {
		return fmt.Errorf("failed to unlock wallet: %w", err)
	}
	s.invalidate(ctx, w)
	s.logger.Infow("wallet unlocked", "wallet_id", walletID)
	return nil
}

func (s *service) invalidate(ctx context.Context, w *models.Wallet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallet(ctx, w.UserID, w.Currency); err != nil {
		s.logger.Warnw("failed to invalidate wallet cache", "wallet_id", w.ID, "error", err)
	}
}

func (s *service) normalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return s.config.DefaultCurrency, nil
	}
	if len(c) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return c, nil
}

func summarize(w *models.Wallet) *BalanceSummary {
	return &BalanceSummary{
		WalletID:  w.ID,
		Currency:  w.Currency,
		Total:     w.Balance,
		Available: w.AvailableBalance,
		Pending:   w.PendingBalance,
		Reserved:  w.ReservedBalance,
		IsActive:  w.IsActive,
		IsDefault: w.IsDefault,
		UpdatedAt: w.UpdatedAt,
	}
}
