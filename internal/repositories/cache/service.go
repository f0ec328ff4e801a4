package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vaultpay/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheService is a JSON read-through cache over Redis for hot
// entities (users, wallets). It is never the source of truth; a miss
// or error always falls back to the database.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func UserKey(userID uint) string {
	return fmt.Sprintf("user:id:%d", userID)
}

func WalletKey(userID uint, currency string) string {
	return fmt.Sprintf("wallet:%d:%s", userID, currency)
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, UserKey(user.ID), user)
}

func (s *CacheService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.Get(ctx, UserKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *CacheService) InvalidateUser(ctx context.Context, userID uint) error {
	return s.Delete(ctx, UserKey(userID))
}

// Wallet caching
func (s *CacheService) CacheWallet(ctx context.Context, wallet *models.Wallet) error {
	if wallet == nil {
		return errors.New("cannot cache nil wallet")
	}
	return s.Set(ctx, WalletKey(wallet.UserID, wallet.Currency), wallet)
}

func (s *CacheService) GetWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.Get(ctx, WalletKey(userID, currency), &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint, currency string) error {
	return s.Delete(ctx, WalletKey(userID, currency))
}

// HealthCheck pings Redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	return Ping(ctx, s.client)
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
