package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for the wallet service.
type Config struct {
	DefaultCurrency string
}

// BalanceSummary is the API view of one wallet's balances.
type BalanceSummary struct {
	WalletID  uint            `json:"wallet_id"`
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Reserved  decimal.Decimal `json:"reserved"`
	IsActive  bool            `json:"is_active"`
	IsDefault bool            `json:"is_default"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                         {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                        {}
