package ledger

import "time"

// MetricsCollector receives operational measurements from the
// orchestrator.
type MetricsCollector interface {
	RecordOperationDuration(op string, d time.Duration)
	RecordOperationResult(op string, result string)
	RecordRetry(op string)
	RecordTransactionVolume(txType string, amount float64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}
func (n *NoopMetricsCollector) RecordRetry(string)                            {}
func (n *NoopMetricsCollector) RecordTransactionVolume(string, float64)       {}
