package models

import "time"

// Outbox event types published by the relay.
const (
	EventTransactionCompleted = "transaction.completed"
	EventTransactionFailed    = "transaction.failed"
	EventTransactionReversed  = "transaction.reversed"
	EventWalletCredited       = "wallet.credited"
	EventWalletDebited        = "wallet.debited"
	EventOrderCaptured        = "order.captured"
	EventOrderVoided          = "order.voided"
	EventOrderRefunded        = "order.refunded"
)

// OutboxEvent is written in the same database transaction as the state
// change it describes. cmd/relay polls unprocessed rows and publishes
// them to Kafka, so downstream consumers see only committed state.
type OutboxEvent struct {
	ID            uint   `gorm:"primarykey"`
	AggregateType string `gorm:"size:64;not null"`
	AggregateID   string `gorm:"size:64;not null;index"`
	EventType     string `gorm:"size:64;not null"`
	Payload       JSON   `gorm:"type:jsonb"`
	Processed     bool   `gorm:"not null;default:false;index"`
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}
