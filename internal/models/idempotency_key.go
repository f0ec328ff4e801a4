package models

import "time"

// IdempotencyKey maps a caller-chosen request key to the transaction it
// produced. A second request with the same (user, key) pair replays the
// stored transaction instead of moving money again.
type IdempotencyKey struct {
	ID            uint   `gorm:"primarykey"`
	UserID        uint   `gorm:"not null;uniqueIndex:idx_idempotency_user_key"`
	Key           string `gorm:"size:128;not null;uniqueIndex:idx_idempotency_user_key"`
	TransactionID uint   `gorm:"not null"`
	CreatedAt     time.Time
}
