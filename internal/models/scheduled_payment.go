package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule frequencies
const (
	FrequencyOnce      = "once"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// Schedule statuses
const (
	ScheduleStatusActive    = "ACTIVE"
	ScheduleStatusPaused    = "PAUSED"
	ScheduleStatusCancelled = "CANCELLED"
	ScheduleStatusCompleted = "COMPLETED"
)

// Run outcomes
const (
	ScheduleRunSuccess = "SUCCESS"
	ScheduleRunFailed  = "FAILED"
)

// ScheduledPayment is a recurring transfer from its owner to a fixed
// receiver. NextRunDate is the only due marker; missed runs are never
// executed retroactively.
type ScheduledPayment struct {
	ID          uint            `gorm:"primarykey"`
	UserID      uint            `gorm:"not null;index"`
	ReceiverID  uint            `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	Description string
	Frequency   string    `gorm:"size:16;not null"`
	NextRunDate time.Time `gorm:"not null;index"`
	EndDate     *time.Time
	MaxRuns     *int
	RunCount    int    `gorm:"not null;default:0"`
	Status      string `gorm:"size:16;not null;default:'ACTIVE';index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScheduledPaymentRun records one execution attempt, successful or not.
type ScheduledPaymentRun struct {
	ID                 uint      `gorm:"primarykey"`
	ScheduledPaymentID uint      `gorm:"not null;index"`
	RunAt              time.Time `gorm:"not null"`
	Status             string    `gorm:"size:16;not null"`
	TransactionID      *uint
	Error              string
	CreatedAt          time.Time
}
