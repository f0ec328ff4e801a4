package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateParams describes a new recurring payment.
type CreateParams struct {
	UserID      uint
	ReceiverID  uint
	Amount      decimal.Decimal
	Currency    string
	Description string
	Frequency   string
	StartDate   time.Time
	EndDate     *time.Time
	MaxRuns     *int
}

// RunReport summarizes one poller sweep.
type RunReport struct {
	Due       int
	Succeeded int
	Failed    int
	Skipped   int
}
