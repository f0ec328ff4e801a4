package schedule

import (
	"context"
	"time"

	"vaultpay/internal/models"
)

// Service manages recurring payments and executes the due ones.
type Service interface {
	Create(ctx context.Context, p CreateParams) (*models.ScheduledPayment, error)
	Get(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]models.ScheduledPayment, error)
	ListRuns(ctx context.Context, id, userID uint, limit, offset int) ([]models.ScheduledPaymentRun, error)

	// Pause stops future runs; Resume re-arms the schedule, skipping
	// any runs missed while paused. Cancel is final.
	Pause(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error)
	Resume(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error)
	Cancel(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error)

	// RunDue executes every schedule due at now, at most batchSize of
	// them. Safe to call from several runners at once; each run
	// dispatches exactly one transfer.
	RunDue(ctx context.Context, now time.Time, batchSize int) (*RunReport, error)
}
