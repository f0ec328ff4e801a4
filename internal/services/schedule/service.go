package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/ledger"

	"go.uber.org/zap"
)

type service struct {
	repos  *repositories.Registry
	ledger ledger.Service
	logger *zap.SugaredLogger
}

// NewService creates the scheduled payment service.
func NewService(repos *repositories.Registry, ledgerSvc ledger.Service, logger *zap.SugaredLogger) Service {
	if repos == nil {
		panic("schedule: repository registry is required")
	}
	if ledgerSvc == nil {
		panic("schedule: ledger service is required")
	}
	if logger == nil {
		panic("schedule: logger is required")
	}
	return &service{repos: repos, ledger: ledgerSvc, logger: logger}
}

func (s *service) Create(ctx context.Context, p CreateParams) (*models.ScheduledPayment, error) {
	if !p.Amount.IsPositive() || !p.Amount.Equal(p.Amount.Round(2)) {
		return nil, ErrInvalidAmount
	}
	if !validFrequency(p.Frequency) {
		return nil, ErrInvalidFrequency
	}
	if p.StartDate.IsZero() {
		return nil, ErrInvalidStart
	}
	if p.UserID == p.ReceiverID {
		return nil, ErrSelfPayment
	}

	sp := &models.ScheduledPayment{
		UserID:      p.UserID,
		ReceiverID:  p.ReceiverID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Description: p.Description,
		Frequency:   p.Frequency,
		NextRunDate: p.StartDate,
		EndDate:     p.EndDate,
		MaxRuns:     p.MaxRuns,
		Status:      models.ScheduleStatusActive,
	}
	if err := s.repos.Schedules.Create(sp); err != nil {
		return nil, err
	}
	s.logger.Infow("scheduled payment created",
		"schedule_id", sp.ID,
		"user_id", sp.UserID,
		"frequency", sp.Frequency,
		"next_run", sp.NextRunDate,
	)
	return sp, nil
}

func (s *service) Get(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error) {
	sp, err := s.repos.Schedules.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrScheduledPaymentNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if sp.UserID != userID {
		return nil, ErrNotOwner
	}
	return sp, nil
}

func (s *service) List(ctx context.Context, userID uint, limit, offset int) ([]models.ScheduledPayment, error) {
	return s.repos.Schedules.ListByUser(ctx, userID, limit, offset)
}

func (s *service) ListRuns(ctx context.Context, id, userID uint, limit, offset int) ([]models.ScheduledPaymentRun, error) {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.repos.Schedules.ListRuns(id, limit, offset)
}

func (s *service) Pause(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error) {
	return s.transition(ctx, id, userID, func(sp *models.ScheduledPayment) error {
		if sp.Status != models.ScheduleStatusActive {
			return ErrNotActive
		}
		sp.Status = models.ScheduleStatusPaused
		return nil
	})
}

func (s *service) Resume(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, userID, func(sp *models.ScheduledPayment) error {
		if sp.Status != models.ScheduleStatusPaused {
			return ErrNotPaused
		}
		sp.Status = models.ScheduleStatusActive
		sp.NextRunDate = rearm(sp.NextRunDate, sp.Frequency, now)
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error) {
	return s.transition(ctx, id, userID, func(sp *models.ScheduledPayment) error {
		switch sp.Status {
		case models.ScheduleStatusActive, models.ScheduleStatusPaused:
			sp.Status = models.ScheduleStatusCancelled
			return nil
		default:
			return ErrAlreadyFinished
		}
	})
}

// transition applies a status change under the schedule's row lock so
// it cannot interleave with a runner executing the same schedule.
func (s *service) transition(ctx context.Context, id, userID uint, mutate func(*models.ScheduledPayment) error) (*models.ScheduledPayment, error) {
	var result *models.ScheduledPayment
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		sp, err := op.Schedules().GetForUpdate(id)
		if err != nil {
			if errors.Is(err, repositories.ErrScheduledPaymentNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}
		if sp.UserID != userID {
			return ErrNotOwner
		}
		if err := mutate(sp); err != nil {
			return err
		}
		if err := op.Schedules().Update(sp); err != nil {
			return err
		}
		result = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("scheduled payment updated", "schedule_id", result.ID, "status", result.Status)
	return result, nil
}

func (s *service) RunDue(ctx context.Context, now time.Time, batchSize int) (*RunReport, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	due, err := s.repos.Schedules.ListDue(now, batchSize)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Due: len(due)}
	for i := range due {
		outcome, err := s.runOne(ctx, &due[i], now)
		if err != nil {
			// Infrastructure trouble; leave the schedule due and let
			// the next sweep pick it up.
			s.logger.Errorw("schedule run aborted", "schedule_id", due[i].ID, "error", err)
			report.Skipped++
			continue
		}
		switch outcome {
		case models.ScheduleRunSuccess:
			report.Succeeded++
		case models.ScheduleRunFailed:
			report.Failed++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

// runOne executes a single due schedule. The transfer carries an
// idempotency key derived from the run number, so if two runners race
// on the same schedule the loser replays the winner's transfer and
// then skips the advance under the row lock.
func (s *service) runOne(ctx context.Context, item *models.ScheduledPayment, now time.Time) (string, error) {
	key := fmt.Sprintf("sched:%d:%d", item.ID, item.RunCount+1)
	description := item.Description
	if description == "" {
		description = "scheduled payment"
	}

	txn, transferErr := s.ledger.Transfer(ctx, ledger.TransferParams{
		SenderID:       item.UserID,
		ReceiverID:     item.ReceiverID,
		Amount:         item.Amount,
		Currency:       item.Currency,
		Description:    description,
		IdempotencyKey: key,
		Metadata:       models.JSON{"scheduled_payment_id": item.ID},
	})
	if transferErr != nil && !isBusinessFailure(transferErr) {
		return "", transferErr
	}

	outcome := ""
	err := s.ledger.Atomic(ctx, func(op *ledger.Scope) error {
		sp, err := op.Schedules().GetForUpdate(item.ID)
		if err != nil {
			return err
		}
		if sp.Status != models.ScheduleStatusActive || sp.NextRunDate.After(now) || sp.RunCount != item.RunCount {
			// Another runner already advanced it.
			outcome = ""
			return nil
		}

		run := &models.ScheduledPaymentRun{
			ScheduledPaymentID: sp.ID,
			RunAt:              now,
		}
		if transferErr != nil {
			run.Status = models.ScheduleRunFailed
			run.Error = transferErr.Error()
		} else {
			run.Status = models.ScheduleRunSuccess
			run.TransactionID = &txn.ID
		}
		if err := op.Schedules().CreateRun(run); err != nil {
			return err
		}

		sp.RunCount++
		advance(sp)
		if err := op.Schedules().Update(sp); err != nil {
			return err
		}
		outcome = run.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	if outcome == models.ScheduleRunFailed {
		s.logger.Warnw("scheduled payment run failed",
			"schedule_id", item.ID,
			"run", item.RunCount+1,
			"error", transferErr,
		)
	}
	return outcome, nil
}

// advance moves a schedule past the run that just happened, finishing
// it when its frequency, run budget or end date says so.
func advance(sp *models.ScheduledPayment) {
	if sp.Frequency == models.FrequencyOnce {
		sp.Status = models.ScheduleStatusCompleted
		return
	}
	if sp.MaxRuns != nil && sp.RunCount >= *sp.MaxRuns {
		sp.Status = models.ScheduleStatusCompleted
		return
	}
	next := nextAfter(sp.NextRunDate, sp.Frequency)
	if sp.EndDate != nil && next.After(*sp.EndDate) {
		sp.Status = models.ScheduleStatusCompleted
		return
	}
	sp.NextRunDate = next
}

// isBusinessFailure separates declined payments, which are recorded as
// failed runs, from infrastructure errors, which abort the sweep item.
func isBusinessFailure(err error) bool {
	for _, target := range []error{
		ledger.ErrInsufficientFunds,
		ledger.ErrWalletNotFound,
		ledger.ErrWalletInactive,
		ledger.ErrCurrencyMismatch,
		ledger.ErrSelfTransfer,
		ledger.ErrInvalidAmount,
		ledger.ErrAmountTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
