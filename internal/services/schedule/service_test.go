package schedule

import (
	"context"
	"testing"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, ledger.Service, *repositories.Registry) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.Migrate(db))

	repos := repositories.NewRegistry(db, nil, zap.NewNop().Sugar())
	ledgerSvc := ledger.NewService(db, repos, fee.NewEngine(fee.DefaultSchedule()), reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, ledger.Config{})
	svc := NewService(repos, ledgerSvc, zap.NewNop().Sugar())
	return svc, ledgerSvc, repos
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fund(t *testing.T, ledgerSvc ledger.Service, userID uint, amount string) {
	t.Helper()
	_, err := ledgerSvc.Deposit(context.Background(), ledger.DepositParams{
		UserID: userID,
		Amount: d(amount),
	})
	require.NoError(t, err)
}

func available(t *testing.T, repos *repositories.Registry, userID uint) decimal.Decimal {
	t.Helper()
	w, err := repos.Wallets.GetByUserAndCurrency(userID, "USD")
	require.NoError(t, err)
	return w.AvailableBalance
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	start := time.Now().UTC()

	_, err := svc.Create(ctx, CreateParams{UserID: 1, ReceiverID: 2, Amount: d("-5"), Frequency: models.FrequencyDaily, StartDate: start})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, CreateParams{UserID: 1, ReceiverID: 2, Amount: d("5.00"), Frequency: "hourly", StartDate: start})
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = svc.Create(ctx, CreateParams{UserID: 1, ReceiverID: 2, Amount: d("5.00"), Frequency: models.FrequencyDaily})
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = svc.Create(ctx, CreateParams{UserID: 1, ReceiverID: 1, Amount: d("5.00"), Frequency: models.FrequencyDaily, StartDate: start})
	assert.ErrorIs(t, err, ErrSelfPayment)
}

func TestRunDue_ExecutesAndAdvances(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	now := time.Now().UTC()
	start := now.Add(-time.Hour)
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyDaily,
		StartDate:  start,
	})
	require.NoError(t, err)

	report, err := svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Succeeded)

	assert.True(t, available(t, repos, 1).Equal(d("90.00")))
	assert.True(t, available(t, repos, 2).Equal(d("10.00")))

	after, err := repos.Schedules.GetByID(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.RunCount)
	assert.Equal(t, models.ScheduleStatusActive, after.Status)
	assert.True(t, after.NextRunDate.Equal(start.AddDate(0, 0, 1)))

	runs, err := repos.Schedules.ListRuns(sp.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ScheduleRunSuccess, runs[0].Status)
	assert.NotNil(t, runs[0].TransactionID)

	// Nothing is due until the next period.
	report, err = svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.True(t, available(t, repos, 1).Equal(d("90.00")))
}

func TestRunDue_OneShotCompletes(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	now := time.Now().UTC()
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyOnce,
		StartDate:  now.Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = svc.RunDue(ctx, now, 50)
	require.NoError(t, err)

	after, err := repos.Schedules.GetByID(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, after.Status)
}

func TestRunDue_FailedRunRecordedAndAdvanced(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	// Sender has a wallet but not enough in it.
	fund(t, ledgerSvc, 1, "3.00")

	now := time.Now().UTC()
	start := now.Add(-time.Hour)
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyWeekly,
		StartDate:  start,
	})
	require.NoError(t, err)

	report, err := svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Succeeded)

	assert.True(t, available(t, repos, 1).Equal(d("3.00")), "a declined run moves no money")

	after, err := repos.Schedules.GetByID(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.RunCount)
	assert.True(t, after.NextRunDate.Equal(start.AddDate(0, 0, 7)), "a declined run is not retried early")

	runs, err := repos.Schedules.ListRuns(sp.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ScheduleRunFailed, runs[0].Status)
	assert.Nil(t, runs[0].TransactionID)
	assert.Contains(t, runs[0].Error, "insufficient")
}

func TestRunDue_MaxRunsCompletes(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	now := time.Now().UTC()
	maxRuns := 2
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyDaily,
		StartDate:  now.AddDate(0, 0, -3),
		MaxRuns:    &maxRuns,
	})
	require.NoError(t, err)

	_, err = svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	_, err = svc.RunDue(ctx, now, 50)
	require.NoError(t, err)

	after, err := repos.Schedules.GetByID(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.RunCount)
	assert.Equal(t, models.ScheduleStatusCompleted, after.Status)

	// A completed schedule never comes due again.
	report, err := svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.True(t, available(t, repos, 1).Equal(d("80.00")))
}

func TestRunDue_EndDateCompletes(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	now := time.Now().UTC()
	start := now.Add(-time.Hour)
	end := start.AddDate(0, 0, 3)
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyWeekly,
		StartDate:  start,
		EndDate:    &end,
	})
	require.NoError(t, err)

	_, err = svc.RunDue(ctx, now, 50)
	require.NoError(t, err)

	after, err := repos.Schedules.GetByID(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, after.Status, "next run would fall past the end date")
}

func TestPauseResume_SkipsMissedRuns(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	now := time.Now().UTC()
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyWeekly,
		StartDate:  now.AddDate(0, 0, -21),
	})
	require.NoError(t, err)

	_, err = svc.Pause(ctx, sp.ID, 1)
	require.NoError(t, err)

	report, err := svc.RunDue(ctx, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due, "paused schedules are never due")

	resumed, err := svc.Resume(ctx, sp.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusActive, resumed.Status)
	assert.True(t, resumed.NextRunDate.After(now), "missed runs are skipped, not replayed")

	assert.True(t, available(t, repos, 1).Equal(d("100.00")))

	_, err = svc.Resume(ctx, sp.ID, 1)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestCancel_IsFinal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyMonthly,
		StartDate:  now,
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, sp.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, sp.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	_, err = svc.Pause(ctx, sp.ID, 1)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sp, err := svc.Create(ctx, CreateParams{
		UserID:     1,
		ReceiverID: 2,
		Amount:     d("10.00"),
		Frequency:  models.FrequencyDaily,
		StartDate:  time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, sp.ID, 99)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.Pause(ctx, sp.ID, 99)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.Get(ctx, 12345, 1)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
