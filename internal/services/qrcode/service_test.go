package qrcode

import (
	"context"
	"testing"
	"time"

	appErrors "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, *repositories.Registry) {
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
	return NewService(repos, zap.NewNop().Sugar()), repos
}

func TestGetReceiveCode_CreatedOncePerUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetReceiveCode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QRTypeReceive, first.Type)
	assert.NotEmpty(t, first.Code)
	assert.Nil(t, first.Amount)
	assert.Nil(t, first.ExpiresAt)
	assert.Equal(t, 0, first.MaxUses, "receive codes are unlimited")

	second, err := svc.GetReceiveCode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Code, second.Code)
}

func TestCreateAmountCode_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	qr, err := svc.CreateAmountCode(ctx, AmountCodeParams{
		UserID: 1,
		Amount: decimal.RequireFromString("19.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.QRTypeAmount, qr.Type)
	require.NotNil(t, qr.Amount)
	assert.True(t, qr.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 1, qr.MaxUses)
	assert.Equal(t, "USD", qr.Currency)
	require.NotNil(t, qr.ExpiresAt)
	assert.True(t, qr.ExpiresAt.After(time.Now()))
}

func TestCreateAmountCode_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAmountCode(ctx, AmountCodeParams{UserID: 1, Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrAmountRequired)

	past := time.Now().Add(-time.Hour)
	_, err = svc.CreateAmountCode(ctx, AmountCodeParams{
		UserID:    1,
		Amount:    decimal.RequireFromString("5.00"),
		ExpiresAt: &past,
	})
	assert.ErrorIs(t, err, ErrInvalidExpiry)
}

func TestResolve_StateChecks(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "no-such-code")
	assert.ErrorIs(t, err, appErrors.ErrInvalidQR)

	qr, err := svc.CreateAmountCode(ctx, AmountCodeParams{
		UserID: 1,
		Amount: decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, qr.Code)
	require.NoError(t, err)
	assert.Equal(t, qr.ID, resolved.ID)

	expired := time.Now().Add(-time.Minute)
	qr.ExpiresAt = &expired
	require.NoError(t, repos.QRCodes.Update(qr))
	_, err = svc.Resolve(ctx, qr.Code)
	assert.ErrorIs(t, err, appErrors.ErrQRExpired)

	receive, err := svc.GetReceiveCode(ctx, 2)
	require.NoError(t, err)
	receive.UsageCount = 5
	receive.MaxUses = 5
	require.NoError(t, repos.QRCodes.Update(receive))
	_, err = svc.Resolve(ctx, receive.Code)
	assert.ErrorIs(t, err, appErrors.ErrQRLimitExceeded)
}

func TestRevoke(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	qr, err := svc.GetReceiveCode(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, qr.Code, 99)
	assert.ErrorIs(t, err, ErrNotOwner)

	revoked, err := svc.Revoke(ctx, qr.Code, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusRevoked, revoked.Status)

	_, err = svc.Resolve(ctx, qr.Code)
	assert.ErrorIs(t, err, appErrors.ErrQRInactive)
}
