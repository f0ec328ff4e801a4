package wallet

import (
	"context"
	"testing"

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
	svc := NewService(repos, nil, zap.NewNop().Sugar(), nil, Config{})
	return svc, repos
}

func TestGetOrCreate_FirstWalletIsDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	usd, err := svc.GetOrCreate(ctx, 1, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", usd.Currency)
	assert.True(t, usd.IsDefault)
	assert.True(t, usd.IsActive)
	assert.True(t, usd.Balance.IsZero())

	eur, err := svc.GetOrCreate(ctx, 1, "EUR")
	require.NoError(t, err)
	assert.False(t, eur.IsDefault)

	again, err := svc.GetOrCreate(ctx, 1, "USD")
	require.NoError(t, err)
	assert.Equal(t, usd.ID, again.ID)
}

func TestGetOrCreate_RejectsBadCurrencyCodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, code := range []string{"US", "DOLLARS", "U$D", "12X"} {
		_, err := svc.GetOrCreate(ctx, 1, code)
		assert.ErrorIs(t, err, ErrInvalidCurrency, "code %q", code)
	}
}

func TestSummary_ReflectsBuckets(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	w, err := svc.GetOrCreate(ctx, 1, "USD")
	require.NoError(t, err)

	w.Balance = decimal.RequireFromString("100.00")
	w.AvailableBalance = decimal.RequireFromString("70.00")
	w.PendingBalance = decimal.RequireFromString("20.00")
	w.ReservedBalance = decimal.RequireFromString("10.00")
	require.NoError(t, repos.Wallets.Save(w))

	summary, err := svc.Summary(ctx, 1, "USD")
	require.NoError(t, err)
	assert.Equal(t, w.ID, summary.WalletID)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, summary.Available.Equal(decimal.RequireFromString("70.00")))
	assert.True(t, summary.Pending.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, summary.Reserved.Equal(decimal.RequireFromString("10.00")))

	_, err = svc.Summary(ctx, 2, "USD")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestHistory_RelabelsReceivedTransfers(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	sender, receiver := uint(1), uint(2)
	txn := &models.Transaction{
		ReferenceID: "TFR-TEST0001",
		Type:        models.TransactionTypeTransferOut,
		Status:      models.TransactionStatusCompleted,
		SenderID:    &sender,
		ReceiverID:  &receiver,
		Amount:      decimal.RequireFromString("25.00"),
		NetAmount:   decimal.RequireFromString("25.00"),
		Currency:    "USD",
	}
	require.NoError(t, repos.Transactions.Create(txn))

	got, err := svc.History(ctx, receiver, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TransactionTypeTransferIn, got[0].Type)

	got, err = svc.History(ctx, sender, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TransactionTypeTransferOut, got[0].Type)
}

func TestLockUnlock(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	w, err := svc.GetOrCreate(ctx, 1, "USD")
	require.NoError(t, err)

	require.NoError(t, svc.Lock(ctx, w.ID, "suspicious activity"))
	assert.ErrorIs(t, svc.Lock(ctx, w.ID, "again"), ErrAlreadyLocked)

	locked, err := repos.Wallets.GetByID(w.ID)
	require.NoError(t, err)
	assert.False(t, locked.IsActive)
	assert.Equal(t, "suspicious activity", locked.StatusReason)

	require.NoError(t, svc.Unlock(ctx, w.ID))
	assert.ErrorIs(t, svc.Unlock(ctx, w.ID), ErrNotLocked)

	unlocked, err := repos.Wallets.GetByID(w.ID)
	require.NoError(t, err)
	assert.True(t, unlocked.IsActive)
	assert.Empty(t, unlocked.StatusReason)
}
