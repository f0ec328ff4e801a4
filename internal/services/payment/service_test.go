package payment

import (
	"context"
	"testing"

	appErrors "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/qrcode"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, qrcode.Service, ledger.Service, *repositories.Registry) {
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
	engine := fee.NewEngine(fee.DefaultSchedule())
	ledgerSvc := ledger.NewService(db, repos, engine, reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, ledger.Config{})
	qrSvc := qrcode.NewService(repos, zap.NewNop().Sugar())
	svc := NewService(ledgerSvc, engine, zap.NewNop().Sugar())
	return svc, qrSvc, ledgerSvc, repos
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fund(t *testing.T, ledgerSvc ledger.Service, userID uint, amount string) {
	t.Helper()
	_, err := ledgerSvc.Deposit(context.Background(), ledger.DepositParams{UserID: userID, Amount: d(amount)})
	require.NoError(t, err)
}

func available(t *testing.T, repos *repositories.Registry, userID uint) decimal.Decimal {
	t.Helper()
	w, err := repos.Wallets.GetByUserAndCurrency(userID, "USD")
	require.NoError(t, err)
	return w.AvailableBalance
}

func TestPayByCode_ReceiveCode(t *testing.T) {
	svc, qrSvc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	qr, err := qrSvc.GetReceiveCode(ctx, 2)
	require.NoError(t, err)

	txn, err := svc.PayByCode(ctx, CodePaymentParams{
		PayerID: 1,
		Code:    qr.Code,
		Amount:  d("40.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypePayment, txn.Type)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	// 2.5% payment fee, absorbed by the payee.
	assert.True(t, txn.Fee.Equal(d("1.00")))

	assert.True(t, available(t, repos, 1).Equal(d("60.00")))
	assert.True(t, available(t, repos, 2).Equal(d("39.00")))

	// Unlimited receive codes stay active.
	after, err := repos.QRCodes.GetByCode(qr.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, after.UsageCount)
	assert.Equal(t, models.QRStatusActive, after.Status)
}

func TestPayByCode_ReceiveCodeRequiresAmount(t *testing.T) {
	svc, qrSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	qr, err := qrSvc.GetReceiveCode(ctx, 2)
	require.NoError(t, err)

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 1, Code: qr.Code})
	assert.ErrorIs(t, err, ErrAmountRequired)
}

func TestPayByCode_AmountCodeExhaustsAfterUse(t *testing.T) {
	svc, qrSvc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")
	fund(t, ledgerSvc, 3, "100.00")

	qr, err := qrSvc.CreateAmountCode(ctx, qrcode.AmountCodeParams{
		UserID: 2,
		Amount: d("19.99"),
	})
	require.NoError(t, err)

	// The code dictates the amount; the payer sends none.
	txn, err := svc.PayByCode(ctx, CodePaymentParams{PayerID: 1, Code: qr.Code})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(d("19.99")))

	after, err := repos.QRCodes.GetByCode(qr.Code)
	require.NoError(t, err)
	assert.Equal(t, models.QRStatusExpired, after.Status, "a single-use code expires on first payment")

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 3, Code: qr.Code})
	assert.ErrorIs(t, err, appErrors.ErrQRInactive)
	assert.True(t, available(t, repos, 3).Equal(d("100.00")))
}

func TestPayByCode_AmountMismatch(t *testing.T) {
	svc, qrSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	qr, err := qrSvc.CreateAmountCode(ctx, qrcode.AmountCodeParams{
		UserID: 2,
		Amount: d("19.99"),
	})
	require.NoError(t, err)

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 1, Code: qr.Code, Amount: d("5.00")})
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestPayByCode_AllowedPayers(t *testing.T) {
	svc, qrSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")
	fund(t, ledgerSvc, 3, "100.00")

	qr, err := qrSvc.CreateAmountCode(ctx, qrcode.AmountCodeParams{
		UserID:        2,
		Amount:        d("10.00"),
		AllowedPayers: []uint{3},
	})
	require.NoError(t, err)

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 1, Code: qr.Code})
	assert.ErrorIs(t, err, appErrors.ErrQRPayerNotAllowed)

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 3, Code: qr.Code})
	require.NoError(t, err)
}

func TestPayByCode_SelfPayRejected(t *testing.T) {
	svc, qrSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	qr, err := qrSvc.GetReceiveCode(ctx, 1)
	require.NoError(t, err)

	_, err = svc.PayByCode(ctx, CodePaymentParams{PayerID: 1, Code: qr.Code, Amount: d("5.00")})
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)
}

func TestPayByCode_CardSource(t *testing.T) {
	svc, qrSvc, _, repos := newTestService(t)
	ctx := context.Background()

	qr, err := qrSvc.CreateAmountCode(ctx, qrcode.AmountCodeParams{
		UserID: 2,
		Amount: d("25.00"),
	})
	require.NoError(t, err)

	txn, err := svc.PayByCode(ctx, CodePaymentParams{
		PayerID: 1,
		Code:    qr.Code,
		Source:  ledger.PaymentSource{Kind: ledger.SourceCard, CardToken: "tok_visa_4242"},
	})
	require.NoError(t, err)
	assert.Nil(t, txn.SenderWalletID, "card payments have no payer wallet leg")

	// 2.5% of 25.00 is 0.63 after rounding.
	assert.True(t, available(t, repos, 2).Equal(d("24.37")))
}

func TestPayByCode_IdempotentReplay(t *testing.T) {
	svc, qrSvc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, 1, "100.00")

	qr, err := qrSvc.GetReceiveCode(ctx, 2)
	require.NoError(t, err)

	params := CodePaymentParams{
		PayerID:        1,
		Code:           qr.Code,
		Amount:         d("10.00"),
		IdempotencyKey: "qr-pay-1",
	}
	first, err := svc.PayByCode(ctx, params)
	require.NoError(t, err)
	second, err := svc.PayByCode(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.True(t, available(t, repos, 1).Equal(d("90.00")))

	after, err := repos.QRCodes.GetByCode(qr.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, after.UsageCount, "a replay never advances usage")
}
