package order

import (
	"context"
	"strings"
	"testing"

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

const (
	payerID    = uint(1)
	merchantID = uint(2)
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
	engine := fee.NewEngine(fee.DefaultSchedule())
	ledgerSvc := ledger.NewService(db, repos, engine, reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, ledger.Config{})
	svc := NewService(repos, ledgerSvc, engine, reference.NewGenerator(), zap.NewNop().Sugar())
	return svc, ledgerSvc, repos
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s, got %s", want, got)
}

func fund(t *testing.T, ledgerSvc ledger.Service, userID uint, amount string) {
	t.Helper()
	_, err := ledgerSvc.Deposit(context.Background(), ledger.DepositParams{UserID: userID, Amount: d(amount)})
	require.NoError(t, err)
}

func wallet(t *testing.T, repos *repositories.Registry, userID uint) *models.Wallet {
	t.Helper()
	w, err := repos.Wallets.GetByUserAndCurrency(userID, "USD")
	require.NoError(t, err)
	return w
}

func authorize(t *testing.T, svc Service, amount string) *models.Order {
	t.Helper()
	ord, err := svc.Authorize(context.Background(), AuthorizeParams{
		MerchantID:  merchantID,
		PayerID:     payerID,
		Amount:      d(amount),
		Description: "test order",
	})
	require.NoError(t, err)
	return ord
}

func TestAuthorize_ReservesFunds(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	fund(t, ledgerSvc, payerID, "100.00")

	ord := authorize(t, svc, "60.00")
	assert.Equal(t, models.OrderStatusAuthorized, ord.Status)
	assert.True(t, strings.HasPrefix(ord.ReferenceID, "ORD-"))

	w := wallet(t, repos, payerID)
	assertDec(t, "40.00", w.AvailableBalance)
	assertDec(t, "60.00", w.ReservedBalance)
	assertDec(t, "100.00", w.Balance)

	// Reserving writes no ledger entry; the total never changed.
	count, err := repos.Ledger.CountForWallet(w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "only the funding deposit entry should exist")
}

func TestAuthorize_Failures(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "50.00")

	_, err := svc.Authorize(ctx, AuthorizeParams{MerchantID: merchantID, PayerID: payerID, Amount: d("50.01")})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = svc.Authorize(ctx, AuthorizeParams{MerchantID: merchantID, PayerID: 99, Amount: d("10.00")})
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)

	w := wallet(t, repos, payerID)
	require.NoError(t, repos.Wallets.UpdateStatus(w.ID, false, "hold"))
	_, err = svc.Authorize(ctx, AuthorizeParams{MerchantID: merchantID, PayerID: payerID, Amount: d("10.00")})
	assert.ErrorIs(t, err, ledger.ErrWalletInactive)
}

func TestCapture_PartialThenFull(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	ord := authorize(t, svc, "60.00")

	ord2, txn, err := svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("25.00")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartiallyCaptured, ord2.Status)
	assertDec(t, "25.00", ord2.CapturedAmount)
	assert.Equal(t, models.TransactionTypePayment, txn.Type)
	require.NotNil(t, txn.OrderID)
	assert.Equal(t, ord.ID, *txn.OrderID)
	// 2.5% of 25.00
	assertDec(t, "0.63", txn.Fee)
	assertDec(t, "24.37", txn.NetAmount)

	payer := wallet(t, repos, payerID)
	merchant := wallet(t, repos, merchantID)
	assertDec(t, "35.00", payer.ReservedBalance)
	assertDec(t, "75.00", payer.Balance)
	assertDec(t, "24.37", merchant.AvailableBalance)

	// Zero amount captures the rest and closes the order.
	ord3, txn2, err := svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCaptured, ord3.Status)
	assertDec(t, "60.00", ord3.CapturedAmount)
	assertDec(t, "35.00", txn2.Amount)

	payer = wallet(t, repos, payerID)
	merchant = wallet(t, repos, merchantID)
	assertDec(t, "0", payer.ReservedBalance)
	assertDec(t, "40.00", payer.Balance)
	assertDec(t, "58.49", merchant.AvailableBalance)
	assert.True(t, payer.Consistent())
	assert.True(t, merchant.Consistent())
}

func TestCapture_Guards(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	ord := authorize(t, svc, "60.00")

	_, _, err := svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("60.01")})
	assert.ErrorIs(t, err, ErrCaptureExceedsAuth)

	_, _, err = svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: 77, Amount: d("10.00")})
	assert.ErrorIs(t, err, ErrNotMerchant)

	_, err = svc.Void(ctx, ord.ID, merchantID)
	require.NoError(t, err)
	_, _, err = svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("10.00")})
	assert.ErrorIs(t, err, ErrNotCapturable)

	_, _, err = svc.Capture(ctx, CaptureParams{OrderID: 9999, MerchantID: merchantID})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCapture_IdempotentReplay(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	ord := authorize(t, svc, "60.00")

	params := CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("25.00"), IdempotencyKey: "cap-1"}
	_, first, err := svc.Capture(ctx, params)
	require.NoError(t, err)
	_, second, err := svc.Capture(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	merchant := wallet(t, repos, merchantID)
	assertDec(t, "24.37", merchant.AvailableBalance)

	after, err := repos.Orders.GetByID(ord.ID)
	require.NoError(t, err)
	assertDec(t, "25.00", after.CapturedAmount)
}

func TestVoid_ReleasesAuthorization(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	ord := authorize(t, svc, "60.00")

	voided, err := svc.Void(ctx, ord.ID, merchantID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusVoided, voided.Status)

	w := wallet(t, repos, payerID)
	assertDec(t, "100.00", w.AvailableBalance)
	assertDec(t, "0", w.ReservedBalance)

	_, err = svc.Void(ctx, ord.ID, merchantID)
	assert.ErrorIs(t, err, ErrNotVoidable)
}

func TestVoid_AfterPartialCaptureClosesWindow(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	ord := authorize(t, svc, "60.00")

	_, _, err := svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("25.00")})
	require.NoError(t, err)

	closed, err := svc.Void(ctx, ord.ID, merchantID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCaptured, closed.Status, "captures stand; only the remainder is released")
	assertDec(t, "25.00", closed.CapturedAmount)

	w := wallet(t, repos, payerID)
	assertDec(t, "75.00", w.AvailableBalance)
	assertDec(t, "0", w.ReservedBalance)
}

func TestRefund_PartialThenFull(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	// The merchant keeps a float; a full refund returns the payer's
	// gross while the merchant only ever received the net.
	fund(t, ledgerSvc, merchantID, "10.00")

	ord := authorize(t, svc, "60.00")
	_, _, err := svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID})
	require.NoError(t, err)

	ord2, txn, err := svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("20.00"), Reason: "size exchange"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartiallyRefunded, ord2.Status)
	assert.Equal(t, models.TransactionTypeRefund, txn.Type)
	assertDec(t, "20.00", ord2.RefundedAmount)

	payer := wallet(t, repos, payerID)
	assertDec(t, "60.00", payer.AvailableBalance)

	ord3, txn2, err := svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, ord3.Status)
	assertDec(t, "40.00", txn2.Amount)

	payer = wallet(t, repos, payerID)
	merchant := wallet(t, repos, merchantID)
	assertDec(t, "100.00", payer.AvailableBalance)
	// 10.00 float plus 58.50 net proceeds minus the 60.00 returned.
	assertDec(t, "8.50", merchant.AvailableBalance)

	_, _, err = svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID})
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefund_Guards(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, payerID, "100.00")
	fund(t, ledgerSvc, merchantID, "5.00")
	ord := authorize(t, svc, "60.00")

	// Still authorized, nothing captured.
	_, _, err := svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID})
	assert.ErrorIs(t, err, ErrNotRefundable)

	_, _, err = svc.Capture(ctx, CaptureParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("25.00")})
	require.NoError(t, err)

	// The capture window is still open; void first, then refund.
	_, _, err = svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("5.00")})
	assert.ErrorIs(t, err, ErrNotRefundable)

	_, err = svc.Void(ctx, ord.ID, merchantID)
	require.NoError(t, err)

	// Over-asking is capped to what was captured, not rejected.
	ord2, txn, err := svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("40.00")})
	require.NoError(t, err)
	assertDec(t, "25.00", txn.Amount)
	assert.Equal(t, models.OrderStatusRefunded, ord2.Status)

	_, _, err = svc.Refund(ctx, RefundParams{OrderID: ord.ID, MerchantID: merchantID, Amount: d("25.00")})
	assert.ErrorIs(t, err, ErrNotRefundable)
}
