package refund

import (
	"context"
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
	senderID   uint = 1
	receiverID uint = 2
	outsiderID uint = 3
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
	fees := fee.NewEngine(fee.DefaultSchedule())
	ledgerSvc := ledger.NewService(db, repos, fees, reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, ledger.Config{})
	svc := NewService(repos.Transactions, ledgerSvc, zap.NewNop().Sugar())
	return svc, ledgerSvc, repos
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// completedTransfer funds the sender and moves amount to the receiver,
// returning the completed transaction.
func completedTransfer(t *testing.T, ledgerSvc ledger.Service, amount string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	_, err := ledgerSvc.Deposit(ctx, ledger.DepositParams{UserID: senderID, Amount: d("500")})
	require.NoError(t, err)
	txn, err := ledgerSvc.Transfer(ctx, ledger.TransferParams{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     d(amount),
	})
	require.NoError(t, err)
	return txn
}

func TestRefund_ByParticipant(t *testing.T) {
	svc, ledgerSvc, repos := newTestService(t)
	txn := completedTransfer(t, ledgerSvc, "100")

	refundTxn, err := svc.Refund(context.Background(), Params{
		TransactionID: txn.ID,
		Amount:        d("40"),
		Reason:        "damaged goods",
		RequestedBy:   receiverID,
		RequesterRole: models.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeRefund, refundTxn.Type)
	assert.True(t, refundTxn.Amount.Equal(d("40")))

	sender, err := repos.Wallets.GetByUserAndCurrency(senderID, "USD")
	require.NoError(t, err)
	assert.True(t, sender.AvailableBalance.Equal(d("440")), "sender got the refund back")
}

func TestRefund_SenderMayRequest(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	txn := completedTransfer(t, ledgerSvc, "100")

	_, err := svc.Refund(context.Background(), Params{
		TransactionID: txn.ID,
		RequestedBy:   senderID,
		RequesterRole: models.RoleUser,
	})
	require.NoError(t, err)
}

func TestRefund_OutsiderDenied(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	txn := completedTransfer(t, ledgerSvc, "100")

	_, err := svc.Refund(context.Background(), Params{
		TransactionID: txn.ID,
		RequestedBy:   outsiderID,
		RequesterRole: models.RoleUser,
	})
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestRefund_AdminOverride(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	txn := completedTransfer(t, ledgerSvc, "100")

	_, err := svc.Refund(context.Background(), Params{
		TransactionID: txn.ID,
		RequestedBy:   outsiderID,
		RequesterRole: models.RoleAdmin,
	})
	require.NoError(t, err)
}

func TestRefund_UnknownTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Refund(context.Background(), Params{
		TransactionID: 9999,
		RequestedBy:   senderID,
		RequesterRole: models.RoleUser,
	})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}
