package ledger

import (
	"context"
	"strings"
	"testing"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/reference"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory
	// database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.Migrate(db))
	return db
}

func newTestService(t *testing.T) (Service, *repositories.Registry, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	repos := repositories.NewRegistry(db, nil, zap.NewNop().Sugar())
	svc := NewService(db, repos, fee.NewEngine(fee.DefaultSchedule()), reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, Config{})
	return svc, repos, db
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %s, got %s", want, got)
}

func mustDeposit(t *testing.T, svc Service, userID uint, amount string) *models.Transaction {
	t.Helper()
	txn, err := svc.Deposit(context.Background(), DepositParams{
		UserID: userID,
		Amount: d(amount),
	})
	require.NoError(t, err)
	return txn
}

func getWallet(t *testing.T, repos *repositories.Registry, userID uint) *models.Wallet {
	t.Helper()
	w, err := repos.Wallets.GetByUserAndCurrency(userID, "USD")
	require.NoError(t, err)
	return w
}

func TestDeposit_CreatesWalletAndLedgerEntry(t *testing.T) {
	svc, repos, _ := newTestService(t)

	txn := mustDeposit(t, svc, 1, "50.00")

	assert.Equal(t, models.TransactionTypeDeposit, txn.Type)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotNil(t, txn.ProcessedAt)
	assert.True(t, strings.HasPrefix(txn.ReferenceID, "DEP-"))

	w := getWallet(t, repos, 1)
	assert.True(t, w.IsDefault)
	assert.True(t, w.IsActive)
	assertDec(t, "50.00", w.Balance)
	assertDec(t, "50.00", w.AvailableBalance)
	assert.True(t, w.Consistent())

	entries, err := repos.Ledger.ListForTransaction(txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerEntryCredit, entries[0].EntryType)
	assertDec(t, "0", entries[0].BalanceBefore)
	assertDec(t, "50.00", entries[0].BalanceAfter)
	assert.Equal(t, txn.ReferenceID, entries[0].ReferenceID)
}

func TestDeposit_RejectsBadAmounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		amount string
		want   error
	}{
		{"zero", "0", ErrInvalidAmount},
		{"negative", "-5.00", ErrInvalidAmount},
		{"sub-cent precision", "1.999", ErrInvalidAmount},
		{"over limit", "1000000.01", ErrAmountTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Deposit(ctx, DepositParams{UserID: 1, Amount: d(tc.amount)})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTransfer_MovesFundsBetweenWallets(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	txn, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     d("25.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeTransferOut, txn.Type)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.True(t, strings.HasPrefix(txn.ReferenceID, "TFR-"))
	assertDec(t, "25.00", txn.Amount)
	assertDec(t, "0", txn.Fee)
	assertDec(t, "25.00", txn.NetAmount)

	sender := getWallet(t, repos, 1)
	receiver := getWallet(t, repos, 2)
	assertDec(t, "75.00", sender.AvailableBalance)
	assertDec(t, "25.00", receiver.AvailableBalance)
	assert.True(t, receiver.IsDefault, "first wallet for the receiver should be default")
	assert.True(t, sender.Consistent())
	assert.True(t, receiver.Consistent())

	entries, err := repos.Ledger.ListForTransaction(txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestTransfer_InsufficientFundsRollsBack(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "10.00")

	_, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     d("50.00"),
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	sender := getWallet(t, repos, 1)
	assertDec(t, "10.00", sender.AvailableBalance)

	count, err := repos.Transactions.CountForUser(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "only the funding deposit should exist")
}

func TestTransfer_RejectsSelfTransfer(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustDeposit(t, svc, 1, "10.00")

	_, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 1,
		Amount:     d("5.00"),
	})
	assert.ErrorIs(t, err, ErrSelfTransfer)
}

func TestTransfer_RejectsInactiveWallet(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")
	mustDeposit(t, svc, 2, "1.00")

	receiver := getWallet(t, repos, 2)
	require.NoError(t, repos.Wallets.UpdateStatus(receiver.ID, false, "compliance hold"))

	_, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     d("5.00"),
	})
	assert.ErrorIs(t, err, ErrWalletInactive)
}

func TestTransfer_SenderWalletMissing(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   99,
		ReceiverID: 2,
		Amount:     d("5.00"),
	})
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestTransfer_IdempotentReplayMovesMoneyOnce(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	params := TransferParams{
		SenderID:       1,
		ReceiverID:     2,
		Amount:         d("25.00"),
		IdempotencyKey: "req-abc-123",
	}
	first, err := svc.Transfer(context.Background(), params)
	require.NoError(t, err)
	second, err := svc.Transfer(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReferenceID, second.ReferenceID)

	sender := getWallet(t, repos, 1)
	assertDec(t, "75.00", sender.AvailableBalance)
}

func TestTransfer_FeeConservation(t *testing.T) {
	db := newTestDB(t)
	repos := repositories.NewRegistry(db, nil, zap.NewNop().Sugar())
	schedule := fee.DefaultSchedule()
	schedule.Fees[models.TransactionTypeTransferOut] = fee.Rule{PercentBps: 100}
	svc := NewService(db, repos, fee.NewEngine(schedule), reference.NewGenerator(), nil, zap.NewNop().Sugar(), nil, Config{})

	mustDeposit(t, svc, 1, "100.00")
	txn, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     d("50.00"),
	})
	require.NoError(t, err)

	assertDec(t, "0.50", txn.Fee)
	assertDec(t, "49.50", txn.NetAmount)

	entries, err := repos.Ledger.ListForTransaction(txn.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var debited, credited decimal.Decimal
	for _, e := range entries {
		switch e.EntryType {
		case models.LedgerEntryDebit:
			debited = debited.Add(e.Amount)
		case models.LedgerEntryCredit:
			credited = credited.Add(e.Amount)
		}
	}
	assert.True(t, debited.Equal(credited.Add(txn.Fee)), "debits must equal credits plus fee")
}

func TestWithdrawal_HoldThenSettle(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	hold, err := svc.InitiateWithdrawal(context.Background(), WithdrawParams{
		UserID: 1,
		Amount: d("40.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionStatusPending, hold.Status)
	assert.True(t, strings.HasPrefix(hold.ReferenceID, "WTH-"))
	assertDec(t, "0.60", hold.Fee)

	w := getWallet(t, repos, 1)
	assertDec(t, "59.40", w.AvailableBalance)
	assertDec(t, "40.60", w.PendingBalance)
	assertDec(t, "100.00", w.Balance)
	assert.True(t, w.Consistent())

	settled, err := svc.Settle(context.Background(), hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, settled.Status)
	assert.NotNil(t, settled.ProcessedAt)

	w = getWallet(t, repos, 1)
	assertDec(t, "59.40", w.AvailableBalance)
	assertDec(t, "0", w.PendingBalance)
	assertDec(t, "59.40", w.Balance)

	entries, err := repos.Ledger.ListForTransaction(hold.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the hold itself writes no entry; settlement writes the debit")
	assert.Equal(t, models.LedgerEntryDebit, entries[0].EntryType)
	assertDec(t, "40.60", entries[0].Amount)
}

func TestWithdrawal_FailReleasesHold(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	hold, err := svc.InitiateWithdrawal(context.Background(), WithdrawParams{
		UserID: 1,
		Amount: d("40.00"),
	})
	require.NoError(t, err)

	failed, err := svc.Fail(context.Background(), hold.ID, "bank rejected")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)
	assert.Equal(t, "bank rejected", failed.FailureReason)

	w := getWallet(t, repos, 1)
	assertDec(t, "100.00", w.AvailableBalance)
	assertDec(t, "0", w.PendingBalance)
	assertDec(t, "100.00", w.Balance)

	entries, err := repos.Ledger.ListForTransaction(hold.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "a released hold never changed the total")
}

func TestWithdrawal_HoldCoversFee(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustDeposit(t, svc, 1, "40.00")

	// 40.00 available cannot cover 40.00 plus the 0.60 fee.
	_, err := svc.InitiateWithdrawal(context.Background(), WithdrawParams{
		UserID: 1,
		Amount: d("40.00"),
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSettle_RejectsWrongStateAndType(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")
	ctx := context.Background()

	transfer, err := svc.Transfer(ctx, TransferParams{SenderID: 1, ReceiverID: 2, Amount: d("5.00")})
	require.NoError(t, err)
	_, err = svc.Settle(ctx, transfer.ID)
	assert.ErrorIs(t, err, ErrNotSettleable)

	hold, err := svc.InitiateWithdrawal(ctx, WithdrawParams{UserID: 1, Amount: d("10.00")})
	require.NoError(t, err)
	_, err = svc.Settle(ctx, hold.ID)
	require.NoError(t, err)
	_, err = svc.Settle(ctx, hold.ID)
	assert.ErrorIs(t, err, ErrNotSettleable)

	_, err = svc.Settle(ctx, 9999)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestPayout_HoldsGrossWithFee(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 7, "500.00")

	hold, err := svc.InitiatePayout(context.Background(), PayoutParams{
		MerchantID: 7,
		Amount:     d("200.00"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hold.ReferenceID, "PYT-"))
	// 1% plus the 0.25 fixed component.
	assertDec(t, "2.25", hold.Fee)

	w := getWallet(t, repos, 7)
	assertDec(t, "297.75", w.AvailableBalance)
	assertDec(t, "202.25", w.PendingBalance)
}

func TestPayment_WalletSourcePayeeAbsorbsFee(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	txn, err := svc.Pay(context.Background(), PaymentParams{
		PayerID: 1,
		PayeeID: 2,
		Amount:  d("40.00"),
		Source:  PaymentSource{Kind: SourceWallet},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(txn.ReferenceID, "PAY-"))
	assertDec(t, "1.00", txn.Fee)
	assertDec(t, "39.00", txn.NetAmount)

	payer := getWallet(t, repos, 1)
	payee := getWallet(t, repos, 2)
	assertDec(t, "60.00", payer.AvailableBalance)
	assertDec(t, "39.00", payee.AvailableBalance)
}

func TestPayment_CardSourceCreditsPayeeOnly(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	txn, err := svc.Pay(context.Background(), PaymentParams{
		PayerID: 1,
		PayeeID: 2,
		Amount:  d("40.00"),
		Source:  PaymentSource{Kind: SourceCard, CardToken: "tok_visa_4242"},
	})
	require.NoError(t, err)

	assert.Nil(t, txn.SenderWalletID)
	assert.Equal(t, "card", txn.Metadata["source"])

	payer := getWallet(t, repos, 1)
	payee := getWallet(t, repos, 2)
	// Card payments never touch the payer wallet.
	assertDec(t, "100.00", payer.AvailableBalance)
	assertDec(t, "39.00", payee.AvailableBalance)
}

func TestPayment_CardSourceRequiresToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Pay(context.Background(), PaymentParams{
		PayerID: 1,
		PayeeID: 2,
		Amount:  d("10.00"),
		Source:  PaymentSource{Kind: SourceCard},
	})
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestRefund_PartialThenFull(t *testing.T) {
	svc, repos, _ := newTestService(t)
	ctx := context.Background()
	mustDeposit(t, svc, 1, "100.00")

	payment, err := svc.Pay(ctx, PaymentParams{
		PayerID: 1,
		PayeeID: 2,
		Amount:  d("40.00"),
		Source:  PaymentSource{Kind: SourceWallet},
	})
	require.NoError(t, err)

	partial, err := svc.Refund(ctx, RefundParams{
		TransactionID: payment.ID,
		Amount:        d("10.00"),
		Reason:        "damaged item",
		RequestedBy:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeRefund, partial.Type)
	assert.True(t, strings.HasPrefix(partial.ReferenceID, "RFN-"))
	require.NotNil(t, partial.OriginalTransactionID)
	assert.Equal(t, payment.ID, *partial.OriginalTransactionID)

	payer := getWallet(t, repos, 1)
	payee := getWallet(t, repos, 2)
	assertDec(t, "70.00", payer.AvailableBalance)
	assertDec(t, "29.00", payee.AvailableBalance)

	orig, err := repos.Transactions.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, orig.Status, "a partial refund leaves the original standing")

	// Zero amount refunds whatever remains; the fee is not returned.
	full, err := svc.Refund(ctx, RefundParams{
		TransactionID: payment.ID,
		RequestedBy:   2,
	})
	require.NoError(t, err)
	assertDec(t, "29.00", full.Amount)

	payer = getWallet(t, repos, 1)
	payee = getWallet(t, repos, 2)
	assertDec(t, "99.00", payer.AvailableBalance)
	assertDec(t, "0", payee.AvailableBalance)

	orig, err = repos.Transactions.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusReversed, orig.Status)

	_, err = svc.Refund(ctx, RefundParams{TransactionID: payment.ID, RequestedBy: 2})
	assert.ErrorIs(t, err, ErrAlreadyRefunded)
}

func TestRefund_OverAskCapsToRemainder(t *testing.T) {
	svc, repos, _ := newTestService(t)
	ctx := context.Background()
	mustDeposit(t, svc, 1, "100.00")

	payment, err := svc.Pay(ctx, PaymentParams{
		PayerID: 1,
		PayeeID: 2,
		Amount:  d("40.00"),
		Source:  PaymentSource{Kind: SourceWallet},
	})
	require.NoError(t, err)

	partial, err := svc.Refund(ctx, RefundParams{
		TransactionID: payment.ID,
		Amount:        d("25.00"),
		RequestedBy:   2,
	})
	require.NoError(t, err)
	assertDec(t, "25.00", partial.Amount)

	// Net was 39.00 after the fee, so 14.00 is all that is left. A
	// request for 60.00 collapses to the remainder instead of failing.
	second, err := svc.Refund(ctx, RefundParams{
		TransactionID: payment.ID,
		Amount:        d("60.00"),
		RequestedBy:   2,
	})
	require.NoError(t, err)
	assertDec(t, "14.00", second.Amount)

	payer := getWallet(t, repos, 1)
	payee := getWallet(t, repos, 2)
	assertDec(t, "99.00", payer.AvailableBalance)
	assertDec(t, "0", payee.AvailableBalance)

	orig, err := repos.Transactions.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusReversed, orig.Status, "capping to the remainder still closes the original out")
}

func TestRefund_OnlyRefundableTypes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	deposit := mustDeposit(t, svc, 1, "100.00")
	_, err := svc.Refund(ctx, RefundParams{TransactionID: deposit.ID, RequestedBy: 1})
	assert.ErrorIs(t, err, ErrNotRefundable)

	hold, err := svc.InitiateWithdrawal(ctx, WithdrawParams{UserID: 1, Amount: d("10.00")})
	require.NoError(t, err)
	_, err = svc.Refund(ctx, RefundParams{TransactionID: hold.ID, RequestedBy: 1})
	assert.ErrorIs(t, err, ErrNotRefundable)

	_, err = svc.Refund(ctx, RefundParams{TransactionID: 9999, RequestedBy: 1})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestConvert_AppliesRateAndFee(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	txn, err := svc.Convert(context.Background(), ConvertParams{
		UserID:       1,
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       d("50.00"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(txn.ReferenceID, "CNV-"))
	// 0.5% of 50.00 plus the 0.10 fixed component is 0.35; the
	// remaining 49.65 converts at 0.92.
	assertDec(t, "0.35", txn.Fee)
	assertDec(t, "45.68", txn.NetAmount)
	assert.Equal(t, "EUR", txn.Metadata["target_currency"])

	usd := getWallet(t, repos, 1)
	assertDec(t, "50.00", usd.AvailableBalance)

	eur, err := repos.Wallets.GetByUserAndCurrency(1, "EUR")
	require.NoError(t, err)
	assertDec(t, "45.68", eur.AvailableBalance)
	assert.False(t, eur.IsDefault, "the USD wallet came first")
}

func TestConvert_RateUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	_, err := svc.Convert(context.Background(), ConvertParams{
		UserID:       1,
		FromCurrency: "USD",
		ToCurrency:   "JPY",
		Amount:       d("50.00"),
	})
	assert.ErrorIs(t, err, fee.ErrRateUnavailable)
}

func TestReconcile_ReplaysLedgerAgainstBalance(t *testing.T) {
	svc, repos, db := newTestService(t)
	ctx := context.Background()
	mustDeposit(t, svc, 1, "100.00")

	_, err := svc.Transfer(ctx, TransferParams{SenderID: 1, ReceiverID: 2, Amount: d("25.00")})
	require.NoError(t, err)
	hold, err := svc.InitiateWithdrawal(ctx, WithdrawParams{UserID: 1, Amount: d("20.00")})
	require.NoError(t, err)
	_, err = svc.Settle(ctx, hold.ID)
	require.NoError(t, err)

	w := getWallet(t, repos, 1)
	report, err := svc.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.True(t, report.Balance.Equal(report.Replayed))
	assert.Equal(t, int64(3), report.EntryCount)

	// Corrupt the stored balance out of band; replaying the entries
	// must expose it.
	require.NoError(t, db.Model(&models.Wallet{}).Where("id = ?", w.ID).
		Update("balance", d("999.00")).Error)
	report, err = svc.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
}

func TestAtomic_RollsBackOnClosureError(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")
	w := getWallet(t, repos, 1)

	boom := assert.AnError
	err := svc.Atomic(context.Background(), func(op *Scope) error {
		locked, err := op.LockWallet(w.ID)
		if err != nil {
			return err
		}
		if err := op.Reclassify(locked, BucketAvailable, BucketReserved, d("10.00")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	fresh := getWallet(t, repos, 1)
	assertDec(t, "100.00", fresh.AvailableBalance)
	assertDec(t, "0", fresh.ReservedBalance)
}

func TestMovements_EmitOutboxEvents(t *testing.T) {
	svc, repos, _ := newTestService(t)
	mustDeposit(t, svc, 1, "100.00")

	txn, err := svc.Transfer(context.Background(), TransferParams{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     d("25.00"),
	})
	require.NoError(t, err)

	events, err := repos.Outbox.FetchUnprocessed(10)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var found bool
	for _, e := range events {
		if e.EventType == models.EventTransactionCompleted && e.AggregateID == txn.ReferenceID {
			found = true
		}
	}
	assert.True(t, found, "transfer completion should land in the outbox")
}
