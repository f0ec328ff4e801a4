package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultpay/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateDefaults(t *testing.T) {
	e := NewEngine(DefaultSchedule())

	tests := []struct {
		name   string
		txType string
		amount string
		want   string
	}{
		{"transfers are free", models.TransactionTypeTransferOut, "100.00", "0"},
		{"deposits are free", models.TransactionTypeDeposit, "250.00", "0"},
		{"payment 2.5 percent", models.TransactionTypePayment, "100.00", "2.50"},
		{"withdrawal 1.5 percent", models.TransactionTypeWithdrawal, "200.00", "3.00"},
		{"payout percent plus fixed", models.TransactionTypePayout, "100.00", "1.25"},
		{"conversion percent plus fixed", models.TransactionTypeConversion, "100.00", "0.60"},
		{"unknown type free", "MYSTERY", "500.00", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Calculate(tt.txType, d(tt.amount))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestCalculateRoundsToCents(t *testing.T) {
	e := NewEngine(DefaultSchedule())

	// 33.33 * 1.5% = 0.49995 -> 0.50
	got := e.Calculate(models.TransactionTypeWithdrawal, d("33.33"))
	assert.True(t, got.Equal(d("0.50")), "got %s", got)

	// 0.10 * 1.5% = 0.0015 -> 0.00
	got = e.Calculate(models.TransactionTypeWithdrawal, d("0.10"))
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestCalculateDeterministic(t *testing.T) {
	e := NewEngine(DefaultSchedule())
	amount := d("123.45")

	first := e.Calculate(models.TransactionTypePayment, amount)
	for i := 0; i < 100; i++ {
		assert.True(t, first.Equal(e.Calculate(models.TransactionTypePayment, amount)))
	}
}

func TestCalculateClamps(t *testing.T) {
	e := NewEngine(Schedule{
		Fees: map[string]Rule{
			"CAPPED": {PercentBps: 1000, Min: d("1.00"), Max: d("5.00")},
			"STEEP":  {PercentBps: 10000, Fixed: d("10.00")},
		},
	})

	// Below min: 1.00 floor
	assert.True(t, e.Calculate("CAPPED", d("5.00")).Equal(d("1.00")))
	// Above max: 5.00 ceiling
	assert.True(t, e.Calculate("CAPPED", d("500.00")).Equal(d("5.00")))
	// Fee never exceeds the amount itself
	assert.True(t, e.Calculate("STEEP", d("3.00")).Equal(d("3.00")))
}

func TestConversionRate(t *testing.T) {
	e := NewEngine(DefaultSchedule())

	rate, err := e.ConversionRate("USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.92")))

	same, err := e.ConversionRate("USD", "USD")
	require.NoError(t, err)
	assert.True(t, same.Equal(d("1")))

	// GBP/EUR is only derivable if one direction is configured; it is not.
	_, err = e.ConversionRate("GBP", "JPY")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConversionRateInverse(t *testing.T) {
	e := NewEngine(Schedule{
		Rates: map[string]decimal.Decimal{"USD/CHF": d("0.88")},
	})

	rate, err := e.ConversionRate("CHF", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("1.136364")), "got %s", rate)
}

func TestParseSchedule(t *testing.T) {
	data := []byte(`
fees:
  PAYMENT:
    percent_bps: 300
    min: "0.50"
  WITHDRAWAL:
    percent_bps: 100
    fixed: "0.25"
    max: "20.00"
rates:
  USD/EUR: "0.95"
`)
	sched, err := ParseSchedule(data)
	require.NoError(t, err)

	e := NewEngine(sched)
	assert.True(t, e.Calculate(models.TransactionTypePayment, d("10.00")).Equal(d("0.50")))
	assert.True(t, e.Calculate(models.TransactionTypeWithdrawal, d("100.00")).Equal(d("1.25")))

	rate, err := e.ConversionRate("USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(d("0.95")))
}

func TestParseScheduleRejectsBadDecimal(t *testing.T) {
	_, err := ParseSchedule([]byte("fees:\n  PAYMENT:\n    fixed: \"abc\"\n"))
	assert.Error(t, err)
}
