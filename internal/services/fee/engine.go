// Package fee is the single pricing authority. Every fee charged
// anywhere in the system comes out of Engine.Calculate, and every
// conversion rate out of Engine.ConversionRate.
package fee

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrRateUnavailable = errors.New("conversion rate not configured")

var (
	one        = decimal.NewFromInt(1)
	bpsDivisor = decimal.NewFromInt(10000)
)

// Engine evaluates the loaded schedule. It is pure: no clock, no
// storage, same inputs same outputs.
type Engine struct {
	schedule Schedule
}

func NewEngine(schedule Schedule) *Engine {
	if schedule.Fees == nil {
		schedule.Fees = map[string]Rule{}
	}
	if schedule.Rates == nil {
		schedule.Rates = map[string]decimal.Decimal{}
	}
	return &Engine{schedule: schedule}
}

// Calculate returns the fee for moving amount under the given
// transaction type. Types without a rule are free. The result is
// rounded to 2 decimal places and clamped to [0, amount]; callers
// validate that amount is positive before pricing it.
func (e *Engine) Calculate(txType string, amount decimal.Decimal) decimal.Decimal {
	rule, ok := e.schedule.Fees[txType]
	if !ok {
		return decimal.Zero
	}

	fee := amount.Mul(decimal.NewFromInt(rule.PercentBps)).Div(bpsDivisor)
	fee = fee.Add(rule.Fixed)

	if fee.LessThan(rule.Min) {
		fee = rule.Min
	}
	if rule.Max.IsPositive() && fee.GreaterThan(rule.Max) {
		fee = rule.Max
	}

	fee = fee.Round(2)
	if fee.IsNegative() {
		return decimal.Zero
	}
	if fee.GreaterThan(amount) {
		return amount
	}
	return fee
}

// ConversionRate returns the configured static rate from one currency
// to another. Missing pairs fall back to the inverse of the reverse
// pair when that is configured.
func (e *Engine) ConversionRate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return one, nil
	}
	if rate, ok := e.schedule.Rates[from+"/"+to]; ok {
		return rate, nil
	}
	if rate, ok := e.schedule.Rates[to+"/"+from]; ok && rate.IsPositive() {
		return one.DivRound(rate, 6), nil
	}
	return decimal.Zero, ErrRateUnavailable
}
