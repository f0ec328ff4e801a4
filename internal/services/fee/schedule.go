package fee

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"vaultpay/internal/models"
)

// Rule prices one transaction type: a percentage in basis points plus
// a fixed component, clamped to [Min, Max]. A zero Max means no cap.
type Rule struct {
	PercentBps int64
	Fixed      decimal.Decimal
	Min        decimal.Decimal
	Max        decimal.Decimal
}

// Schedule is the authoritative pricing table: fee rules keyed by
// transaction type and static conversion rates keyed by "FROM/TO".
type Schedule struct {
	Fees  map[string]Rule
	Rates map[string]decimal.Decimal
}

// DefaultSchedule is used when no schedule file is configured.
// Transfers and deposits are free; payments carry the merchant rate.
func DefaultSchedule() Schedule {
	return Schedule{
		Fees: map[string]Rule{
			models.TransactionTypePayment: {
				PercentBps: 250,
			},
			models.TransactionTypeWithdrawal: {
				PercentBps: 150,
			},
			models.TransactionTypePayout: {
				PercentBps: 100,
				Fixed:      decimal.RequireFromString("0.25"),
			},
			models.TransactionTypeConversion: {
				PercentBps: 50,
				Fixed:      decimal.RequireFromString("0.10"),
			},
		},
		Rates: map[string]decimal.Decimal{
			"USD/EUR": decimal.RequireFromString("0.92"),
			"USD/GBP": decimal.RequireFromString("0.79"),
			"EUR/USD": decimal.RequireFromString("1.09"),
			"GBP/USD": decimal.RequireFromString("1.27"),
		},
	}
}

// YAML carriers; decimals travel as strings so the file stays exact.
type ruleYAML struct {
	PercentBps int64  `yaml:"percent_bps"`
	Fixed      string `yaml:"fixed"`
	Min        string `yaml:"min"`
	Max        string `yaml:"max"`
}

type scheduleYAML struct {
	Fees  map[string]ruleYAML `yaml:"fees"`
	Rates map[string]string   `yaml:"rates"`
}

// LoadSchedule parses a YAML schedule file.
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to read fee schedule: %w", err)
	}
	return ParseSchedule(data)
}

// ParseSchedule parses YAML schedule bytes.
func ParseSchedule(data []byte) (Schedule, error) {
	var raw scheduleYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schedule{}, fmt.Errorf("failed to parse fee schedule: %w", err)
	}

	sched := Schedule{
		Fees:  make(map[string]Rule, len(raw.Fees)),
		Rates: make(map[string]decimal.Decimal, len(raw.Rates)),
	}
	for txType, r := range raw.Fees {
		rule := Rule{PercentBps: r.PercentBps}
		var err error
		if rule.Fixed, err = parseDecimal(r.Fixed); err != nil {
			return Schedule{}, fmt.Errorf("fee schedule %s fixed: %w", txType, err)
		}
		if rule.Min, err = parseDecimal(r.Min); err != nil {
			return Schedule{}, fmt.Errorf("fee schedule %s min: %w", txType, err)
		}
		if rule.Max, err = parseDecimal(r.Max); err != nil {
			return Schedule{}, fmt.Errorf("fee schedule %s max: %w", txType, err)
		}
		sched.Fees[txType] = rule
	}
	for pair, v := range raw.Rates {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return Schedule{}, fmt.Errorf("fee schedule rate %s: %w", pair, err)
		}
		sched.Rates[pair] = rate
	}
	return sched, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
