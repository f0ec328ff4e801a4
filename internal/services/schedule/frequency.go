package schedule

import (
	"time"

	"vaultpay/internal/models"
)

func validFrequency(f string) bool {
	switch f {
	case models.FrequencyOnce, models.FrequencyDaily, models.FrequencyWeekly,
		models.FrequencyBiweekly, models.FrequencyMonthly,
		models.FrequencyQuarterly, models.FrequencyYearly:
		return true
	}
	return false
}

// nextAfter advances a due date by one period. AddDate handles month
// arithmetic, so a Jan 31 monthly schedule lands on Mar 3 rather than
// a nonexistent Feb 31.
func nextAfter(t time.Time, frequency string) time.Time {
	switch frequency {
	case models.FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case models.FrequencyBiweekly:
		return t.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case models.FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case models.FrequencyYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

// rearm recomputes a due date after a pause. Repeating schedules skip
// past the runs they missed; a one-shot keeps its date and fires on
// the next sweep.
func rearm(next time.Time, frequency string, now time.Time) time.Time {
	if frequency == models.FrequencyOnce {
		return next
	}
	for !next.After(now) {
		next = nextAfter(next, frequency)
	}
	return next
}
