package ledger

import "time"

// =============================================================================
// INTERVAL - Bucket length for balance history
// =============================================================================

type Interval string

const (
	IntervalHour  Interval = "hour"
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// DefaultInterval and DefaultIntervalCount are used when the caller does not
// specify a window.
const (
	DefaultInterval      = IntervalWeek
	DefaultIntervalCount = 24
)

// ParseInterval validates an interval string. The empty string selects the
// default. Unknown values fail with InvalidParameter.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case "":
		return DefaultInterval, nil
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return Interval(s), nil
	default:
		return "", &InvalidParameterError{Param: "interval", Value: s}
	}
}

// shift moves t by n intervals. Hours, days and weeks are fixed durations;
// months and years step with calendar arithmetic so a "month" bucket ending
// March 15 starts February 15.
func (iv Interval) shift(t time.Time, n int) time.Time {
	switch iv {
	case IntervalHour:
		return t.Add(time.Duration(n) * time.Hour)
	case IntervalDay:
		return t.AddDate(0, 0, n)
	case IntervalWeek:
		return t.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return t.AddDate(0, n, 0)
	case IntervalYear:
		return t.AddDate(n, 0, 0)
	default:
		return t
	}
}

// WindowBounds returns count+1 ascending boundaries for count consecutive
// buckets ending at now. Bucket i spans (bounds[i], bounds[i+1]].
func WindowBounds(now time.Time, iv Interval, count int) ([]time.Time, error) {
	if count < 1 {
		return nil, &InvalidParameterError{Param: "intervals", Value: ""}
	}
	bounds := make([]time.Time, count+1)
	for i := 0; i <= count; i++ {
		bounds[i] = iv.shift(now, i-count)
	}
	return bounds, nil
}

// =============================================================================
// SESSION CLOCK & MONTH ARITHMETIC
// =============================================================================

// ClockOf returns the session clock derived from a transaction list: the date
// of the newest transaction, or the zero time for an empty session. Goal
// accrual and payment-request due-date checks advance with this clock rather
// than wall time, so analytics stay a pure function of the ledger snapshot.
func ClockOf(txs []Transaction) time.Time {
	var clock time.Time
	for _, tx := range txs {
		if tx.Date.After(clock) {
			clock = tx.Date
		}
	}
	return clock
}

// WholeMonthsBetween returns the number of whole calendar months elapsed from
// one instant to a later one. Returns 0 when to precedes from.
func WholeMonthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := 0
	for !from.AddDate(0, months+1, 0).After(to) {
		months++
	}
	return months
}
