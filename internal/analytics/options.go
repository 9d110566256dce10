package analytics

import (
	"fmt"
	"strings"
	"time"
)

// WinRateDenominator selects which trades the win rate is divided by
type WinRateDenominator string

const (
	// DenominatorTotal divides by every trade, breakevens included
	DenominatorTotal WinRateDenominator = "total"
	// DenominatorDecisive divides by wins plus losses only
	DenominatorDecisive WinRateDenominator = "decisive"
)

// Options configures calendar and ratio conventions. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// Location is the timezone every calendar computation happens in.
	Location *time.Location
	// WeekStartsOn is the first day of the "this-week" range.
	WeekStartsOn       time.Weekday
	WinRateDenominator WinRateDenominator
	// IncludeWeekends adds Sat and Sun buckets to the weekday breakdown.
	IncludeWeekends bool
}

// DefaultOptions returns Monday-start weeks, process local time, win rate
// over all trades and a Monday to Friday weekday breakdown.
func DefaultOptions() Options {
	return Options{
		Location:           time.Local,
		WeekStartsOn:       time.Monday,
		WinRateDenominator: DenominatorTotal,
	}
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Key returns a stable string form of the options, used for cache keys
func (o Options) Key() string {
	return fmt.Sprintf("%s|%d|%s|%t", o.location().String(), o.WeekStartsOn, o.WinRateDenominator, o.IncludeWeekends)
}

// ParseWeekday accepts full or three-letter English day names
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

// ParseWinRateDenominator accepts "total" or "decisive"
func ParseWinRateDenominator(s string) (WinRateDenominator, error) {
	switch d := WinRateDenominator(strings.ToLower(strings.TrimSpace(s))); d {
	case DenominatorTotal, DenominatorDecisive:
		return d, nil
	case "":
		return DenominatorTotal, nil
	default:
		return "", fmt.Errorf("invalid win rate denominator: %q", s)
	}
}
