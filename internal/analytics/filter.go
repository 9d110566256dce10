package analytics

import (
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

// RangeStart resolves a date range to its inclusive lower bound in the
// options' location. The boolean is false for All and for unrecognised
// ranges, which place no bound on the date.
func RangeStart(r models.DateRange, now time.Time, opts Options) (time.Time, bool) {
	now = now.In(opts.location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch r {
	case models.DateRangeToday:
		return today, true
	case models.DateRangeThisWeek:
		back := (int(now.Weekday()) - int(opts.WeekStartsOn) + 7) % 7
		return today.AddDate(0, 0, -back), true
	case models.DateRangeThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), true
	case models.DateRangeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}

// FilterTrades returns the trades matching every criterion, in input order.
// The input slice is not modified.
func FilterTrades(trades []models.Trade, c models.FilterCriteria, now time.Time, opts Options) []models.Trade {
	c = c.Normalize()
	start, bounded := RangeStart(c.DateRange, now, opts)

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if bounded && t.Date.Before(start) {
			continue
		}
		if !matches(c.Asset, t.Asset) {
			continue
		}
		if !matches(c.Result, string(t.Result)) {
			continue
		}
		if !matches(c.Direction, string(t.Direction)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(criterion, value string) bool {
	return criterion == models.FilterAll || criterion == value
}
