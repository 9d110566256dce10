package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownDateRange is returned when a date range name cannot be parsed
var ErrUnknownDateRange = errors.New("unknown date range")

// FilterAll is the sentinel that disables an asset/result/direction filter
const FilterAll = "all"

// DateRange selects the lower bound of the trade date filter
type DateRange string

// Date range constants
const (
	DateRangeAll       DateRange = "all"
	DateRangeToday     DateRange = "today"
	DateRangeThisWeek  DateRange = "this-week"
	DateRangeThisMonth DateRange = "this-month"
	DateRangeThisYear  DateRange = "this-year"
)

// ParseDateRange converts a query value into a DateRange. An empty value is All.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return DateRangeAll, nil
	case DateRangeAll, DateRangeToday, DateRangeThisWeek, DateRangeThisMonth, DateRangeThisYear:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDateRange, s)
	}
}

// FilterCriteria narrows a trade list. Asset, Result and Direction hold
// either FilterAll or a value compared for exact, case-sensitive equality.
type FilterCriteria struct {
	DateRange DateRange `json:"date_range"`
	Asset     string    `json:"asset"`
	Result    string    `json:"result"`
	Direction string    `json:"direction"`
}

// AllTrades returns criteria that keep every trade
func AllTrades() FilterCriteria {
	return FilterCriteria{
		DateRange: DateRangeAll,
		Asset:     FilterAll,
		Result:    FilterAll,
		Direction: FilterAll,
	}
}

// Normalize replaces empty fields with their "all" sentinels
func (c FilterCriteria) Normalize() FilterCriteria {
	if c.DateRange == "" {
		c.DateRange = DateRangeAll
	}
	if c.Asset == "" {
		c.Asset = FilterAll
	}
	if c.Result == "" {
		c.Result = FilterAll
	}
	if c.Direction == "" {
		c.Direction = FilterAll
	}
	return c
}

// Key returns a stable string form of the criteria, used for cache keys.
// Fields are query-escaped so distinct criteria never share a key.
func (c FilterCriteria) Key() string {
	c = c.Normalize()
	return strings.Join([]string{
		url.QueryEscape(string(c.DateRange)),
		url.QueryEscape(c.Asset),
		url.QueryEscape(c.Result),
		url.QueryEscape(c.Direction),
	}, "|")
}
