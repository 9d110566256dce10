package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a trade date cannot be normalized
var ErrInvalidDate = errors.New("invalid trade date")

// layouts without a zone are read in the normalizer's location
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate converts the date representations found in stored trades into
// a time.Time. Strings carrying an offset keep it; zone-less strings and
// date-only values are read in loc. Numbers are unix seconds.
func ParseDate(v any, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return d, nil
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return *d, nil
	case string:
		return parseDateString(d, loc)
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, d)
		}
		sec, frac := math.Modf(d)
		return time.Unix(int64(sec), int64(frac*1e9)).In(loc), nil
	case int64:
		return time.Unix(d, 0).In(loc), nil
	case int:
		return time.Unix(int64(d), 0).In(loc), nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing", ErrInvalidDate)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, v)
	}
}

func parseDateString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
