package analytics

import (
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func utcOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	return opts
}

func trade(id string, date time.Time, result models.Result, pnl float64) models.Trade {
	return models.Trade{
		ID:        id,
		UserID:    "user-1",
		Date:      date,
		Asset:     "EUR/USD",
		Direction: models.DirectionBuy,
		Result:    result,
		Pnl:       pnl,
	}
}
