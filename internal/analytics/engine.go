package analytics

import (
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

// Engine binds the filter and aggregator to a clock and a set of options.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	clock Clock
	opts  Options
}

// NewEngine creates an Engine. A nil clock means the system clock.
func NewEngine(clock Clock, opts Options) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{clock: clock, opts: opts}
}

// Options returns the engine's options
func (e *Engine) Options() Options {
	return e.opts
}

// Now returns the current time of the engine's clock
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// RangeStart resolves r against now in the engine's location
func (e *Engine) RangeStart(r models.DateRange, now time.Time) (time.Time, bool) {
	return RangeStart(r, now, e.opts)
}

// Filter applies c to trades using the clock's current time
func (e *Engine) Filter(trades []models.Trade, c models.FilterCriteria) []models.Trade {
	return e.FilterAt(trades, c, e.clock.Now())
}

// FilterAt applies c to trades as of now
func (e *Engine) FilterAt(trades []models.Trade, c models.FilterCriteria, now time.Time) []models.Trade {
	return FilterTrades(trades, c, now, e.opts)
}

// Aggregate computes statistics over trades
func (e *Engine) Aggregate(trades []models.Trade) models.StatisticsResult {
	return Aggregate(trades, e.opts)
}

// Compute filters trades by c and aggregates the result
func (e *Engine) Compute(trades []models.Trade, c models.FilterCriteria) models.StatisticsResult {
	return e.Aggregate(e.Filter(trades, c))
}
