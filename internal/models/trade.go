package models

import (
	"math"
	"time"
)

// Direction of a trade
type Direction string

// Direction constants
const (
	DirectionBuy  Direction = "Buy"
	DirectionSell Direction = "Sell"
)

// Result of a closed trade
type Result string

// Result constants
const (
	ResultWin  Result = "Win"
	ResultLoss Result = "Loss"
	ResultBE   Result = "BE"
)

// Valid reports whether d is one of the known directions
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Valid reports whether r is one of the known results
func (r Result) Valid() bool {
	return r == ResultWin || r == ResultLoss || r == ResultBE
}

// Trade represents a single journal entry.
//
// Date is always normalized to time.Time before a Trade is built; string
// dates from the store are converted by the ingest package. PostAnalysis is
// the review note written after the trade and is not part of the trade
// form; only the review flow sets it. EntryPrice,
// StopLoss and TakeProfit are optional, a nil price keeps the trade out of
// the reward/risk sums but not out of P/L or win-rate.
type Trade struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`
	Asset         string    `json:"asset"`
	Direction     Direction `json:"direction"`
	EntryPrice    *float64  `json:"entry_price,omitempty"`
	StopLoss      *float64  `json:"stop_loss,omitempty"`
	TakeProfit    *float64  `json:"take_profit,omitempty"`
	Result        Result    `json:"result"`
	Pnl           float64   `json:"pnl"`
	LotSize       *float64  `json:"lot_size,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ScreenshotURL string    `json:"screenshot_url,omitempty"`
	PostAnalysis  string    `json:"post_analysis,omitempty"`
	Source        string    `json:"source,omitempty"`
	ExternalID    string    `json:"external_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reward returns the distance between take profit and entry, if both are set
func (t *Trade) Reward() (float64, bool) {
	if t.TakeProfit == nil || t.EntryPrice == nil {
		return 0, false
	}
	return math.Abs(*t.TakeProfit - *t.EntryPrice), true
}

// Risk returns the distance between entry and stop loss, if both are set
func (t *Trade) Risk() (float64, bool) {
	if t.EntryPrice == nil || t.StopLoss == nil {
		return 0, false
	}
	return math.Abs(*t.EntryPrice - *t.StopLoss), true
}

// Float returns a pointer to v, handy for optional price fields
func Float(v float64) *float64 {
	return &v
}
