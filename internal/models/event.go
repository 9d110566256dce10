package models

import "time"

// Journal event types published on the outbound topic
const (
	EventTradeCreated    = "TRADE_CREATED"
	EventTradeUpdated    = "TRADE_UPDATED"
	EventTradeDeleted    = "TRADE_DELETED"
	EventTradeReviewed   = "TRADE_REVIEWED"
	EventShareLinkIssued = "SHARE_LINK_ISSUED"
)

// EventTradeImported is the only inbound event type the consumer acts on
const EventTradeImported = "TRADE_IMPORTED"

// JournalEvent represents a Kafka event for journal changes
type JournalEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	TradeID   string    `json:"trade_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RawTrade is a trade record as it arrives from outside the service.
// Date may be a string (ISO-8601 or YYYY-MM-DD) or unix seconds, and the
// enum fields are not yet validated.
type RawTrade struct {
	UserID        string   `json:"userId"`
	Date          any      `json:"date"`
	Asset         string   `json:"asset"`
	Direction     string   `json:"direction"`
	EntryPrice    *float64 `json:"entryPrice,omitempty"`
	StopLoss      *float64 `json:"stopLoss,omitempty"`
	TakeProfit    *float64 `json:"takeProfit,omitempty"`
	Result        string   `json:"result"`
	Pnl           *float64 `json:"pnl,omitempty"`
	LotSize       *float64 `json:"lotSize,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	ScreenshotURL string   `json:"screenshotUrl,omitempty"`
}

// TradeImportEvent carries a trade imported from an external journal or broker
type TradeImportEvent struct {
	EventType  string   `json:"event_type"`
	Source     string   `json:"source"`
	ExternalID string   `json:"external_id"`
	Timestamp  string   `json:"timestamp"`
	Data       RawTrade `json:"data"`
}
