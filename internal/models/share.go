package models

import "time"

// ShareToken grants read-only access to a user's journal until ExpiresAt
type ShareToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is no longer valid at now
func (s *ShareToken) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// JournalView is a filtered trade list and the statistics computed from it.
// A share link resolves to one.
type JournalView struct {
	UserID string           `json:"user_id"`
	Trades []Trade          `json:"trades"`
	Stats  StatisticsResult `json:"stats"`
}
