package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/trogers1052/trading-journal/internal/models"
)

// mockTradeStore implements TradeStore in memory
type mockTradeStore struct {
	mu      sync.Mutex
	trades  map[string]models.Trade
	nextID  int
	listErr error

	ListCalls int
}

func newMockTradeStore(trades ...models.Trade) *mockTradeStore {
	m := &mockTradeStore{trades: make(map[string]models.Trade)}
	for _, t := range trades {
		m.trades[t.ID] = t
	}
	return m
}

func (m *mockTradeStore) CreateTrade(_ context.Context, t *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = fmt.Sprintf("trade-%d", m.nextID)
	m.trades[t.ID] = *t
	return nil
}

func (m *mockTradeStore) GetTrade(_ context.Context, userID, id string) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (m *mockTradeStore) ListTradesByUser(_ context.Context, userID string) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Trade{}
	for _, t := range m.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockTradeStore) UpdateTrade(_ context.Context, t *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trades[t.ID]
	if !ok || existing.UserID != t.UserID {
		return fmt.Errorf("trade %s: %w", t.ID, ErrNotFound)
	}
	m.trades[t.ID] = *t
	return nil
}

func (m *mockTradeStore) DeleteTrade(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trades[id]
	if !ok || existing.UserID != userID {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	delete(m.trades, id)
	return nil
}

func (m *mockTradeStore) SetPostAnalysis(_ context.Context, userID, id, analysis string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trades[id]
	if !ok || existing.UserID != userID {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	existing.PostAnalysis = analysis
	m.trades[id] = existing
	return nil
}

func (m *mockTradeStore) TradeExistsByExternalID(_ context.Context, source, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trades {
		if t.Source == source && t.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

// mockShareStore implements ShareStore in memory
type mockShareStore struct {
	mu     sync.Mutex
	tokens map[string]models.ShareToken
}

func newMockShareStore() *mockShareStore {
	return &mockShareStore{tokens: make(map[string]models.ShareToken)}
}

func (m *mockShareStore) CreateShareToken(_ context.Context, s *models.ShareToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	m.tokens[s.Token] = *s
	return nil
}

func (m *mockShareStore) GetShareToken(_ context.Context, token string) (*models.ShareToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.tokens[token]
	if !ok {
		return nil, fmt.Errorf("share token: %w", ErrNotFound)
	}
	return &s, nil
}

func (m *mockShareStore) DeleteExpiredShareTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.tokens {
		if s.Expired(now) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

// mockCache implements StatsCache in memory
type mockCache struct {
	mu       sync.Mutex
	versions map[string]int64
	entries  map[string]models.StatisticsResult
	failAll  bool

	GetCalls int
	SetCalls int
}

func newMockCache() *mockCache {
	return &mockCache{
		versions: make(map[string]int64),
		entries:  make(map[string]models.StatisticsResult),
	}
}

var errCacheDown = errors.New("redis: connection refused")

func (m *mockCache) Version(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return 0, errCacheDown
	}
	return m.versions[userID], nil
}

func (m *mockCache) BumpVersion(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return 0, errCacheDown
	}
	m.versions[userID]++
	return m.versions[userID], nil
}

func (m *mockCache) Get(_ context.Context, key string) (*models.StatisticsResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.failAll {
		return nil, false, errCacheDown
	}
	s, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (m *mockCache) Set(_ context.Context, key string, stats models.StatisticsResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.failAll {
		return errCacheDown
	}
	m.entries[key] = stats
	return nil
}

// mockPublisher records published events
type mockPublisher struct {
	mu     sync.Mutex
	events []models.JournalEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event models.JournalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}
