package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/trading-journal/internal/analytics"
	"github.com/trogers1052/trading-journal/internal/cache"
	"github.com/trogers1052/trading-journal/internal/database"
	"github.com/trogers1052/trading-journal/internal/metrics"
	"github.com/trogers1052/trading-journal/internal/models"
	"go.uber.org/zap"
)

// DefaultShareTTL is how long an issued share link stays valid
const DefaultShareTTL = 10 * time.Minute

var (
	// ErrNotFound is returned when a trade or share token does not exist
	ErrNotFound = database.ErrNotFound
	// ErrShareExpired is returned when a share token is past its expiry
	ErrShareExpired = errors.New("share link expired")
)

// TradeStore defines the trade persistence the service needs
type TradeStore interface {
	CreateTrade(ctx context.Context, t *models.Trade) error
	GetTrade(ctx context.Context, userID, id string) (*models.Trade, error)
	ListTradesByUser(ctx context.Context, userID string) ([]models.Trade, error)
	UpdateTrade(ctx context.Context, t *models.Trade) error
	DeleteTrade(ctx context.Context, userID, id string) error
	SetPostAnalysis(ctx context.Context, userID, id, analysis string) error
	TradeExistsByExternalID(ctx context.Context, source, externalID string) (bool, error)
}

// ShareStore defines the share token persistence the service needs
type ShareStore interface {
	CreateShareToken(ctx context.Context, s *models.ShareToken) error
	GetShareToken(ctx context.Context, token string) (*models.ShareToken, error)
	DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error)
}

// StatsCache stores computed statistics between requests
type StatsCache interface {
	Version(ctx context.Context, userID string) (int64, error)
	BumpVersion(ctx context.Context, userID string) (int64, error)
	Get(ctx context.Context, key string) (*models.StatisticsResult, bool, error)
	Set(ctx context.Context, key string, stats models.StatisticsResult) error
}

// EventPublisher publishes journal change events
type EventPublisher interface {
	Publish(ctx context.Context, event models.JournalEvent) error
}

// Deps holds the collaborators of a JournalService. Trades, Shares and
// Engine are required; the rest may be left nil.
type Deps struct {
	Trades   TradeStore
	Shares   ShareStore
	Cache    StatsCache
	Events   EventPublisher
	Engine   *analytics.Engine
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	ShareTTL time.Duration
}

// JournalService ties storage, the statistics engine, the cache and event
// publishing together
type JournalService struct {
	trades   TradeStore
	shares   ShareStore
	cache    StatsCache
	events   EventPublisher
	engine   *analytics.Engine
	metrics  *metrics.Metrics
	logger   *zap.Logger
	shareTTL time.Duration
}

// New creates a JournalService
func New(d Deps) *JournalService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := d.ShareTTL
	if ttl <= 0 {
		ttl = DefaultShareTTL
	}
	return &JournalService{
		trades:   d.Trades,
		shares:   d.Shares,
		cache:    d.Cache,
		events:   d.Events,
		engine:   d.Engine,
		metrics:  d.Metrics,
		logger:   logger.Named("journal"),
		shareTTL: ttl,
	}
}

// Trade returns one of the user's trades
func (s *JournalService) Trade(ctx context.Context, userID, id string) (*models.Trade, error) {
	return s.trades.GetTrade(ctx, userID, id)
}

// Trades returns the user's trades matching criteria, most recent first
func (s *JournalService) Trades(ctx context.Context, userID string, criteria models.FilterCriteria) ([]models.Trade, error) {
	criteria, err := validCriteria(criteria)
	if err != nil {
		return nil, err
	}

	trades, err := s.trades.ListTradesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return s.engine.Filter(trades, criteria), nil
}

// Stats computes statistics over the user's trades matching criteria.
// Results are served from the cache when possible; cache failures fall back
// to computing from storage.
func (s *JournalService) Stats(ctx context.Context, userID string, criteria models.FilterCriteria) (models.StatisticsResult, error) {
	criteria, err := validCriteria(criteria)
	if err != nil {
		return models.StatisticsResult{}, err
	}

	now := s.engine.Now()
	outcome := metrics.CacheDisabled
	var key string

	if s.cache != nil {
		key, outcome = s.cacheKey(ctx, userID, criteria, now)
		if key != "" {
			cached, ok, err := s.cache.Get(ctx, key)
			switch {
			case err != nil:
				s.logger.Warn("stats cache read failed", zap.String("user_id", userID), zap.Error(err))
				outcome = metrics.CacheError
				key = ""
			case ok:
				s.countStats(metrics.CacheHit)
				return *cached, nil
			}
		}
	}

	trades, err := s.trades.ListTradesByUser(ctx, userID)
	if err != nil {
		return models.StatisticsResult{}, fmt.Errorf("failed to list trades: %w", err)
	}

	start := time.Now()
	stats := s.engine.Aggregate(s.engine.FilterAt(trades, criteria, now))
	if s.metrics != nil {
		s.metrics.StatsDuration.Observe(time.Since(start).Seconds())
	}
	s.countStats(outcome)

	if key != "" {
		if err := s.cache.Set(ctx, key, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return stats, nil
}

func (s *JournalService) cacheKey(ctx context.Context, userID string, criteria models.FilterCriteria, now time.Time) (string, string) {
	version, err := s.cache.Version(ctx, userID)
	if err != nil {
		s.logger.Warn("stats cache version read failed", zap.String("user_id", userID), zap.Error(err))
		return "", metrics.CacheError
	}
	bound, ok := s.engine.RangeStart(criteria.DateRange, now)
	return cache.StatsKey(userID, version, criteria, bound, ok, s.engine.Options().Key()), metrics.CacheMiss
}

func (s *JournalService) countStats(outcome string) {
	if s.metrics != nil {
		s.metrics.StatsComputations.WithLabelValues(outcome).Inc()
	}
}

// RecordTrade stores a new trade for its user
func (s *JournalService) RecordTrade(ctx context.Context, t *models.Trade) error {
	if err := s.trades.CreateTrade(ctx, t); err != nil {
		return err
	}
	s.afterWrite(ctx, models.EventTradeCreated, t.UserID, t.ID)
	return nil
}

// UpdateTrade replaces the editable fields of an existing trade
func (s *JournalService) UpdateTrade(ctx context.Context, t *models.Trade) error {
	if err := s.trades.UpdateTrade(ctx, t); err != nil {
		return err
	}
	s.afterWrite(ctx, models.EventTradeUpdated, t.UserID, t.ID)
	return nil
}

// DeleteTrade removes one of the user's trades
func (s *JournalService) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := s.trades.DeleteTrade(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, models.EventTradeDeleted, userID, id)
	return nil
}

// ReviewQueue returns the user's trades matching criteria in the order they
// are reviewed: oldest first, ties broken by creation time
func (s *JournalService) ReviewQueue(ctx context.Context, userID string, criteria models.FilterCriteria) ([]models.Trade, error) {
	trades, err := s.Trades(ctx, userID, criteria)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(trades, func(a, b models.Trade) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return trades, nil
}

// SaveReview stores the post-trade analysis of one of the user's trades and
// returns the updated trade. An empty analysis clears it.
func (s *JournalService) SaveReview(ctx context.Context, userID, id, analysis string) (*models.Trade, error) {
	if err := s.trades.SetPostAnalysis(ctx, userID, id, analysis); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, models.EventTradeReviewed, userID, id)
	return s.trades.GetTrade(ctx, userID, id)
}

// ImportTrade stores a trade received from an external source. It reports
// false without error when (source, externalID) was already imported.
func (s *JournalService) ImportTrade(ctx context.Context, source, externalID string, t *models.Trade) (bool, error) {
	exists, err := s.trades.TradeExistsByExternalID(ctx, source, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate trade: %w", err)
	}
	if exists {
		s.logger.Debug("trade already imported, skipping",
			zap.String("source", source), zap.String("external_id", externalID))
		return false, nil
	}

	t.Source = source
	t.ExternalID = externalID
	if err := s.RecordTrade(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// afterWrite invalidates cached statistics and publishes the change. Both
// are best effort; the write has already succeeded.
func (s *JournalService) afterWrite(ctx context.Context, eventType, userID, tradeID string) {
	if s.cache != nil {
		if _, err := s.cache.BumpVersion(ctx, userID); err != nil {
			s.logger.Warn("failed to invalidate stats cache", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.publish(ctx, models.JournalEvent{
		EventType: eventType,
		UserID:    userID,
		TradeID:   tradeID,
		Timestamp: s.engine.Now(),
	})
}

func (s *JournalService) publish(ctx context.Context, event models.JournalEvent) {
	if s.events == nil {
		return
	}
	outcome := "ok"
	if err := s.events.Publish(ctx, event); err != nil {
		outcome = "error"
		s.logger.Warn("failed to publish journal event",
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(event.EventType, outcome).Inc()
	}
}

// IssueShareLink creates a read-only share token for the user's journal
func (s *JournalService) IssueShareLink(ctx context.Context, userID string) (*models.ShareToken, error) {
	token := &models.ShareToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.engine.Now().Add(s.shareTTL),
	}
	if err := s.shares.CreateShareToken(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, models.JournalEvent{
		EventType: models.EventShareLinkIssued,
		UserID:    userID,
		Timestamp: s.engine.Now(),
	})
	return token, nil
}

// ResolveShare returns the user a share token grants access to
func (s *JournalService) ResolveShare(ctx context.Context, token string) (string, error) {
	share, err := s.shares.GetShareToken(ctx, token)
	if err != nil {
		return "", err
	}
	if share.Expired(s.engine.Now()) {
		return "", ErrShareExpired
	}
	return share.UserID, nil
}

// Snapshot returns the user's trades matching criteria together with their
// statistics. Both come from a single read of the journal filtered at a
// single instant, so the statistics always describe the returned trades.
func (s *JournalService) Snapshot(ctx context.Context, userID string, criteria models.FilterCriteria) (*models.JournalView, error) {
	criteria, err := validCriteria(criteria)
	if err != nil {
		return nil, err
	}

	trades, err := s.trades.ListTradesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	start := time.Now()
	filtered := s.engine.FilterAt(trades, criteria, s.engine.Now())
	stats := s.engine.Aggregate(filtered)
	if s.metrics != nil {
		s.metrics.StatsDuration.Observe(time.Since(start).Seconds())
	}
	s.countStats(metrics.CacheBypass)

	return &models.JournalView{UserID: userID, Trades: filtered, Stats: stats}, nil
}

// SharedView resolves a share token and returns a snapshot of the shared
// journal
func (s *JournalService) SharedView(ctx context.Context, token string, criteria models.FilterCriteria) (*models.JournalView, error) {
	userID, err := s.ResolveShare(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, userID, criteria)
}

// PurgeExpiredShares deletes share tokens that can no longer be resolved
func (s *JournalService) PurgeExpiredShares(ctx context.Context) (int64, error) {
	n, err := s.shares.DeleteExpiredShareTokens(ctx, s.engine.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired share tokens", zap.Int64("count", n))
	}
	return n, nil
}

func validCriteria(c models.FilterCriteria) (models.FilterCriteria, error) {
	c = c.Normalize()
	r, err := models.ParseDateRange(string(c.DateRange))
	if err != nil {
		return c, err
	}
	c.DateRange = r
	return c, nil
}
