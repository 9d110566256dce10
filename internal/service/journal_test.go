package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/trading-journal/internal/analytics"
	"github.com/trogers1052/trading-journal/internal/metrics"
	"github.com/trogers1052/trading-journal/internal/models"
)

// Wednesday
var serviceNow = time.Date(2024, 7, 17, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *JournalService
	trades  *mockTradeStore
	shares  *mockShareStore
	cache   *mockCache
	events  *mockPublisher
	metrics *metrics.Metrics
	now     *time.Time
}

func newFixture(t *testing.T, trades ...models.Trade) *fixture {
	t.Helper()

	now := serviceNow
	f := &fixture{
		trades:  newMockTradeStore(trades...),
		shares:  newMockShareStore(),
		cache:   newMockCache(),
		events:  &mockPublisher{},
		metrics: metrics.New(prometheus.NewRegistry()),
		now:     &now,
	}

	opts := analytics.DefaultOptions()
	opts.Location = time.UTC
	engine := analytics.NewEngine(analytics.ClockFunc(func() time.Time { return *f.now }), opts)

	f.svc = New(Deps{
		Trades:  f.trades,
		Shares:  f.shares,
		Cache:   f.cache,
		Events:  f.events,
		Engine:  engine,
		Metrics: f.metrics,
	})
	return f
}

func journalTrade(id string, date time.Time, asset string, result models.Result, pnl float64) models.Trade {
	return models.Trade{
		ID:        id,
		UserID:    "user-1",
		Date:      date,
		Asset:     asset,
		Direction: models.DirectionBuy,
		Result:    result,
		Pnl:       pnl,
	}
}

func sampleTrades() []models.Trade {
	return []models.Trade{
		journalTrade("t1", time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC), "GOLD", models.ResultWin, 500),
		journalTrade("t2", time.Date(2024, 7, 16, 9, 0, 0, 0, time.UTC), "EUR/USD", models.ResultLoss, -200),
		journalTrade("t3", time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), "GOLD", models.ResultBE, 0),
		{ID: "other", UserID: "user-2", Date: serviceNow, Asset: "GOLD", Direction: models.DirectionSell, Result: models.ResultWin, Pnl: 1000},
	}
}

func TestJournalService_Trades(t *testing.T) {
	f := newFixture(t, sampleTrades()...)
	ctx := context.Background()

	t.Run("returns the user's trades most recent first", func(t *testing.T) {
		trades, err := f.svc.Trades(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, "t2", trades[0].ID)
		assert.Equal(t, "t1", trades[1].ID)
		assert.Equal(t, "t3", trades[2].ID)
	})

	t.Run("applies criteria", func(t *testing.T) {
		trades, err := f.svc.Trades(ctx, "user-1", models.FilterCriteria{DateRange: models.DateRangeThisWeek, Asset: "GOLD"})
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "t1", trades[0].ID)
	})

	t.Run("empty criteria mean all", func(t *testing.T) {
		trades, err := f.svc.Trades(ctx, "user-1", models.FilterCriteria{})
		require.NoError(t, err)
		assert.Len(t, trades, 3)
	})

	t.Run("rejects unknown date range", func(t *testing.T) {
		_, err := f.svc.Trades(ctx, "user-1", models.FilterCriteria{DateRange: "last-decade"})
		require.ErrorIs(t, err, models.ErrUnknownDateRange)
	})
}

func TestJournalService_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("computes and caches", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		stats, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, 300.0, stats.TotalPnl)
		assert.Equal(t, 3, stats.TotalTrades)
		assert.Equal(t, 1, stats.WinningTrades)
		assert.Equal(t, 1, f.cache.SetCalls)
		assert.Equal(t, 1, f.trades.ListCalls)

		again, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, stats, again)
		assert.Equal(t, 1, f.trades.ListCalls, "second call should be served from cache")

		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatsComputations.WithLabelValues(metrics.CacheMiss)))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatsComputations.WithLabelValues(metrics.CacheHit)))
	})

	t.Run("writes invalidate cached stats", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		before, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)

		added := journalTrade("", serviceNow, "GOLD", models.ResultWin, 100)
		require.NoError(t, f.svc.RecordTrade(ctx, &added))

		after, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, before.TotalTrades+1, after.TotalTrades)
		assert.Equal(t, before.TotalPnl+100, after.TotalPnl)
		assert.Equal(t, 2, f.trades.ListCalls)
	})

	t.Run("period rollover does not serve stale entries", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)
		today := models.FilterCriteria{DateRange: models.DateRangeToday}

		*f.now = time.Date(2024, 7, 15, 18, 0, 0, 0, time.UTC)
		monday, err := f.svc.Stats(ctx, "user-1", today)
		require.NoError(t, err)
		assert.Equal(t, 1, monday.TotalTrades)

		*f.now = time.Date(2024, 7, 16, 18, 0, 0, 0, time.UTC)
		tuesday, err := f.svc.Stats(ctx, "user-1", today)
		require.NoError(t, err)
		assert.Equal(t, 1, tuesday.TotalTrades)
		assert.Equal(t, -200.0, tuesday.TotalPnl)
	})

	t.Run("cache failure falls back to computing", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)
		f.cache.failAll = true

		stats, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, 300.0, stats.TotalPnl)
		assert.Equal(t, 0, f.cache.SetCalls)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatsComputations.WithLabelValues(metrics.CacheError)))
	})

	t.Run("works without a cache", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)
		f.svc.cache = nil

		stats, err := f.svc.Stats(ctx, "user-1", models.FilterCriteria{Result: "Win"})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalTrades)
		assert.Equal(t, 100.0, stats.WinRate)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatsComputations.WithLabelValues(metrics.CacheDisabled)))
	})

	t.Run("empty journal", func(t *testing.T) {
		f := newFixture(t)

		stats, err := f.svc.Stats(ctx, "nobody", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalTrades)
		assert.Nil(t, stats.BestTrade)
		assert.Empty(t, stats.PerformanceData)
	})

	t.Run("storage error is returned", func(t *testing.T) {
		f := newFixture(t)
		f.trades.listErr = errors.New("db down")

		_, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list trades")
	})
}

func TestJournalService_Writes(t *testing.T) {
	ctx := context.Background()

	t.Run("record, update and delete publish events", func(t *testing.T) {
		f := newFixture(t)

		trade := journalTrade("", serviceNow, "NAS100", models.ResultLoss, -50)
		require.NoError(t, f.svc.RecordTrade(ctx, &trade))
		require.NotEmpty(t, trade.ID)

		trade.Result = models.ResultWin
		trade.Pnl = 75
		require.NoError(t, f.svc.UpdateTrade(ctx, &trade))

		got, err := f.svc.Trade(ctx, "user-1", trade.ID)
		require.NoError(t, err)
		assert.Equal(t, 75.0, got.Pnl)

		require.NoError(t, f.svc.DeleteTrade(ctx, "user-1", trade.ID))

		assert.Equal(t, []string{models.EventTradeCreated, models.EventTradeUpdated, models.EventTradeDeleted}, f.events.Types())
		assert.Equal(t, int64(3), f.cache.versions["user-1"])
		for _, e := range f.events.events {
			assert.Equal(t, "user-1", e.UserID)
			assert.Equal(t, trade.ID, e.TradeID)
			assert.Equal(t, serviceNow, e.Timestamp)
		}
	})

	t.Run("not found passes through without side effects", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.DeleteTrade(ctx, "user-1", "missing")
		require.ErrorIs(t, err, ErrNotFound)

		err = f.svc.UpdateTrade(ctx, &models.Trade{ID: "missing", UserID: "user-1"})
		require.ErrorIs(t, err, ErrNotFound)

		assert.Empty(t, f.events.Types())
		assert.Zero(t, f.cache.versions["user-1"])
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		f := newFixture(t)
		f.events.err = errors.New("kafka unavailable")

		trade := journalTrade("", serviceNow, "GOLD", models.ResultWin, 10)
		require.NoError(t, f.svc.RecordTrade(ctx, &trade))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues(models.EventTradeCreated, "error")))
	})

	t.Run("cache failure does not fail the write", func(t *testing.T) {
		f := newFixture(t)
		f.cache.failAll = true

		trade := journalTrade("", serviceNow, "GOLD", models.ResultWin, 10)
		require.NoError(t, f.svc.RecordTrade(ctx, &trade))
	})
}

func TestJournalService_ImportTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trade := journalTrade("", serviceNow, "BTC/USD", models.ResultWin, 250)
	stored, err := f.svc.ImportTrade(ctx, "mt5", "order-1", &trade)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, "mt5", trade.Source)
	assert.Equal(t, "order-1", trade.ExternalID)

	dup := journalTrade("", serviceNow, "BTC/USD", models.ResultWin, 250)
	stored, err = f.svc.ImportTrade(ctx, "mt5", "order-1", &dup)
	require.NoError(t, err)
	assert.False(t, stored)

	trades, err := f.svc.Trades(ctx, "user-1", models.AllTrades())
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, []string{models.EventTradeCreated}, f.events.Types())
}

func TestJournalService_Sharing(t *testing.T) {
	ctx := context.Background()

	t.Run("issue and resolve", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		token, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)
		_, err = uuid.Parse(token.Token)
		require.NoError(t, err)
		assert.Equal(t, serviceNow.Add(DefaultShareTTL), token.ExpiresAt)
		assert.Equal(t, []string{models.EventShareLinkIssued}, f.events.Types())

		userID, err := f.svc.ResolveShare(ctx, token.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		f := newFixture(t)

		a, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)
		b, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)
		assert.NotEqual(t, a.Token, b.Token)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)

		token, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)

		*f.now = token.ExpiresAt
		_, err = f.svc.ResolveShare(ctx, token.Token)
		require.ErrorIs(t, err, ErrShareExpired)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ResolveShare(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("shared view applies criteria", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		token, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)

		view, err := f.svc.SharedView(ctx, token.Token, models.FilterCriteria{Asset: "GOLD"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", view.UserID)
		require.Len(t, view.Trades, 2)
		assert.Equal(t, "t1", view.Trades[0].ID)
		assert.Equal(t, 2, view.Stats.TotalTrades)
		assert.Equal(t, 500.0, view.Stats.TotalPnl)
	})

	t.Run("purge removes expired tokens", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)

		n, err := f.svc.PurgeExpiredShares(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		*f.now = serviceNow.Add(time.Hour)
		n, err = f.svc.PurgeExpiredShares(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestJournalService_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("trades and stats come from one read at one instant", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		// Sunday 23:59; every further clock read crosses into the next week
		sunday := time.Date(2024, 7, 21, 23, 59, 0, 0, time.UTC)
		reads := 0
		clock := analytics.ClockFunc(func() time.Time {
			now := sunday.Add(time.Duration(reads) * time.Minute)
			reads++
			return now
		})
		opts := analytics.DefaultOptions()
		opts.Location = time.UTC
		svc := New(Deps{
			Trades:  f.trades,
			Shares:  f.shares,
			Cache:   f.cache,
			Engine:  analytics.NewEngine(clock, opts),
			Metrics: f.metrics,
		})

		view, err := svc.Snapshot(ctx, "user-1", models.FilterCriteria{DateRange: models.DateRangeThisWeek})
		require.NoError(t, err)
		assert.Equal(t, 1, reads)
		assert.Equal(t, 1, f.trades.ListCalls)
		require.Len(t, view.Trades, 2)
		assert.Equal(t, len(view.Trades), view.Stats.TotalTrades)
		assert.Equal(t, 300.0, view.Stats.TotalPnl)
		assert.Zero(t, f.cache.GetCalls)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatsComputations.WithLabelValues(metrics.CacheBypass)))
	})

	t.Run("rejects unknown date range", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)
		_, err := f.svc.Snapshot(ctx, "user-1", models.FilterCriteria{DateRange: "fortnight"})
		require.ErrorIs(t, err, models.ErrUnknownDateRange)
	})

	t.Run("storage error", func(t *testing.T) {
		f := newFixture(t)
		f.trades.listErr = errors.New("db down")
		_, err := f.svc.Snapshot(ctx, "user-1", models.AllTrades())
		require.Error(t, err)
	})

	t.Run("shared view reads the journal once", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)
		token, err := f.svc.IssueShareLink(ctx, "user-1")
		require.NoError(t, err)

		view, err := f.svc.SharedView(ctx, token.Token, models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, 1, f.trades.ListCalls)
		assert.Equal(t, 3, view.Stats.TotalTrades)
		assert.Len(t, view.Trades, 3)
	})
}

func TestJournalService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("queue is oldest first", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		trades, err := f.svc.ReviewQueue(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, "t3", trades[0].ID)
		assert.Equal(t, "t1", trades[1].ID)
		assert.Equal(t, "t2", trades[2].ID)
	})

	t.Run("equal dates are ordered by creation", func(t *testing.T) {
		day := time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)
		later := journalTrade("later", day, "GOLD", models.ResultWin, 10)
		later.CreatedAt = day.Add(2 * time.Hour)
		earlier := journalTrade("earlier", day, "GOLD", models.ResultLoss, -10)
		earlier.CreatedAt = day.Add(time.Hour)
		f := newFixture(t, later, earlier)

		trades, err := f.svc.ReviewQueue(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "earlier", trades[0].ID)
		assert.Equal(t, "later", trades[1].ID)
	})

	t.Run("queue honours filters", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		trades, err := f.svc.ReviewQueue(ctx, "user-1", models.FilterCriteria{Asset: "GOLD"})
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "t3", trades[0].ID)

		_, err = f.svc.ReviewQueue(ctx, "user-1", models.FilterCriteria{DateRange: "fortnight"})
		require.ErrorIs(t, err, models.ErrUnknownDateRange)
	})

	t.Run("save stores the analysis and invalidates stats", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		stats, err := f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Empty(t, stats.BestTrade.PostAnalysis)

		trade, err := f.svc.SaveReview(ctx, "user-1", "t1", "took profit at the level, good patience")
		require.NoError(t, err)
		assert.Equal(t, "took profit at the level, good patience", trade.PostAnalysis)
		assert.Equal(t, int64(1), f.cache.versions["user-1"])
		assert.Equal(t, []string{models.EventTradeReviewed}, f.events.Types())

		stats, err = f.svc.Stats(ctx, "user-1", models.AllTrades())
		require.NoError(t, err)
		assert.Equal(t, "took profit at the level, good patience", stats.BestTrade.PostAnalysis)
	})

	t.Run("save on another user's trade", func(t *testing.T) {
		f := newFixture(t, sampleTrades()...)

		_, err := f.svc.SaveReview(ctx, "user-2", "t1", "not mine")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, f.events.Types())
		assert.Zero(t, f.cache.versions["user-2"])
	})
}
