package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/trading-journal/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTTL bounds how long a computed statistics result is kept
const DefaultTTL = 5 * time.Minute

const keyPrefix = "journal"

// StatsCache stores computed statistics in Redis. Entries are keyed by a
// per-user version counter, so a write never has to find and delete them.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewClient opens a Redis client and verifies it with a ping
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// New creates a StatsCache. A non-positive ttl means DefaultTTL.
func New(client redis.Cmdable, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

// VersionKey returns the key of a user's trade version counter
func VersionKey(userID string) string {
	return keyPrefix + ":version:" + userID
}

// StatsKey builds the cache key for one statistics view. bound is the
// resolved lower date bound; ok is false for an unbounded range.
func StatsKey(userID string, version int64, criteria models.FilterCriteria, bound time.Time, ok bool, optionsKey string) string {
	b := "-"
	if ok {
		b = strconv.FormatInt(bound.Unix(), 10)
	}
	return fmt.Sprintf("%s:stats:%s:v%d:%s:%s:%s", keyPrefix, url.QueryEscape(userID), version, criteria.Key(), b, optionsKey)
}

// Version returns the user's current trade version; a missing counter is 0
func (c *StatsCache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, VersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read trade version: %w", err)
	}
	return v, nil
}

// BumpVersion invalidates every cached view of the user's trades
func (c *StatsCache) BumpVersion(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Incr(ctx, VersionKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump trade version: %w", err)
	}
	return v, nil
}

// Get returns the cached result under key, if any
func (c *StatsCache) Get(ctx context.Context, key string) (*models.StatisticsResult, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached stats: %w", err)
	}

	var stats models.StatisticsResult
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return &stats, true, nil
}

// Set stores stats under key for the cache TTL
func (c *StatsCache) Set(ctx context.Context, key string, stats models.StatisticsResult) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}
