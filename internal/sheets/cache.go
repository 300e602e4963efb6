package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

// Source is everything the notification side reads from the spreadsheet.
type Source interface {
	WeeklyStats(ctx context.Context) (domain.PeriodStats, error)
	MonthlyStats(ctx context.Context) (domain.PeriodStats, error)
	RecentReports(ctx context.Context, n int) ([]domain.ReportRecord, error)
	StatsForDateRange(ctx context.Context, start, end time.Time) (domain.PeriodStats, error)
	AbandonedItems(ctx context.Context, olderThan time.Duration) ([]domain.Item, error)
}

// JSONCache stores JSON-encoded values under string keys with a TTL.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// NoopCache never hits. It is used when no Redis URL is configured.
type NoopCache struct{}

func (NoopCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (NoopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (NoopCache) Ping(context.Context) error                                { return nil }
func (NoopCache) Close() error                                              { return nil }

// RedisCache is a JSONCache backed by Redis; keys are namespaced by prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewCache returns a Redis-backed cache, or NoopCache when url is empty.
func NewCache(url, prefix string) (JSONCache, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return NoopCache{}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if prefix == "" {
		prefix = "fumiyome"
	}
	return &RedisCache{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// GetJSON decodes the value at key into dst and reports whether it was found.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value at key for ttl.
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), b, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.client.Close() }

// CachedSource memoises period aggregates. Report lists and abandoned items
// are always read through. Cache failures are logged and bypassed.
type CachedSource struct {
	src   Source
	cache JSONCache
	ttl   time.Duration
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

// NewCachedSource decorates src with cache; a nil loc means UTC.
func NewCachedSource(src Source, cache JSONCache, ttl time.Duration, loc *time.Location, log *zap.Logger) *CachedSource {
	if loc == nil {
		loc = time.UTC
	}
	return &CachedSource{src: src, cache: cache, ttl: ttl, loc: loc, log: log, now: time.Now}
}

// WeeklyStats is cached per week start.
func (c *CachedSource) WeeklyStats(ctx context.Context) (domain.PeriodStats, error) {
	key := "stats:weekly:" + domain.DayKey(domain.WeekStart(c.now(), c.loc), c.loc)
	return c.stats(ctx, key, c.src.WeeklyStats)
}

// MonthlyStats is cached per month start.
func (c *CachedSource) MonthlyStats(ctx context.Context) (domain.PeriodStats, error) {
	key := "stats:monthly:" + domain.DayKey(domain.MonthStart(c.now(), c.loc), c.loc)
	return c.stats(ctx, key, c.src.MonthlyStats)
}

// StatsForDateRange is cached per exact range.
func (c *CachedSource) StatsForDateRange(ctx context.Context, start, end time.Time) (domain.PeriodStats, error) {
	key := fmt.Sprintf("stats:range:%d:%d", start.Unix(), end.Unix())
	return c.stats(ctx, key, func(ctx context.Context) (domain.PeriodStats, error) {
		return c.src.StatsForDateRange(ctx, start, end)
	})
}

// RecentReports always reads through.
func (c *CachedSource) RecentReports(ctx context.Context, n int) ([]domain.ReportRecord, error) {
	return c.src.RecentReports(ctx, n)
}

// AbandonedItems always reads through.
func (c *CachedSource) AbandonedItems(ctx context.Context, olderThan time.Duration) ([]domain.Item, error) {
	return c.src.AbandonedItems(ctx, olderThan)
}

func (c *CachedSource) stats(ctx context.Context, key string, load func(context.Context) (domain.PeriodStats, error)) (domain.PeriodStats, error) {
	var cached domain.PeriodStats
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return normalizeStats(cached), nil
	}

	st, err := load(ctx)
	if err != nil {
		return st, err
	}
	if err := c.cache.SetJSON(ctx, key, st, c.ttl); err != nil {
		c.log.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return st, nil
}

func normalizeStats(st domain.PeriodStats) domain.PeriodStats {
	if st.Finished == nil {
		st.Finished = map[string]int{}
	}
	if st.Backlog == nil {
		st.Backlog = map[string]int{}
	}
	return st
}
