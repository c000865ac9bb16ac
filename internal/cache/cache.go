// Package cache is a small Redis-backed result cache for finished
// analysis reports, keyed by ticker.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/pipeline"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis. An empty address means caching is disabled;
// callers get (nil, nil) and every lookup misses.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func key(ticker string) string { return "echomarket:analysis:" + ticker }

// Get returns the cached report for ticker. A nil cache, a miss and a
// stale/corrupt entry all report !ok.
func (c *Cache) Get(ctx context.Context, ticker string) (pipeline.Report, bool) {
	if c == nil {
		return pipeline.Report{}, false
	}
	raw, err := c.client.Get(ctx, key(ticker)).Bytes()
	if err != nil {
		return pipeline.Report{}, false
	}
	var report pipeline.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return pipeline.Report{}, false
	}
	return report, true
}

// Put stores a report under its ticker. Failures are swallowed; the
// cache is an optimization, never a dependency.
func (c *Cache) Put(ctx context.Context, report pipeline.Report) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(report.Ticker), raw, c.ttl)
}
