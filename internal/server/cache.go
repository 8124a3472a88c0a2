package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"traveldesk/internal/metrics"
)

const runKeyPrefix = "run:"

// Cache keeps reconciliation results in Redis so repeated reads of an
// unchanged project skip the engine. Misses and Redis failures both fall
// through to a fresh run.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache wraps a Redis client as a run-result cache.
func NewCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "run_cache").Logger(),
	}
}

// GetRun returns the cached result for the project, if any.
func (c *Cache) GetRun(ctx context.Context, projectID string) (*RunResult, bool) {
	val, err := c.rdb.Get(ctx, runKeyPrefix+projectID).Result()
	if err != nil {
		metrics.IncCacheLookup("miss")
		return nil, false
	}
	var result RunResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.logger.Warn().Err(err).Str("project", projectID).Msg("corrupt cache entry dropped")
		c.InvalidateProject(ctx, projectID)
		metrics.IncCacheLookup("miss")
		return nil, false
	}
	metrics.IncCacheLookup("hit")
	return &result, true
}

// SetRun stores the result for the project.
func (c *Cache) SetRun(ctx context.Context, projectID string, result *RunResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Str("project", projectID).Msg("cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, runKeyPrefix+projectID, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("project", projectID).Msg("cache write failed")
	}
}

// InvalidateProject drops the cached result for the project.
func (c *Cache) InvalidateProject(ctx context.Context, projectID string) {
	if err := c.rdb.Del(ctx, runKeyPrefix+projectID).Err(); err != nil {
		c.logger.Warn().Err(err).Str("project", projectID).Msg("cache invalidation failed")
	}
}

// Ping reports Redis reachability for readiness checks.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
