// Package cache holds the optional read-through cache for workshop vote tallies.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/app/models"
)

var (
	// ErrCacheMiss is returned by Get when no tally is cached for the workshop.
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill is returned by Fill when the workshop was invalidated after
	// the generation was read.
	ErrStaleFill = errors.New("stale cache fill")
)

// StatsCache caches VotingStats per workshop.
//
// Every Invalidate bumps the workshop's generation. A reader takes the
// generation before computing a tally from the store and passes it to Fill,
// which refuses to store the tally once the generation has moved on.
type StatsCache interface {
	Get(ctx context.Context, workshopID int64) (models.VotingStats, error)
	Generation(ctx context.Context, workshopID int64) (int64, error)
	Fill(ctx context.Context, workshopID, generation int64, stats models.VotingStats) error
	Invalidate(ctx context.Context, workshopID int64) error
	Close() error
}

// Key returns the redis key holding a workshop's tally.
func Key(workshopID int64) string {
	return fmt.Sprintf("stats:workshop:%d", workshopID)
}

// GenerationKey returns the redis key holding a workshop's invalidation counter.
func GenerationKey(workshopID int64) string {
	return Key(workshopID) + ":gen"
}

// RedisStatsCache stores each tally as a hash with total and approved fields.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisStatsCache connects to redis and verifies the connection with a ping.
func NewRedisStatsCache(ctx context.Context, opts Options, logger zerolog.Logger) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Info().Str("addr", opts.Addr).Dur("ttl", opts.TTL).Msg("Successfully connected to Redis")
	return NewRedisStatsCacheFromClient(client, opts.TTL, logger), nil
}

// NewRedisStatsCacheFromClient wraps an existing client.
func NewRedisStatsCacheFromClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStatsCache {
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "stats_cache").Logger(),
	}
}

// Get returns the cached tally or ErrCacheMiss.
func (c *RedisStatsCache) Get(ctx context.Context, workshopID int64) (models.VotingStats, error) {
	fields, err := c.client.HGetAll(ctx, Key(workshopID)).Result()
	if err != nil {
		return models.VotingStats{}, fmt.Errorf("failed to read cached stats: %w", err)
	}
	if len(fields) == 0 {
		return models.VotingStats{}, ErrCacheMiss
	}
	return decodeStats(fields)
}

// Generation returns the workshop's invalidation counter; zero when never invalidated.
func (c *RedisStatsCache) Generation(ctx context.Context, workshopID int64) (int64, error) {
	return readGeneration(ctx, c.client, GenerationKey(workshopID))
}

// Fill stores the tally with the configured TTL, provided no Invalidate ran
// since generation was read. The generation key is watched so a concurrent
// Invalidate aborts the transaction.
func (c *RedisStatsCache) Fill(ctx context.Context, workshopID, generation int64, stats models.VotingStats) error {
	key := Key(workshopID)
	genKey := GenerationKey(workshopID)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != generation {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeStats(stats))
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleFill), errors.Is(err, redis.TxFailedErr):
		return ErrStaleFill
	default:
		return fmt.Errorf("failed to cache stats: %w", err)
	}
}

// Invalidate bumps the generation and drops the cached tally atomically.
func (c *RedisStatsCache) Invalidate(ctx context.Context, workshopID int64) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, GenerationKey(workshopID))
	pipe.Del(ctx, Key(workshopID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cached stats: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, g stringGetter, genKey string) (int64, error) {
	gen, err := g.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func encodeStats(stats models.VotingStats) map[string]interface{} {
	return map[string]interface{}{
		"total":    stats.Total,
		"approved": stats.Approved,
	}
}

// decodeStats rebuilds a tally; declined is always derived.
func decodeStats(fields map[string]string) (models.VotingStats, error) {
	total, err := strconv.Atoi(fields["total"])
	if err != nil {
		return models.VotingStats{}, fmt.Errorf("invalid cached total: %w", err)
	}
	approved, err := strconv.Atoi(fields["approved"])
	if err != nil {
		return models.VotingStats{}, fmt.Errorf("invalid cached approved count: %w", err)
	}
	return models.VotingStats{Total: total, Approved: approved, Declined: total - approved}, nil
}

// NoopStatsCache never holds anything.
type NoopStatsCache struct{}

func (NoopStatsCache) Get(context.Context, int64) (models.VotingStats, error) {
	return models.VotingStats{}, ErrCacheMiss
}
func (NoopStatsCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (NoopStatsCache) Fill(context.Context, int64, int64, models.VotingStats) error {
	return nil
}
func (NoopStatsCache) Invalidate(context.Context, int64) error { return nil }
func (NoopStatsCache) Close() error                            { return nil }
