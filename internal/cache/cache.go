// Package cache stores extracted vacancy signals so repeated detailed scoring of
// the same vacancy skips the extraction call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/resume-studio/internal/types"
)

const keyPrefix = "resume-studio:signals:"

// SignalCache stores vacancy signals by vacancy hash. A miss is (nil, nil).
type SignalCache interface {
	GetSignals(ctx context.Context, vacancyHash string) ([]types.VacancySignal, error)
	PutSignals(ctx context.Context, vacancyHash string, signals []types.VacancySignal) error
}

// Config holds Redis connection settings.
type Config struct {
	URL          string        `envconfig:"REDIS_URL"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

// NewClient connects to Redis and verifies the connection.
func (c Config) NewClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	opts.DialTimeout = c.DialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisSignalCache is a SignalCache backed by Redis string keys with a TTL.
type RedisSignalCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisSignalCache creates a Redis-backed cache.
func NewRedisSignalCache(rdb redis.Cmdable, ttl time.Duration) *RedisSignalCache {
	return &RedisSignalCache{rdb: rdb, ttl: ttl}
}

// GetSignals returns cached signals for a vacancy hash.
func (c *RedisSignalCache) GetSignals(ctx context.Context, vacancyHash string) ([]types.VacancySignal, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+vacancyHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read signals: %w", err)
	}

	var signals []types.VacancySignal
	if err := json.Unmarshal(raw, &signals); err != nil {
		return nil, fmt.Errorf("failed to decode cached signals: %w", err)
	}
	return signals, nil
}

// PutSignals stores signals for a vacancy hash.
func (c *RedisSignalCache) PutSignals(ctx context.Context, vacancyHash string, signals []types.VacancySignal) error {
	raw, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+vacancyHash, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write signals: %w", err)
	}
	return nil
}

// Noop is a SignalCache that never stores anything.
type Noop struct{}

// GetSignals always misses.
func (Noop) GetSignals(context.Context, string) ([]types.VacancySignal, error) { return nil, nil }

// PutSignals discards the signals.
func (Noop) PutSignals(context.Context, string, []types.VacancySignal) error { return nil }
