package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"marketqa/internal/model"
)

// ErrMiss is returned by a Backend when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Backend is the key-value server behind ResultCache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrMiss when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Publish(ctx context.Context, channel string, message []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig configures the Redis response cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// Breaker settings; zero values pick 5 failures / 10s.
	MaxFailures  int
	ResetTimeout time.Duration
}

// ResultCache stores rendered answers in Redis behind a circuit breaker.
// It implements model.ResultCache. While the breaker is open, Get reports
// a miss and Set is skipped, so callers fall through to the store.
type ResultCache struct {
	backend Backend
	cb      *CircuitBreaker
}

var _ model.ResultCache = (*ResultCache)(nil)

// NewCache connects to Redis, pings it and returns a ResultCache.
func NewCache(cfg CacheConfig) (*ResultCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewCacheWithBackend(&clientBackend{client: client}, cfg), nil
}

// NewCacheWithBackend wraps an existing backend.
func NewCacheWithBackend(b Backend, cfg CacheConfig) *ResultCache {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	reset := cfg.ResetTimeout
	if reset <= 0 {
		reset = 10 * time.Second
	}
	return &ResultCache{backend: b, cb: NewCircuitBreaker(maxFailures, reset)}
}

// Breaker exposes the circuit breaker, e.g. to hook state changes into
// metrics.
func (c *ResultCache) Breaker() *CircuitBreaker { return c.cb }

// Get returns the payload stored under key. found is false on a miss or
// while the breaker is open.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := c.cb.Execute(func() error {
		v, err := c.backend.Get(ctx, key)
		if errors.Is(err, ErrMiss) {
			return nil
		}
		payload = v
		return err
	})
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return payload, payload != nil, nil
}

// Set stores payload under key for ttl.
func (c *ResultCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	err := c.cb.Execute(func() error {
		return c.backend.Set(ctx, key, payload, ttl)
	})
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return nil
	case err != nil:
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Publish sends message on a pub/sub channel.
func (c *ResultCache) Publish(ctx context.Context, channel string, message []byte) error {
	err := c.cb.Execute(func() error {
		return c.backend.Publish(ctx, channel, message)
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Ping checks the server, bypassing the breaker.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close closes the connection.
func (c *ResultCache) Close() error {
	return c.backend.Close()
}

// keyPrefix namespaces every key the service writes.
const keyPrefix = "marketqa:"

// Key builds a cache key for a request of the given kind ("ask" or
// "analyze") from its canonical parts. Parts are compared exactly.
func Key(kind string, parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + kind + ":" + hex.EncodeToString(sum[:])
}

// clientBackend adapts a go-redis client to Backend.
type clientBackend struct {
	client *goredis.Client
}

func (b *clientBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, ErrMiss
	}
	return v, err
}

func (b *clientBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *clientBackend) Publish(ctx context.Context, channel string, message []byte) error {
	return b.client.Publish(ctx, channel, message).Err()
}

func (b *clientBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *clientBackend) Close() error {
	return b.client.Close()
}
