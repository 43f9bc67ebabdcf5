package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "rentops:dashboard:"
	generationKey = keyPrefix + "generation"
	defaultTTL    = 5 * time.Minute
)

// Cache stores dashboard snapshots in Redis. Every key embeds a generation
// counter; JobsChanged bumps it, so a write makes all earlier snapshots
// unreachable without deleting them. A nil client turns the cache into a
// pass-through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	warnedUnavailable atomic.Bool
}

// Dial connects to Redis at addr. When the server does not answer it logs
// once and returns nil, which callers pass to NewCache to bypass caching.
func Dial(ctx context.Context, addr, password string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, bypassing dashboard cache", slog.String("addr", addr), slog.Any("err", err))
		_ = client.Close()
		return nil
	}
	return client
}

func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) unavailable() bool {
	return c == nil || c.client == nil
}

func (c *Cache) warnOnce(err error) {
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.logger.Warn("redis error, bypassing dashboard cache", slog.Any("err", err))
	}
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	g, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

func (c *Cache) key(ctx context.Context, name string) (string, error) {
	g, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sg%d:%s", keyPrefix, g, name), nil
}

// Get resolves name against the current generation and decodes the snapshot
// stored there into out. The returned key pins that generation: a snapshot
// computed after this call must be stored with Set under the same key, so a
// write that lands in between leaves it unreachable. An empty key means the
// generation could not be read and nothing should be stored.
func (c *Cache) Get(ctx context.Context, name string, out any) (string, bool, error) {
	if c.unavailable() {
		return "", false, nil
	}
	key, err := c.key(ctx, name)
	if err != nil {
		c.warnOnce(err)
		return "", false, err
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return key, false, nil
	}
	if err != nil {
		c.warnOnce(err)
		return key, false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return key, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return key, true, nil
}

// Set stores v under a key returned by Get.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c.unavailable() || key == "" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.warnOnce(err)
		return err
	}
	return nil
}

// JobsChanged invalidates every snapshot taken so far.
func (c *Cache) JobsChanged(ctx context.Context) {
	if c.unavailable() {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.warnOnce(err)
	}
}
