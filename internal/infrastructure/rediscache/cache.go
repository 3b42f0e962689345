package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"walletops/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	versionKey     = "walletops:history:version"
	keyPrefix      = "walletops:history:v"
	defaultTTL     = time.Minute
	connectTimeout = 2 * time.Second
)

type Config struct {
	Addr string
	TTL  time.Duration
}

// Cache stores history pages in Redis as JSON. Keys embed a version counter
// so Invalidate drops every page with a single INCR.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(cfg Config) (*Cache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Cache{client: client, ttl: cfg.TTL}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Get(ctx context.Context, key string) (domain.HistoryPage, bool, error) {
	version, err := c.version(ctx)
	if err != nil {
		return domain.HistoryPage{}, false, err
	}
	cached, err := c.client.Get(ctx, pageKey(version, key)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.HistoryPage{}, false, nil
	}
	if err != nil {
		return domain.HistoryPage{}, false, err
	}
	var page domain.HistoryPage
	if err := json.Unmarshal([]byte(cached), &page); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Set.
		return domain.HistoryPage{}, false, nil
	}
	return page, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, page domain.HistoryPage) error {
	version, err := c.version(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode history page: %w", err)
	}
	return c.client.Set(ctx, pageKey(version, key), payload, c.ttl).Err()
}

// Invalidate retires every cached page.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, versionKey).Err()
}

func (c *Cache) version(ctx context.Context) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Result()
	if err == nil {
		return version, nil
	}
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return "", err
}

func pageKey(version, key string) string {
	var b strings.Builder
	b.Grow(len(keyPrefix) + len(version) + len(key) + 1)
	b.WriteString(keyPrefix)
	b.WriteString(version)
	b.WriteString(":")
	b.WriteString(key)
	return b.String()
}
