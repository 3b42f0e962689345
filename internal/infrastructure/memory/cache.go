package memory

import (
	"context"
	"sync"
	"time"

	"walletops/internal/domain"
)

const DefaultTTL = time.Minute

type entry struct {
	page     domain.HistoryPage
	storedAt time.Time
}

// Cache is an in-process page cache. Entries are fresh for TTL after they
// are stored and are evicted lazily on lookup or by Sweep.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (c *Cache) Get(ctx context.Context, key string) (domain.HistoryPage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.HistoryPage{}, false, nil
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return domain.HistoryPage{}, false, nil
	}
	return clonePage(e.page), true, nil
}

func (c *Cache) Set(ctx context.Context, key string, page domain.HistoryPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{page: clonePage(page), storedAt: c.now()}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// clonePage copies the item slice so callers cannot mutate cached pages.
func clonePage(page domain.HistoryPage) domain.HistoryPage {
	if page.Items != nil {
		items := make([]domain.NormalizedTransaction, len(page.Items))
		copy(items, page.Items)
		page.Items = items
	}
	return page
}
