package temporal

import (
	"context"
	"sync"
	"time"
)

// PriceCache caches recent prices in live mode. Readers may observe entries
// stale up to the TTL.
type PriceCache interface {
	Get(ctx context.Context, symbol string) (float64, bool)
	Set(ctx context.Context, symbol string, price float64)
	Flush(ctx context.Context)
}

// memoryPriceCache is a concurrent-safe in-process TTL cache
type memoryPriceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryPriceEntry
	now     func() time.Time
}

type memoryPriceEntry struct {
	price    float64
	storedAt time.Time
}

// NewMemoryPriceCache creates an in-memory TTL price cache
func NewMemoryPriceCache(ttl time.Duration) PriceCache {
	return &memoryPriceCache{
		ttl:     ttl,
		entries: make(map[string]memoryPriceEntry),
		now:     time.Now,
	}
}

func (c *memoryPriceCache) Get(ctx context.Context, symbol string) (float64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.storedAt) > c.ttl {
		return 0, false
	}
	return entry.price, true
}

func (c *memoryPriceCache) Set(ctx context.Context, symbol string, price float64) {
	c.mu.Lock()
	c.entries[symbol] = memoryPriceEntry{price: price, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *memoryPriceCache) Flush(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]memoryPriceEntry)
	c.mu.Unlock()
}
