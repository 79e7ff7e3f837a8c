package temporal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisPriceCache backs the live-mode price cache with Redis so multiple
// engine instances share one watermarked view of recent prices.
type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// redisPriceEntry is the cached payload
type redisPriceEntry struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRedisPriceCache creates a Redis-backed price cache.
// Returns nil for a nil client (Redis support is optional).
func NewRedisPriceCache(client *redis.Client, ttl time.Duration) *RedisPriceCache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = 10 * time.Second
	}
	return &RedisPriceCache{
		client: client,
		ttl:    ttl,
		prefix: "sigmax:price:",
	}
}

// Get retrieves a cached price. Any Redis error is a cache miss.
func (c *RedisPriceCache) Get(ctx context.Context, symbol string) (float64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, c.prefix+symbol).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("Redis get error - treating as cache miss")
		}
		return 0, false
	}

	var entry redisPriceEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to unmarshal cached price")
		return 0, false
	}
	return entry.Price, true
}

// Set stores a price with the configured TTL. Cache write failures are
// logged, never surfaced.
func (c *RedisPriceCache) Set(ctx context.Context, symbol string, price float64) {
	if c == nil || c.client == nil {
		return
	}

	entry := redisPriceEntry{Symbol: symbol, Price: price, Timestamp: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to marshal price entry")
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(cacheCtx, c.prefix+symbol, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price")
	}
}

// Flush removes all cached prices under this cache's prefix
func (c *RedisPriceCache) Flush(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	iter := c.client.Scan(cacheCtx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(cacheCtx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to scan price cache keys")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(cacheCtx, keys...).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to flush price cache")
		}
	}
}
