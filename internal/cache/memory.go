package cache

import (
	"context"
	"sync"
	"time"

	"SignalSentinel/internal/model"
)

// MemoryQuoteCache is an in-process QuoteCache used when Redis is not configured.
type MemoryQuoteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	quote   model.Quote
	expires time.Time
}

func NewMemoryQuoteCache(ttl time.Duration) *MemoryQuoteCache {
	return &MemoryQuoteCache{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryQuoteCache) Get(_ context.Context, symbol string) (model.Quote, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok {
		return model.Quote{}, false, nil
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, symbol)
		return model.Quote{}, false, nil
	}
	return e.quote, true, nil
}

func (c *MemoryQuoteCache) Set(_ context.Context, q model.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	q.Stale = false
	c.entries[q.Symbol] = memoryEntry{quote: q, expires: c.now().Add(c.ttl)}
	return nil
}
