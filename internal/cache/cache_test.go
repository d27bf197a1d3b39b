package cache

import (
	"context"
	"testing"
	"time"

	"SignalSentinel/internal/model"
)

func TestMemoryQuoteCache_TTL(t *testing.T) {
	c := NewMemoryQuoteCache(time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := c.Set(ctx, model.Quote{Symbol: "BTC", Price: 1, Stale: true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	q, ok, err := c.Get(ctx, "BTC")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if q.Stale {
		t.Error("stored quote should not carry the stale flag")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "BTC"); ok {
		t.Error("expected entry to expire")
	}
	if _, ok, _ := c.Get(ctx, "ETH"); ok {
		t.Error("expected miss for unknown symbol")
	}
}

func TestQuoteCodecRoundTrip(t *testing.T) {
	in := model.Quote{Symbol: "ETH", Price: 3000, Change24h: -2, Source: "coingecko", Stale: true,
		FetchedAt: time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)}
	data, err := encodeQuote(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeQuote(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	in.Stale = false
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
	if _, err := decodeQuote([]byte("{")); err == nil {
		t.Error("expected decode error")
	}
	if quoteKey("BTC") != "signalsentinel:quote:BTC" {
		t.Errorf("unexpected key %s", quoteKey("BTC"))
	}
}
