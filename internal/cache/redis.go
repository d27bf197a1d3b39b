package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
)

const keyPrefix = "signalsentinel:quote:"

// RedisConfig configures the Redis quote cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisQuoteCache stores the last good quote per symbol as JSON with a TTL.
type RedisQuoteCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisQuoteCache connects and pings the server.
func NewRedisQuoteCache(ctx context.Context, cfg RedisConfig) (*RedisQuoteCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	l := logger.Component("cache")
	l.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.TTL).Msg("redis quote cache connected")
	return &RedisQuoteCache{client: client, ttl: cfg.TTL}, nil
}

func quoteKey(symbol string) string { return keyPrefix + symbol }

func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (model.Quote, bool, error) {
	data, err := c.client.Get(ctx, quoteKey(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.Quote{}, false, nil
	}
	if err != nil {
		return model.Quote{}, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	q, err := decodeQuote(data)
	if err != nil {
		return model.Quote{}, false, err
	}
	return q, true, nil
}

func (c *RedisQuoteCache) Set(ctx context.Context, q model.Quote) error {
	data, err := encodeQuote(q)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, quoteKey(q.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", q.Symbol, err)
	}
	return nil
}

func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}

func encodeQuote(q model.Quote) ([]byte, error) {
	q.Stale = false
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode quote: %w", err)
	}
	return data, nil
}

func decodeQuote(data []byte) (model.Quote, error) {
	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return model.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}
