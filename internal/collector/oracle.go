package collector

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
)

// DefaultAttemptTimeout bounds a single source attempt.
const DefaultAttemptTimeout = 3 * time.Second

// PriceOracle resolves a quote by trying its sources in order until one
// returns a positive price.
type PriceOracle struct {
	Sources        []Source
	AttemptTimeout time.Duration
	Cache          QuoteCache // optional, user-facing fallback only
	Metrics        *metrics.Metrics

	log zerolog.Logger
}

// NewPriceOracle creates an oracle over the given sources.
func NewPriceOracle(sources []Source, attemptTimeout time.Duration) *PriceOracle {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &PriceOracle{
		Sources:        sources,
		AttemptTimeout: attemptTimeout,
		log:            logger.Component("oracle"),
	}
}

// Quote returns the first valid live quote. The bool is false when every
// source failed, which callers treat as "no data" for this cycle.
func (o *PriceOracle) Quote(ctx context.Context, symbol string) (model.Quote, bool) {
	for _, src := range o.Sources {
		q, err := o.attempt(ctx, src, symbol)
		if errors.Is(err, ErrUnmapped) {
			o.Metrics.ObserveOracleAttempt(src.Name(), "skipped")
			continue
		}
		if err != nil {
			o.Metrics.ObserveOracleAttempt(src.Name(), "error")
			o.log.Debug().Err(err).Str("source", src.Name()).Str("symbol", symbol).Msg("quote attempt failed")
			continue
		}
		if !validPrice(q.Price) {
			o.Metrics.ObserveOracleAttempt(src.Name(), "invalid")
			o.log.Debug().Str("source", src.Name()).Str("symbol", symbol).Float64("price", q.Price).Msg("quote rejected")
			continue
		}
		o.Metrics.ObserveOracleAttempt(src.Name(), "ok")
		return q, true
	}
	o.log.Warn().Str("symbol", symbol).Int("sources", len(o.Sources)).Msg("no price data from any source")
	return model.Quote{}, false
}

// QuoteOrCached is Quote for user-facing callers: live quotes are written
// through to the cache, and a cached quote marked Stale is served when every
// live source fails.
func (o *PriceOracle) QuoteOrCached(ctx context.Context, symbol string) (model.Quote, bool) {
	q, ok := o.Quote(ctx, symbol)
	if o.Cache == nil {
		return q, ok
	}
	if ok {
		if err := o.Cache.Set(ctx, q); err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Msg("cache quote")
		}
		return q, true
	}

	cached, found, err := o.Cache.Get(ctx, NormalizeSymbol(symbol))
	if err != nil {
		o.log.Warn().Err(err).Str("symbol", symbol).Msg("read cached quote")
		return model.Quote{}, false
	}
	if !found {
		return model.Quote{}, false
	}
	cached.Stale = true
	return cached, true
}

func (o *PriceOracle) attempt(ctx context.Context, src Source, symbol string) (model.Quote, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.AttemptTimeout)
	defer cancel()
	return src.Fetch(attemptCtx, symbol)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
