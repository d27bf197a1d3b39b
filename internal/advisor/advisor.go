package advisor

import (
	"context"
	"fmt"
	"time"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

// Input is what a generator sees for one symbol.
type Input struct {
	Symbol   string
	Interval string
	Snapshot *model.IndicatorSnapshot
	Quote    *model.Quote // optional live quote
}

// Generator produces a loosely-typed candidate for one snapshot.
type Generator interface {
	Name() string
	Generate(ctx context.Context, in Input) (model.Candidate, error)
}

// Collector is the ingest half of the flow.
type Collector interface {
	Collect(ctx context.Context, symbol, interval string) (*model.IndicatorSnapshot, []model.Candle, error)
}

// QuoteSource supplies optional live context for the generator.
type QuoteSource interface {
	QuoteOrCached(ctx context.Context, symbol string) (model.Quote, bool)
}

// Result is one stored recommendation and the snapshot it was made from.
type Result struct {
	Recommendation model.Recommendation     `json:"recommendation"`
	Snapshot       *model.IndicatorSnapshot `json:"snapshot"`
}

// Advisor runs ingest, generation, validation and storage for one symbol.
type Advisor struct {
	Collector Collector
	Quotes    QuoteSource
	Generator Generator
	Store     store.Store
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func New(c Collector, g Generator, st store.Store) *Advisor {
	return &Advisor{Collector: c, Generator: g, Store: st, Now: time.Now}
}

// Analyze builds and stores a new pending recommendation for symbol.
func (a *Advisor) Analyze(ctx context.Context, symbol, interval string) (*Result, error) {
	op := logger.StartOperation(ctx, "analyze", "symbol", symbol, "interval", interval, "generator", a.Generator.Name())
	ctx = op.Context()

	snap, _, err := a.Collector.Collect(ctx, symbol, interval)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}

	in := Input{Symbol: symbol, Interval: interval, Snapshot: snap}
	if a.Quotes != nil {
		if q, ok := a.Quotes.QuoteOrCached(ctx, symbol); ok {
			in.Quote = &q
		}
	}

	cand, err := a.Generator.Generate(ctx, in)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("generate: %w", err)
	}

	rec, err := Validate(symbol, cand, snap.CurrentPrice, a.now())
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}

	if err := a.Store.Insert(ctx, &rec); err != nil {
		a.Metrics.ObserveStoreError("insert")
		op.EndWithError(err)
		return nil, err
	}
	a.Metrics.ObserveRecommendation(string(rec.Action))

	op.End("id", rec.ID, "action", string(rec.Action), "confidence", rec.Confidence)
	return &Result{Recommendation: rec, Snapshot: snap}, nil
}

func (a *Advisor) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
