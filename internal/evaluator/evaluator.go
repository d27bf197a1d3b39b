package evaluator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

// DefaultThrottle is the pause between oracle lookups within a pass.
const DefaultThrottle = 500 * time.Millisecond

// PriceOracle returns a live quote, or false when no source has data.
type PriceOracle interface {
	Quote(ctx context.Context, symbol string) (model.Quote, bool)
}

// Transition records one status change made during a pass.
type Transition struct {
	ID     string       `json:"id"`
	Symbol string       `json:"symbol"`
	Action model.Action `json:"action"`
	Status model.Status `json:"status"`
	Price  float64      `json:"price,omitempty"` // zero for expiries, which are decided without a quote
}

// Summary describes the outcome of one evaluation pass.
type Summary struct {
	Considered    int           `json:"considered"`
	Accurate      int           `json:"accurate"`
	Inaccurate    int           `json:"inaccurate"`
	Expired       int           `json:"expired"`
	StillPending  int           `json:"still_pending"`
	SkippedNoData int           `json:"skipped_no_data"`
	WriteFailures int           `json:"write_failures"`
	Transitions   []Transition  `json:"transitions"`
	Duration      time.Duration `json:"duration_ns"`
}

// Transitioned returns the number of records that reached a terminal status.
func (s Summary) Transitioned() int { return s.Accurate + s.Inaccurate + s.Expired }

// Evaluator grades pending recommendations against live prices. Passes are
// not serialized; callers are expected to run one at a time, and the store's
// conditional update keeps a racing pass from overwriting a terminal status.
type Evaluator struct {
	store   store.Store
	oracle  PriceOracle
	rules   Rules
	limiter *rate.Limiter
	now     func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

func WithRules(r Rules) Option { return func(e *Evaluator) { e.rules = r } }

// WithThrottle sets the pause between oracle lookups. Zero disables it.
func WithThrottle(d time.Duration) Option {
	return func(e *Evaluator) { e.limiter = newLimiter(d) }
}

func WithClock(now func() time.Time) Option { return func(e *Evaluator) { e.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Evaluator) { e.metrics = m } }

// New creates an Evaluator with DefaultRules and DefaultThrottle.
func New(st store.Store, oracle PriceOracle, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:   st,
		oracle:  oracle,
		rules:   DefaultRules(),
		limiter: newLimiter(DefaultThrottle),
		now:     time.Now,
		log:     logger.Component("evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Rules returns the thresholds in use.
func (e *Evaluator) Rules() Rules { return e.rules }

// EvaluateAllPending runs one pass over every pending recommendation. Only a
// failure to list pending records or a cancelled context is returned as an
// error; per-record failures are logged and counted in the summary.
func (e *Evaluator) EvaluateAllPending(ctx context.Context) (Summary, error) {
	op := logger.StartOperation(ctx, "evaluate_pending")
	ctx = op.Context()
	start := time.Now()

	var sum Summary
	pending, err := e.store.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		e.metrics.ObserveStoreError("list_by_status")
		op.EndWithError(err)
		return sum, err
	}
	sum.Considered = len(pending)

	for _, rec := range pending {
		now := e.now()
		if e.rules.Expired(rec, now) {
			e.transition(ctx, &sum, rec, model.StatusExpired, 0, now)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			sum.Duration = time.Since(start)
			op.EndWithError(err, "considered", sum.Considered)
			return sum, err
		}

		q, ok := e.oracle.Quote(ctx, rec.Symbol)
		if !ok {
			sum.SkippedNoData++
			e.metrics.ObserveEvaluation("no_data")
			e.log.Warn().Str("id", rec.ID).Str("symbol", rec.Symbol).Msg("no price data, leaving pending")
			continue
		}

		status := e.rules.Decide(rec, q.Price, now)
		if status == model.StatusPending {
			sum.StillPending++
			e.metrics.ObserveEvaluation(string(model.StatusPending))
			continue
		}
		e.transition(ctx, &sum, rec, status, q.Price, now)
	}

	sum.Duration = time.Since(start)
	e.metrics.ObservePass(sum.Duration)
	op.End(
		"considered", sum.Considered,
		"transitioned", sum.Transitioned(),
		"skipped", sum.SkippedNoData,
		"write_failures", sum.WriteFailures,
	)
	return sum, nil
}

func (e *Evaluator) transition(ctx context.Context, sum *Summary, rec model.Recommendation, status model.Status, price float64, now time.Time) {
	err := e.store.UpdateStatus(ctx, rec.ID, status, now)
	if errors.Is(err, store.ErrNotPending) {
		// another pass got there first
		e.log.Info().Str("id", rec.ID).Msg("recommendation already evaluated")
		return
	}
	if err != nil {
		sum.WriteFailures++
		e.metrics.ObserveStoreError("update")
		e.log.Error().Err(err).Str("id", rec.ID).Str("status", string(status)).Msg("persist transition")
		return
	}

	switch status {
	case model.StatusAccurate:
		sum.Accurate++
	case model.StatusInaccurate:
		sum.Inaccurate++
	case model.StatusExpired:
		sum.Expired++
	}
	sum.Transitions = append(sum.Transitions, Transition{
		ID: rec.ID, Symbol: rec.Symbol, Action: rec.Action, Status: status, Price: price,
	})
	e.metrics.ObserveEvaluation(string(status))
	e.log.Info().
		Str("id", rec.ID).
		Str("symbol", rec.Symbol).
		Str("action", string(rec.Action)).
		Str("status", string(status)).
		Float64("price", price).
		Msg("recommendation evaluated")
}
