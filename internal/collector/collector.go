package collector

import (
	"context"
	"fmt"
	"time"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Candles []model.Candle
	Err     error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, _ string, _ string, limit int) ([]model.Candle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Candles != nil {
		return m.Candles, nil
	}
	return generateMockCandles(m.Price, limit), nil
}

func generateMockCandles(basePrice float64, count int) []model.Candle {
	end := time.Now().UTC().Truncate(time.Hour)
	candles := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		open := end.Add(-time.Duration(count-i) * time.Hour)
		candles[i] = model.Candle{
			OpenTime:    open,
			CloseTime:   open.Add(time.Hour - time.Millisecond),
			Open:        p * 0.999,
			High:        p * 1.005,
			Low:         p * 0.995,
			Close:       p,
			Volume:      1000,
			QuoteVolume: 1000 * p,
			TradeCount:  100,
		}
	}
	return candles
}

// Collector fetches candles and computes the indicator snapshot.
type Collector struct {
	Fetcher CandleFetcher
	Limit   int
	Metrics *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(fetcher CandleFetcher, limit int) *Collector {
	return &Collector{Fetcher: fetcher, Limit: limit}
}

// Collect fetches one candle window and computes all indicators on it.
func (c *Collector) Collect(ctx context.Context, symbol, interval string) (*model.IndicatorSnapshot, []model.Candle, error) {
	op := logger.StartOperation(ctx, "collect", "symbol", symbol, "interval", interval, "source", c.Fetcher.Name())

	candles, err := c.Fetcher.FetchCandles(op.Context(), symbol, interval, c.Limit)
	if err != nil {
		c.Metrics.ObserveCandleFetch("error")
		op.EndWithError(err)
		return nil, nil, fmt.Errorf("fetch candles: %w", err)
	}
	c.Metrics.ObserveCandleFetch("ok")

	snap, err := calculator.ComputeIndicators(candles)
	if err != nil {
		op.EndWithError(err)
		return nil, nil, fmt.Errorf("compute indicators: %w", err)
	}
	op.End("candles", len(candles))
	return snap, candles, nil
}
