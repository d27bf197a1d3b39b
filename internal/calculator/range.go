package calculator

import (
	"math"

	"SignalSentinel/internal/model"
)

const (
	srWindow     = 20
	srMinCandles = 10
)

// CalculateSupportResistance scans the most recent 20 candles for the lowest
// low and the highest high. With fewer than 10 candles it falls back to
// +/-5% of the last close.
func CalculateSupportResistance(candles []model.Candle) (support, resistance float64, err error) {
	if len(candles) == 0 {
		return 0, 0, ErrNoData
	}
	n := len(candles)
	if n < srMinCandles {
		last := candles[n-1].Close
		return last * 0.95, last * 1.05, nil
	}
	start := n - srWindow
	if start < 0 {
		start = 0
	}
	resistance = math.Inf(-1)
	support = math.Inf(1)
	for i := start; i < n; i++ {
		if candles[i].High > resistance {
			resistance = candles[i].High
		}
		if candles[i].Low < support {
			support = candles[i].Low
		}
	}
	return support, resistance, nil
}

// CalculatePriceChange returns the percent change between the last two closes.
// This equals a 24h change only for hourly candles.
func CalculatePriceChange(candles []model.Candle) float64 {
	n := len(candles)
	if n < 2 {
		return 0
	}
	prev := candles[n-2].Close
	if prev == 0 {
		return 0
	}
	return (candles[n-1].Close - prev) / prev * 100
}

// CalculateVolume sums volume over the last `count` candles.
func CalculateVolume(candles []model.Candle, count int) float64 {
	start := len(candles) - count
	if start < 0 {
		start = 0
	}
	total := 0.0
	for i := start; i < len(candles); i++ {
		total += candles[i].Volume
	}
	return total
}
