package calculator

import (
	"fmt"

	"SignalSentinel/internal/model"
)

const (
	rsiPeriod       = 14
	bollingerPeriod = 20
	bollingerK      = 2.0
	volumeWindow    = 24
)

// ComputeIndicators assembles an IndicatorSnapshot from a chronologically
// ordered candle window. It fails only on an empty window; every indicator
// has a degraded value for short ones.
func ComputeIndicators(candles []model.Candle) (*model.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return nil, ErrNoData
	}
	closes := extractCloses(candles)
	snap := &model.IndicatorSnapshot{CurrentPrice: closes[len(closes)-1]}

	var err error
	if snap.RSI, err = CalculateRSI(candles, rsiPeriod); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if snap.EMA20, err = CalculateEMA(closes, 20); err != nil {
		return nil, fmt.Errorf("ema20: %w", err)
	}
	if snap.EMA50, err = CalculateEMA(closes, 50); err != nil {
		return nil, fmt.Errorf("ema50: %w", err)
	}
	if snap.MACD, err = CalculateMACD(closes); err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	if snap.Bollinger, err = CalculateBollinger(closes, bollingerPeriod, bollingerK); err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}
	if snap.Support, snap.Resistance, err = CalculateSupportResistance(candles); err != nil {
		return nil, fmt.Errorf("support/resistance: %w", err)
	}
	snap.PriceChange24h = CalculatePriceChange(candles)
	snap.Volume24h = CalculateVolume(candles, volumeWindow)

	return snap, nil
}
