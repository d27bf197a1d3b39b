package calculator

import (
	"math"

	"SignalSentinel/internal/model"
)

// CalculateBollinger computes bands of k population standard deviations around
// the SMA of the last `period` prices. Short series degrade to +/-2% of the
// last price.
func CalculateBollinger(prices []float64, period int, k float64) (model.Bollinger, error) {
	if period <= 0 {
		return model.Bollinger{}, errPeriod
	}
	if len(prices) == 0 {
		return model.Bollinger{}, ErrNoData
	}
	if len(prices) < period {
		last := prices[len(prices)-1]
		return model.Bollinger{Upper: last * 1.02, Middle: last, Lower: last * 0.98}, nil
	}

	window := prices[len(prices)-period:]
	middle, _ := CalculateSMA(window, period)

	variance := 0.0
	for _, p := range window {
		d := p - middle
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	return model.Bollinger{
		Upper:  middle + k*stddev,
		Middle: middle,
		Lower:  middle - k*stddev,
	}, nil
}
