package strategy

import (
	"fmt"
	"math"

	"SignalSentinel/internal/model"
)

// FactorScore is one scored input to the total.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

func factor(name string, score, weight float64, commentary string) FactorScore {
	return FactorScore{Name: name, RawScore: score, Weight: weight, Weighted: score * weight, Commentary: commentary}
}

// scoreRSI rewards oversold and penalizes overbought momentum.
// Weight: 0.30
func scoreRSI(s *model.IndicatorSnapshot) FactorScore {
	rsi := s.RSI
	var score float64
	switch {
	case rsi <= 25:
		score = 2.0
	case rsi <= 30:
		score = 1.5
	case rsi <= 40:
		score = 1.0
	case rsi <= 45:
		score = 0.5
	case rsi <= 55:
		score = 0
	case rsi <= 60:
		score = -0.5
	case rsi <= 70:
		score = -1.0
	case rsi <= 80:
		score = -1.5
	default:
		score = -2.0
	}

	var note string
	switch {
	case rsi <= 30:
		note = fmt.Sprintf("RSI %.0f is oversold", rsi)
	case rsi >= 70:
		note = fmt.Sprintf("RSI %.0f is overbought", rsi)
	default:
		note = fmt.Sprintf("RSI %.0f is neutral", rsi)
	}
	return factor("rsi", score, 0.30, note)
}

// scoreMACD scores the histogram relative to price.
// Weight: 0.20
func scoreMACD(s *model.IndicatorSnapshot) FactorScore {
	if s.CurrentPrice <= 0 {
		return factor("macd", 0, 0.20, "MACD unavailable")
	}
	rel := s.MACD.Histogram / s.CurrentPrice * 100

	var score float64
	switch {
	case rel >= 0.5:
		score = 1.5
	case rel > 0:
		score = 0.5
	case rel == 0:
		score = 0
	case rel > -0.5:
		score = -0.5
	default:
		score = -1.5
	}

	note := "MACD is flat"
	if rel > 0 {
		note = fmt.Sprintf("MACD histogram positive (%+.3f%% of price)", rel)
	} else if rel < 0 {
		note = fmt.Sprintf("MACD histogram negative (%+.3f%% of price)", rel)
	}
	return factor("macd", score, 0.20, note)
}

// scoreTrend scores EMA alignment.
// Weight: 0.25
// Bull alignment: price > EMA20 > EMA50
// Bear alignment: price < EMA20 < EMA50
func scoreTrend(s *model.IndicatorSnapshot) FactorScore {
	p := s.CurrentPrice
	bullish := p > s.EMA20 && s.EMA20 > s.EMA50
	bearish := p < s.EMA20 && s.EMA20 < s.EMA50

	switch {
	case bullish:
		return factor("trend", 1.5, 0.25, "price above EMA20 above EMA50 (uptrend)")
	case bearish:
		return factor("trend", -1.5, 0.25, "price below EMA20 below EMA50 (downtrend)")
	case p > s.EMA20:
		return factor("trend", 0.5, 0.25, "price above EMA20")
	case p < s.EMA20:
		return factor("trend", -0.5, 0.25, "price below EMA20")
	}
	return factor("trend", 0, 0.25, "price at EMA20")
}

// scoreBollinger scores where price sits inside the bands.
// Weight: 0.15
func scoreBollinger(s *model.IndicatorSnapshot) FactorScore {
	b := s.Bollinger
	width := b.Upper - b.Lower
	if width <= 0 {
		return factor("bollinger", 0, 0.15, "Bollinger bands collapsed")
	}
	pos := (s.CurrentPrice - b.Lower) / width

	var score float64
	switch {
	case pos <= 0:
		score = 2.0
	case pos <= 0.2:
		score = 1.0
	case pos <= 0.8:
		score = 0
	case pos < 1:
		score = -1.0
	default:
		score = -2.0
	}
	return factor("bollinger", score, 0.15, fmt.Sprintf("price at %.0f%% of the Bollinger range", pos*100))
}

// scoreLevels scores proximity to support and resistance.
// Weight: 0.10
func scoreLevels(s *model.IndicatorSnapshot) FactorScore {
	p := s.CurrentPrice
	if p <= 0 || s.Support <= 0 || s.Resistance <= 0 {
		return factor("levels", 0, 0.10, "levels unavailable")
	}
	toSupport := math.Abs(p-s.Support) / p * 100
	toResistance := math.Abs(s.Resistance-p) / p * 100

	switch {
	case p < s.Support:
		return factor("levels", -1.0, 0.10, fmt.Sprintf("broke below support %.4g", s.Support))
	case p > s.Resistance:
		return factor("levels", 1.0, 0.10, fmt.Sprintf("broke above resistance %.4g", s.Resistance))
	case toSupport < 2 && toSupport <= toResistance:
		return factor("levels", 1.0, 0.10, fmt.Sprintf("near support %.4g", s.Support))
	case toResistance < 2:
		return factor("levels", -1.0, 0.10, fmt.Sprintf("near resistance %.4g", s.Resistance))
	}
	return factor("levels", 0, 0.10, fmt.Sprintf("between support %.4g and resistance %.4g", s.Support, s.Resistance))
}
