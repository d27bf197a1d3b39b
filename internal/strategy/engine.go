package strategy

import (
	"context"
	"errors"
	"math"
	"sort"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/model"
)

// Tiers maps a total score to an action and a base confidence.
var Tiers = []struct {
	MinScore   float64
	Action     model.Action
	Confidence float64
}{
	{1.2, model.ActionBuy, 85},
	{0.8, model.ActionBuy, 72},
	{0.4, model.ActionBuy, 60},
	{-0.4, model.ActionHold, 55},
	{-0.8, model.ActionSell, 60},
	{-1.2, model.ActionSell, 72},
}

// DefaultTier applies to scores below the last tier.
var DefaultTier = struct {
	Action     model.Action
	Confidence float64
}{model.ActionSell, 85}

func mapTier(total float64) (model.Action, float64) {
	for _, t := range Tiers {
		if total >= t.MinScore {
			return t.Action, t.Confidence
		}
	}
	return DefaultTier.Action, DefaultTier.Confidence
}

// Signal is the scored view of one snapshot.
type Signal struct {
	Factors    []FactorScore `json:"factors"`
	TotalScore float64       `json:"total_score"`
	Action     model.Action  `json:"action"`
	Confidence float64       `json:"confidence"`
	Warning    string        `json:"warning,omitempty"`
}

// Evaluate scores every factor and maps the weighted sum to an action.
func Evaluate(s *model.IndicatorSnapshot) *Signal {
	factors := []FactorScore{
		scoreRSI(s),
		scoreMACD(s),
		scoreTrend(s),
		scoreBollinger(s),
		scoreLevels(s),
	}
	var total float64
	for _, f := range factors {
		total += f.Weighted
	}
	action, conf := mapTier(total)
	sig := &Signal{Factors: factors, TotalScore: total, Action: action, Confidence: conf}

	if s.RSI > 85 {
		sig.Warning = "RSI above 85, consider taking profit"
	} else if s.RSI < 15 {
		sig.Warning = "RSI below 15, capitulation risk"
	}
	return sig
}

// Engine is the rule-based recommendation generator.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "rules" }

func (e *Engine) Generate(_ context.Context, in advisor.Input) (model.Candidate, error) {
	s := in.Snapshot
	if s == nil || s.CurrentPrice <= 0 {
		return model.Candidate{}, errors.New("snapshot with a current price is required")
	}
	sig := Evaluate(s)
	target, stop := levels(sig.Action, s)

	return model.Candidate{
		Action:      string(sig.Action),
		Confidence:  sig.Confidence,
		TargetPrice: target,
		StopLoss:    stop,
		EntryPrice:  s.CurrentPrice,
		Reasoning:   reasoning(sig),
		Timeframe:   timeframeFor(in.Interval),
		RiskLevel:   string(riskFor(s)),
	}, nil
}

// levels picks target and stop from support/resistance, falling back to
// fixed offsets when a level is on the wrong side of price.
func levels(action model.Action, s *model.IndicatorSnapshot) (target, stop float64) {
	p := s.CurrentPrice
	above := func(level, fallback float64) float64 {
		if level > p*1.01 {
			return level
		}
		return p * fallback
	}
	below := func(level, fallback float64) float64 {
		if level > 0 && level < p*0.99 {
			return level
		}
		return p * fallback
	}

	switch action {
	case model.ActionBuy:
		return above(s.Resistance, 1.05), below(s.Support, 0.97)
	case model.ActionSell:
		return below(s.Support, 0.95), above(s.Resistance, 1.03)
	}
	return above(s.Bollinger.Upper, 1.05), below(s.Support, 0.93)
}

func reasoning(sig *Signal) []string {
	ranked := make([]FactorScore, len(sig.Factors))
	copy(ranked, sig.Factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Weighted) > math.Abs(ranked[j].Weighted)
	})

	out := make([]string, 0, 4)
	if sig.Warning != "" {
		out = append(out, sig.Warning)
	}
	for _, f := range ranked {
		if len(out) == 4 {
			break
		}
		out = append(out, f.Commentary)
	}
	return out
}

func timeframeFor(interval string) string {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m":
		return "4h"
	case "4h", "6h", "8h", "12h":
		return "3d"
	case "1d", "3d":
		return "7d"
	case "1w", "1M":
		return "30d"
	}
	return "24h"
}

func riskFor(s *model.IndicatorSnapshot) model.RiskLevel {
	b := s.Bollinger
	if b.Middle <= 0 {
		return model.RiskMedium
	}
	width := (b.Upper - b.Lower) / b.Middle * 100
	switch {
	case width < 4:
		return model.RiskLow
	case width < 10:
		return model.RiskMedium
	}
	return model.RiskHigh
}
