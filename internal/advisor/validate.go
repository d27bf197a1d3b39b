package advisor

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"SignalSentinel/internal/model"
)

// ErrInvalidCandidate marks generator output that cannot be coerced into a
// Recommendation.
var ErrInvalidCandidate = errors.New("invalid candidate")

const (
	maxReasoningItems = 4
	maxReasoningRunes = 200
	defaultTimeframe  = "24h"
)

var actionAliases = map[string]model.Action{
	"buy":   model.ActionBuy,
	"long":  model.ActionBuy,
	"sell":  model.ActionSell,
	"short": model.ActionSell,
	"hold":  model.ActionHold,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCandidate, fmt.Sprintf(format, args...))
}

// Validate coerces a candidate into a new pending Recommendation. currentPrice
// replaces a missing entry price.
func Validate(symbol string, c model.Candidate, currentPrice float64, now time.Time) (model.Recommendation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Recommendation{}, invalid("symbol is required")
	}

	action, ok := actionAliases[strings.ToLower(strings.TrimSpace(c.Action))]
	if !ok {
		return model.Recommendation{}, invalid("unknown action %q", c.Action)
	}

	if !positive(c.TargetPrice) {
		return model.Recommendation{}, invalid("target price %v", c.TargetPrice)
	}
	if !positive(c.StopLoss) {
		return model.Recommendation{}, invalid("stop loss %v", c.StopLoss)
	}
	entry := c.EntryPrice
	if !positive(entry) {
		entry = currentPrice
	}
	if !positive(entry) {
		return model.Recommendation{}, invalid("entry price %v", c.EntryPrice)
	}

	reasoning := cleanReasoning(c.Reasoning)
	if len(reasoning) == 0 {
		return model.Recommendation{}, invalid("reasoning is empty")
	}

	tf := strings.TrimSpace(c.Timeframe)
	if tf == "" {
		tf = defaultTimeframe
	}

	return model.Recommendation{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Action:      action,
		Confidence:  clampConfidence(c.Confidence),
		TargetPrice: c.TargetPrice,
		StopLoss:    c.StopLoss,
		EntryPrice:  entry,
		Reasoning:   reasoning,
		Timeframe:   tf,
		RiskLevel:   parseRisk(c.RiskLevel),
		Status:      model.StatusPending,
		CreatedAt:   now.UTC(),
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func parseRisk(s string) model.RiskLevel {
	switch model.RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case model.RiskLow:
		return model.RiskLow
	case model.RiskHigh:
		return model.RiskHigh
	}
	return model.RiskMedium
}

func cleanReasoning(items []string) []string {
	out := make([]string, 0, maxReasoningItems)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if utf8.RuneCountInString(item) > maxReasoningRunes {
			item = string([]rune(item)[:maxReasoningRunes])
		}
		out = append(out, item)
		if len(out) == maxReasoningItems {
			break
		}
	}
	return out
}
