package evaluator

import (
	"math"
	"time"

	"SignalSentinel/internal/model"
)

// Rules holds the thresholds of the evaluation state machine.
type Rules struct {
	Expiry      time.Duration // pending records older than this expire
	HoldMinAge  time.Duration // a hold can only succeed after this long
	HoldBandPct float64       // a hold succeeds while |change| stays within this percent
}

// DefaultRules returns a 30 day expiry with a 7 day, 10% hold gate.
func DefaultRules() Rules {
	return Rules{
		Expiry:      30 * 24 * time.Hour,
		HoldMinAge:  7 * 24 * time.Hour,
		HoldBandPct: 10,
	}
}

// Expired reports whether rec is past its expiry at now. It depends only on
// createdAt, never on price availability.
func (r Rules) Expired(rec model.Recommendation, now time.Time) bool {
	return now.Sub(rec.CreatedAt) > r.Expiry
}

// Decide returns the status rec should move to given the current price.
// StatusPending means no transition.
func (r Rules) Decide(rec model.Recommendation, price float64, now time.Time) model.Status {
	if r.Expired(rec, now) {
		return model.StatusExpired
	}

	switch rec.Action {
	case model.ActionBuy:
		// target before stop: a target equal to the stop resolves as accurate
		if price >= rec.TargetPrice {
			return model.StatusAccurate
		}
		if price <= rec.StopLoss {
			return model.StatusInaccurate
		}
	case model.ActionSell:
		if price <= rec.TargetPrice {
			return model.StatusAccurate
		}
		if price >= rec.StopLoss {
			return model.StatusInaccurate
		}
	case model.ActionHold:
		if rec.EntryPrice > 0 && now.Sub(rec.CreatedAt) >= r.HoldMinAge {
			pct := (price - rec.EntryPrice) / rec.EntryPrice * 100
			if math.Abs(pct) <= r.HoldBandPct {
				return model.StatusAccurate
			}
		}
		if price <= rec.StopLoss {
			return model.StatusInaccurate
		}
	}
	return model.StatusPending
}
