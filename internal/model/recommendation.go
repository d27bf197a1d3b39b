package model

import "time"

// Action is the recommended trade direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// RiskLevel grades the risk of a recommendation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Status is the evaluation state of a recommendation. Pending is the only
// non-terminal value.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccurate   Status = "accurate"
	StatusInaccurate Status = "inaccurate"
	StatusExpired    Status = "expired"
)

// Terminal reports whether s can no longer change.
func (s Status) Terminal() bool {
	return s == StatusAccurate || s == StatusInaccurate || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Recommendation is a validated, stored trading recommendation.
type Recommendation struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Action      Action     `json:"action"`
	Confidence  float64    `json:"confidence"`
	TargetPrice float64    `json:"target_price"`
	StopLoss    float64    `json:"stop_loss"`
	EntryPrice  float64    `json:"entry_price"`
	Reasoning   []string   `json:"reasoning"`
	Timeframe   string     `json:"timeframe"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
}

// Candidate is the loosely-typed recommendation a generator produces.
// It must pass validation before it becomes a Recommendation.
type Candidate struct {
	Action      string   `json:"action"`
	Confidence  float64  `json:"confidence"`
	TargetPrice float64  `json:"target_price"`
	StopLoss    float64  `json:"stop_loss"`
	EntryPrice  float64  `json:"entry_price"`
	Reasoning   []string `json:"reasoning"`
	Timeframe   string   `json:"timeframe"`
	RiskLevel   string   `json:"risk_level"`
}

// EvaluationStats summarizes recommendation outcomes.
type EvaluationStats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Accurate     int     `json:"accurate"`
	Inaccurate   int     `json:"inaccurate"`
	Expired      int     `json:"expired"`
	AccuracyRate float64 `json:"accuracy_rate"`
}
