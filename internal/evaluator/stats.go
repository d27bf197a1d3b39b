package evaluator

import (
	"context"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

// StatsAggregator summarizes recommendation outcomes from the store.
type StatsAggregator struct {
	store store.Store
}

func NewStatsAggregator(st store.Store) *StatsAggregator {
	return &StatsAggregator{store: st}
}

// GetStats reads every record and recomputes the summary on each call.
func (a *StatsAggregator) GetStats(ctx context.Context) (model.EvaluationStats, error) {
	recs, err := a.store.ListAll(ctx)
	if err != nil {
		return model.EvaluationStats{}, err
	}
	return ComputeStats(recs), nil
}

// ComputeStats counts statuses. AccuracyRate is accurate/(accurate+inaccurate)
// in percent, and 0 when nothing has been graded yet.
func ComputeStats(recs []model.Recommendation) model.EvaluationStats {
	var s model.EvaluationStats
	s.Total = len(recs)
	for _, r := range recs {
		switch r.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusAccurate:
			s.Accurate++
		case model.StatusInaccurate:
			s.Inaccurate++
		case model.StatusExpired:
			s.Expired++
		}
	}
	if graded := s.Accurate + s.Inaccurate; graded > 0 {
		s.AccuracyRate = float64(s.Accurate) / float64(graded) * 100
	}
	return s
}
