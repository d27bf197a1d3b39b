package evaluator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func newFakeOracle(prices map[string]float64) *fakeOracle {
	return &fakeOracle{prices: prices, calls: map[string]int{}}
}

func (o *fakeOracle) Quote(_ context.Context, symbol string) (model.Quote, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[symbol]++
	p, ok := o.prices[symbol]
	if !ok {
		return model.Quote{}, false
	}
	return model.Quote{Symbol: symbol, Price: p}, true
}

// recordingStore counts UpdateStatus calls and can fail them per id.
type recordingStore struct {
	store.Store
	mu      sync.Mutex
	updates map[string]int
	failIDs map[string]bool
	listErr error
}

func newRecordingStore(t *testing.T, recs ...model.Recommendation) *recordingStore {
	t.Helper()
	mem, err := store.NewMemoryStore("")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	for i := range recs {
		if err := mem.Insert(context.Background(), &recs[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return &recordingStore{Store: mem, updates: map[string]int{}, failIDs: map[string]bool{}}
}

func (s *recordingStore) ListByStatus(ctx context.Context, status model.Status) ([]model.Recommendation, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListByStatus(ctx, status)
}

func (s *recordingStore) UpdateStatus(ctx context.Context, id string, status model.Status, at time.Time) error {
	s.mu.Lock()
	s.updates[id]++
	fail := s.failIDs[id]
	s.mu.Unlock()
	if fail {
		return &store.PersistenceError{Op: "update", Err: errors.New("disk full")}
	}
	return s.Store.UpdateStatus(ctx, id, status, at)
}

func pendingRec(id, symbol string, action model.Action, age time.Duration, entry, target, stop float64) model.Recommendation {
	r := rec(action, age, entry, target, stop)
	r.ID = id
	r.Symbol = symbol
	r.Reasoning = []string{"a", "b", "c"}
	return r
}

func newTestEvaluator(st store.Store, o PriceOracle) *Evaluator {
	return New(st, o, WithThrottle(0), WithClock(func() time.Time { return now }))
}

func TestEvaluateAllPending_Transitions(t *testing.T) {
	day := 24 * time.Hour
	st := newRecordingStore(t,
		pendingRec("win", "BTC", model.ActionBuy, day, 100, 110, 95),
		pendingRec("lose", "ETH", model.ActionSell, day, 100, 90, 105),
		pendingRec("wait", "SOL", model.ActionBuy, day, 100, 110, 95),
		pendingRec("old", "ADA", model.ActionBuy, 31*day, 100, 110, 95),
	)
	o := newFakeOracle(map[string]float64{"BTC": 115, "ETH": 106, "SOL": 100, "ADA": 100})
	e := newTestEvaluator(st, o)

	sum, err := e.EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Considered != 4 || sum.Accurate != 1 || sum.Inaccurate != 1 || sum.Expired != 1 || sum.StillPending != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.Transitioned() != 3 || len(sum.Transitions) != 3 {
		t.Errorf("expected 3 transitions, got %d", len(sum.Transitions))
	}

	for id, want := range map[string]int{"win": 1, "lose": 1, "old": 1, "wait": 0} {
		if got := st.updates[id]; got != want {
			t.Errorf("%s: expected %d writes, got %d", id, want, got)
		}
	}
	if o.calls["ADA"] != 0 {
		t.Errorf("expired record should not hit the oracle, got %d calls", o.calls["ADA"])
	}

	ctx := context.Background()
	for id, want := range map[string]model.Status{
		"win": model.StatusAccurate, "lose": model.StatusInaccurate,
		"old": model.StatusExpired, "wait": model.StatusPending,
	} {
		got, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.Status != want {
			t.Errorf("%s: expected %s, got %s", id, want, got.Status)
		}
		if want != model.StatusPending && (got.EvaluatedAt == nil || !got.EvaluatedAt.Equal(now)) {
			t.Errorf("%s: expected evaluation timestamp %v, got %v", id, now, got.EvaluatedAt)
		}
		if want == model.StatusPending && got.EvaluatedAt != nil {
			t.Errorf("%s: pending record has evaluation timestamp", id)
		}
	}
}

func TestEvaluateAllPending_SecondPassIsIdempotent(t *testing.T) {
	st := newRecordingStore(t,
		pendingRec("win", "BTC", model.ActionBuy, time.Hour, 100, 110, 95),
		pendingRec("wait", "SOL", model.ActionBuy, time.Hour, 100, 110, 95),
	)
	e := newTestEvaluator(st, newFakeOracle(map[string]float64{"BTC": 120, "SOL": 100}))

	if _, err := e.EvaluateAllPending(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	sum, err := e.EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if sum.Considered != 1 || sum.Transitioned() != 0 {
		t.Errorf("expected only the pending record reconsidered, got %+v", sum)
	}
	if st.updates["win"] != 1 || st.updates["wait"] != 0 {
		t.Errorf("unexpected writes %v", st.updates)
	}
}

func TestEvaluateAllPending_NoDataLeavesPending(t *testing.T) {
	st := newRecordingStore(t, pendingRec("r1", "XYZ", model.ActionBuy, time.Hour, 100, 110, 95))
	e := newTestEvaluator(st, newFakeOracle(map[string]float64{}))

	sum, err := e.EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.SkippedNoData != 1 {
		t.Errorf("expected 1 skipped, got %+v", sum)
	}
	if st.updates["r1"] != 0 {
		t.Errorf("expected no store write, got %d", st.updates["r1"])
	}
	got, _ := st.Get(context.Background(), "r1")
	if got.Status != model.StatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
}

func TestEvaluateAllPending_ExpiryIgnoresOracle(t *testing.T) {
	st := newRecordingStore(t, pendingRec("r1", "XYZ", model.ActionBuy, 31*24*time.Hour, 100, 110, 95))
	sum, err := newTestEvaluator(st, newFakeOracle(map[string]float64{})).EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Expired != 1 || st.updates["r1"] != 1 {
		t.Errorf("expected expiry without price data, got %+v", sum)
	}
}

func TestEvaluateAllPending_WriteFailureContinues(t *testing.T) {
	st := newRecordingStore(t,
		pendingRec("a", "BTC", model.ActionBuy, time.Hour, 100, 110, 95),
		pendingRec("b", "ETH", model.ActionBuy, 2*time.Hour, 100, 110, 95),
	)
	st.failIDs["b"] = true // b is older, so it is evaluated first
	e := New(st, newFakeOracle(map[string]float64{"BTC": 120, "ETH": 120}),
		WithThrottle(0), WithClock(func() time.Time { return now }), WithMetrics(metrics.New()))

	sum, err := e.EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.WriteFailures != 1 || sum.Accurate != 1 {
		t.Errorf("expected one failure and one success, got %+v", sum)
	}
	got, _ := st.Get(context.Background(), "b")
	if got.Status != model.StatusPending {
		t.Errorf("failed write should leave record pending, got %s", got.Status)
	}
	got, _ = st.Get(context.Background(), "a")
	if got.Status != model.StatusAccurate {
		t.Errorf("expected a accurate, got %s", got.Status)
	}
}

func TestEvaluateAllPending_ListFailure(t *testing.T) {
	st := newRecordingStore(t)
	st.listErr = &store.PersistenceError{Op: "list_by_status", Err: errors.New("locked")}
	_, err := newTestEvaluator(st, newFakeOracle(nil)).EvaluateAllPending(context.Background())
	var pe *store.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestEvaluateAllPending_ConcurrentWinnerIsKept(t *testing.T) {
	st := newRecordingStore(t, pendingRec("r1", "BTC", model.ActionBuy, time.Hour, 100, 110, 95))
	// Another pass already settled the record after this one listed it.
	if err := st.Store.UpdateStatus(context.Background(), "r1", model.StatusInaccurate, now); err != nil {
		t.Fatalf("pre-update: %v", err)
	}
	stale := &staleListStore{recordingStore: st, snapshot: []model.Recommendation{
		pendingRec("r1", "BTC", model.ActionBuy, time.Hour, 100, 110, 95),
	}}

	sum, err := newTestEvaluator(stale, newFakeOracle(map[string]float64{"BTC": 200})).EvaluateAllPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Accurate != 0 || sum.WriteFailures != 0 {
		t.Errorf("expected no transition or failure, got %+v", sum)
	}
	got, _ := st.Get(context.Background(), "r1")
	if got.Status != model.StatusInaccurate {
		t.Errorf("terminal status overwritten: %s", got.Status)
	}
}

type staleListStore struct {
	*recordingStore
	snapshot []model.Recommendation
}

func (s *staleListStore) ListByStatus(context.Context, model.Status) ([]model.Recommendation, error) {
	return s.snapshot, nil
}

func TestEvaluateAllPending_Throttles(t *testing.T) {
	st := newRecordingStore(t,
		pendingRec("a", "BTC", model.ActionBuy, time.Hour, 100, 110, 95),
		pendingRec("b", "BTC", model.ActionBuy, 2*time.Hour, 100, 110, 95),
		pendingRec("c", "BTC", model.ActionBuy, 3*time.Hour, 100, 110, 95),
	)
	e := New(st, newFakeOracle(map[string]float64{"BTC": 100}),
		WithThrottle(40*time.Millisecond), WithClock(func() time.Time { return now }))

	start := time.Now()
	if _, err := e.EvaluateAllPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("expected two pauses between three lookups, took %v", elapsed)
	}
}

func TestEvaluateAllPending_CancelledContext(t *testing.T) {
	st := newRecordingStore(t,
		pendingRec("a", "BTC", model.ActionBuy, time.Hour, 100, 110, 95),
		pendingRec("b", "BTC", model.ActionBuy, 2*time.Hour, 100, 110, 95),
	)
	e := New(st, newFakeOracle(map[string]float64{"BTC": 100}),
		WithThrottle(time.Hour), WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sum, err := e.EvaluateAllPending(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if sum.StillPending != 1 {
		t.Errorf("expected first record evaluated before cancellation, got %+v", sum)
	}
}

func TestStats(t *testing.T) {
	st, _ := store.NewMemoryStore("")
	agg := NewStatsAggregator(st)
	ctx := context.Background()

	s, err := agg.GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 0 || s.AccuracyRate != 0 {
		t.Errorf("expected empty stats with zero rate, got %+v", s)
	}

	for _, r := range []model.Recommendation{
		pendingRec("a", "BTC", model.ActionBuy, time.Hour, 1, 2, 0.5),
		pendingRec("b", "BTC", model.ActionBuy, time.Hour, 1, 2, 0.5),
		pendingRec("c", "BTC", model.ActionBuy, time.Hour, 1, 2, 0.5),
		pendingRec("d", "BTC", model.ActionBuy, time.Hour, 1, 2, 0.5),
		pendingRec("e", "BTC", model.ActionBuy, time.Hour, 1, 2, 0.5),
	} {
		r := r
		if err := st.Insert(ctx, &r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	st.UpdateStatus(ctx, "a", model.StatusAccurate, now)
	st.UpdateStatus(ctx, "b", model.StatusAccurate, now)
	st.UpdateStatus(ctx, "c", model.StatusAccurate, now)
	st.UpdateStatus(ctx, "d", model.StatusInaccurate, now)

	s, _ = agg.GetStats(ctx)
	want := model.EvaluationStats{Total: 5, Pending: 1, Accurate: 3, Inaccurate: 1, Expired: 0, AccuracyRate: 75}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestComputeStats_OnlyExpired(t *testing.T) {
	s := ComputeStats([]model.Recommendation{{Status: model.StatusExpired}, {Status: model.StatusExpired}})
	if s.Expired != 2 || s.AccuracyRate != 0 {
		t.Errorf("expected zero rate with only expiries, got %+v", s)
	}
}
