package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct{ err error }

func (f fakeAnalyzer) Analyze(_ context.Context, symbol, interval string) (*advisor.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &advisor.Result{
		Recommendation: model.Recommendation{ID: "new", Symbol: symbol, Action: model.ActionHold, Status: model.StatusPending, Timeframe: interval},
		Snapshot:       &model.IndicatorSnapshot{CurrentPrice: 100},
	}, nil
}

type fakeEvaluator struct {
	sum evaluator.Summary
	err error
}

func (f fakeEvaluator) EvaluateAllPending(context.Context) (evaluator.Summary, error) {
	return f.sum, f.err
}

type fakeQuotes map[string]model.Quote

func (f fakeQuotes) QuoteOrCached(_ context.Context, symbol string) (model.Quote, bool) {
	q, ok := f[symbol]
	return q, ok
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st, err := store.NewMemoryStore("")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []model.Status{model.StatusPending, model.StatusPending, model.StatusPending} {
		rec := &model.Recommendation{
			ID: fmt.Sprintf("rec-%d", i), Symbol: "BTC", Action: model.ActionBuy, Status: status,
			TargetPrice: 110, StopLoss: 90, EntryPrice: 100, Reasoning: []string{"r"}, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := st.UpdateStatus(context.Background(), "rec-0", model.StatusAccurate, base.Add(48*time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}
	return st
}

func newTestServer(t *testing.T, d Deps) *Server {
	t.Helper()
	if d.Store == nil {
		d.Store = seededStore(t)
	}
	if d.Stats == nil {
		d.Stats = evaluator.NewStatsAggregator(d.Store)
	}
	if d.Fetcher == nil {
		d.Fetcher = &collector.MockFetcher{Price: 200}
	}
	if d.Quotes == nil {
		d.Quotes = fakeQuotes{"BTC": {Symbol: "BTC", Price: 65000, Source: "binance:USDT"}}
	}
	if d.Advisor == nil {
		d.Advisor = fakeAnalyzer{}
	}
	if d.Evaluator == nil {
		d.Evaluator = fakeEvaluator{}
	}
	return NewServer(d)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Deps{Metrics: metrics.New()})
	if w := do(t, s, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("expected prometheus output, got %d", w.Code)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := do(t, s, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st model.EvaluationStats
	decode(t, w, &st)
	if st.Total != 3 || st.Pending != 2 || st.Accurate != 1 || st.AccuracyRate != 100 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestListRecommendations(t *testing.T) {
	s := newTestServer(t, Deps{})

	w := do(t, s, http.MethodGet, "/api/recommendations?status=pending&limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Recommendations []model.Recommendation `json:"recommendations"`
		Count           int                    `json:"count"`
	}
	decode(t, w, &body)
	if body.Count != 1 || body.Recommendations[0].ID != "rec-2" {
		t.Errorf("expected newest pending rec-2, got %+v", body)
	}

	for _, q := range []string{"?status=done", "?limit=0", "?limit=abc", "?limit=501"} {
		if w := do(t, s, http.MethodGet, "/api/recommendations"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetRecommendation(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := do(t, s, http.MethodGet, "/api/recommendations/rec-0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec model.Recommendation
	decode(t, w, &rec)
	if rec.Status != model.StatusAccurate || rec.EvaluatedAt == nil {
		t.Errorf("unexpected record %+v", rec)
	}
	if w := do(t, s, http.MethodGet, "/api/recommendations/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t, Deps{Evaluator: fakeEvaluator{sum: evaluator.Summary{Considered: 2, StillPending: 2}}})
	w := do(t, s, http.MethodPost, "/api/recommendations/evaluate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sum evaluator.Summary
	decode(t, w, &sum)
	if sum.Considered != 2 || sum.Transitions == nil {
		t.Errorf("unexpected summary %+v", sum)
	}

	s = newTestServer(t, Deps{Evaluator: fakeEvaluator{err: errors.New("db down")}})
	if w := do(t, s, http.MethodPost, "/api/recommendations/evaluate", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, Deps{DefaultInterval: "4h"})
	w := do(t, s, http.MethodPost, "/api/analyze", `{"symbol":"ethusdt"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var res advisor.Result
	decode(t, w, &res)
	if res.Recommendation.Symbol != "ETH" || res.Recommendation.Timeframe != "4h" {
		t.Errorf("unexpected result %+v", res.Recommendation)
	}

	if w := do(t, s, http.MethodPost, "/api/analyze", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without symbol, got %d", w.Code)
	}

	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("fetch: %w", collector.ErrUnsupportedInterval), http.StatusBadRequest},
		{fmt.Errorf("v: %w", advisor.ErrInvalidCandidate), http.StatusBadGateway},
		{&collector.TransportError{Source: "binance", Err: errors.New("timeout")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		s := newTestServer(t, Deps{Advisor: fakeAnalyzer{err: tt.err}})
		if w := do(t, s, http.MethodPost, "/api/analyze", `{"symbol":"BTC"}`); w.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, w.Code)
		}
	}
}

func TestIndicators(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := do(t, s, http.MethodGet, "/api/indicators/btc?interval=1h&limit=60", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Symbol   string                  `json:"symbol"`
		Candles  int                     `json:"candles"`
		Snapshot model.IndicatorSnapshot `json:"snapshot"`
	}
	decode(t, w, &body)
	if body.Symbol != "BTC" || body.Candles != 60 || body.Snapshot.CurrentPrice <= 0 {
		t.Errorf("unexpected body %+v", body)
	}

	empty := newTestServer(t, Deps{Fetcher: &collector.MockFetcher{Candles: []model.Candle{}}})
	if w := do(t, empty, http.MethodGet, "/api/indicators/BTC", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for no data, got %d", w.Code)
	}
}

func TestPrice(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := do(t, s, http.MethodGet, "/api/price/btc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var q model.Quote
	decode(t, w, &q)
	if q.Price != 65000 {
		t.Errorf("unexpected quote %+v", q)
	}
	if w := do(t, s, http.MethodGet, "/api/price/NOPE", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Deps{AllowOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected CORS header, got %q", got)
	}
}
