package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SignalSentinel/internal/model"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func testSnapshot() *model.IndicatorSnapshot {
	return &model.IndicatorSnapshot{
		RSI: 55, EMA20: 101, EMA50: 99, CurrentPrice: 102, Support: 95, Resistance: 110,
		Bollinger: model.Bollinger{Upper: 108, Middle: 100, Lower: 92},
	}
}

func TestOpenAIGenerator_RetriesServerErrors(t *testing.T) {
	var calls int32
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("```json\n{\"action\":\"buy\",\"confidence\":70,\"target_price\":110,\"stop_loss\":96,\"reasoning\":[\"a\",\"b\",\"c\"]}\n```")))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "", srv.URL+"/v1", srv.Client())
	g.RetryInterval = time.Millisecond

	cand, err := g.Generate(context.Background(), Input{Symbol: "BTC", Interval: "1h", Snapshot: testSnapshot()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if cand.Action != "buy" || cand.TargetPrice != 110 || len(cand.Reasoning) != 3 {
		t.Errorf("unexpected candidate %+v", cand)
	}
	if gotBody["model"] != DefaultOpenAIModel {
		t.Errorf("expected default model, got %v", gotBody["model"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", gotBody["response_format"])
	}
}

func TestOpenAIGenerator_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("bad", "gpt-4o", srv.URL+"/v1", srv.Client())
	g.RetryInterval = time.Millisecond
	if _, err := g.Generate(context.Background(), Input{Symbol: "BTC", Snapshot: testSnapshot()}); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestOpenAIGenerator_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("not json")))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("k", "", srv.URL+"/v1", srv.Client())
	_, err := g.Generate(context.Background(), Input{Symbol: "BTC", Snapshot: testSnapshot()})
	if !errors.Is(err, ErrInvalidCandidate) {
		t.Errorf("expected ErrInvalidCandidate, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(Input{Symbol: "SOL", Interval: "4h", Snapshot: testSnapshot(),
		Quote: &model.Quote{Source: "coingecko", Price: 102.5, MarketCap: 5e10}})
	for _, want := range []string{"Symbol: SOL", "Interval: 4h", "RSI(14): 55.00", "Live quote (coingecko)", "market cap"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}
