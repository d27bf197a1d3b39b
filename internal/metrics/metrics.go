package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signalsentinel"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal     *prometheus.CounterVec // labels: outcome
	OracleAttempts       *prometheus.CounterVec // labels: source, result
	PassDuration         prometheus.Histogram
	CandleFetchTotal     *prometheus.CounterVec // labels: result
	RecommendationsTotal *prometheus.CounterVec // labels: action
	StoreErrorsTotal     *prometheus.CounterVec // labels: op
}

// New creates the metrics on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Recommendations considered by the evaluator, by outcome",
		}, []string{"outcome"}),
		OracleAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_attempts_total",
			Help:      "Price oracle source attempts, by source and result",
		}, []string{"source", "result"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_pass_seconds",
			Help:      "Duration of a full evaluation pass",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CandleFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candle_fetch_total",
			Help:      "Candle ingest requests, by result",
		}, []string{"result"}),
		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations generated and stored, by action",
		}, []string{"action"}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Recommendation store failures, by operation",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EvaluationsTotal,
		m.OracleAttempts,
		m.PassDuration,
		m.CandleFetchTotal,
		m.RecommendationsTotal,
		m.StoreErrorsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveOracleAttempt(source, result string) {
	if m == nil {
		return
	}
	m.OracleAttempts.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ObservePass(d time.Duration) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveCandleFetch(result string) {
	if m == nil {
		return
	}
	m.CandleFetchTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRecommendation(action string) {
	if m == nil {
		return
	}
	m.RecommendationsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}
