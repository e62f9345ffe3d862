// Package observability exposes Prometheus metrics and OpenTelemetry tracing
// for debates.
//
// A nil *Metrics is valid and records nothing, so the engine can run without
// a registry.
package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "council"

// Metrics holds the debate counters and histograms.
type Metrics struct {
	// Labels: consensus (true, false)
	Rounds       *prometheus.CounterVec
	Eliminations prometheus.Counter
	// Labels: phase, status (success, error)
	LLMCalls *prometheus.CounterVec
	// Labels: phase
	LLMLatency *prometheus.HistogramVec
	// Labels: consensus (true, false)
	Debates      *prometheus.CounterVec
	DebateRounds prometheus.Histogram
}

// NewMetrics registers the metrics on reg. Pass prometheus.NewRegistry() in
// tests to avoid collisions with the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed rounds by whether consensus was reached.",
		}, []string{"consensus"}),
		Eliminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Agents removed from the roster.",
		}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model calls by debate phase and status.",
		}, []string{"phase", "status"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model call latency by debate phase.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		Debates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debates_total",
			Help:      "Finished debates by whether the last round reached consensus.",
		}, []string{"consensus"}),
		DebateRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "debate_rounds",
			Help:      "Rounds run per finished debate.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Rounds, m.Eliminations,
		m.LLMCalls, m.LLMLatency, m.Debates, m.DebateRounds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("observability: register: %w", err)
		}
	}
	return m, nil
}

// RoundCompleted counts a finished round.
func (m *Metrics) RoundCompleted(consensus bool) {
	if m == nil {
		return
	}
	m.Rounds.WithLabelValues(strconv.FormatBool(consensus)).Inc()
}

// AgentEliminated counts a roster removal.
func (m *Metrics) AgentEliminated() {
	if m == nil {
		return
	}
	m.Eliminations.Inc()
}

// ObserveCall records one model call made during phase.
func (m *Metrics) ObserveCall(phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMCalls.WithLabelValues(phase, status).Inc()
	m.LLMLatency.WithLabelValues(phase).Observe(d.Seconds())
}

// DebateFinished records the round count and outcome of a debate.
func (m *Metrics) DebateFinished(rounds int, consensus bool) {
	if m == nil {
		return
	}
	m.Debates.WithLabelValues(strconv.FormatBool(consensus)).Inc()
	m.DebateRounds.Observe(float64(rounds))
}

// Serve exposes /metrics for g on addr until ctx is cancelled. It returns the
// bound address, which matters when addr uses port 0.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("observability: listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go srv.Serve(ln)
	return ln.Addr(), nil
}
