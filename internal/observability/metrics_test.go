package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reg
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RoundCompleted(true)
	m.AgentEliminated()
	m.ObserveCall("collect_votes", time.Second, nil)
	m.DebateFinished(3, false)
}

func TestRoundsAndEliminations(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RoundCompleted(false)
	m.RoundCompleted(false)
	m.RoundCompleted(true)
	m.AgentEliminated()

	if got := testutil.ToFloat64(m.Rounds.WithLabelValues("false")); got != 2 {
		t.Errorf("rounds without consensus = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Rounds.WithLabelValues("true")); got != 1 {
		t.Errorf("rounds with consensus = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Eliminations); got != 1 {
		t.Errorf("eliminations = %v, want 1", got)
	}
}

func TestObserveCall(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.ObserveCall("collect_arguments", 2*time.Second, nil)
	m.ObserveCall("collect_arguments", time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.LLMCalls.WithLabelValues("collect_arguments", "success")); got != 1 {
		t.Errorf("success calls = %v", got)
	}
	if got := testutil.ToFloat64(m.LLMCalls.WithLabelValues("collect_arguments", "error")); got != 1 {
		t.Errorf("error calls = %v", got)
	}
	if n := testutil.CollectAndCount(m.LLMLatency); n != 1 {
		t.Errorf("latency series = %d, want 1", n)
	}
}

func TestDebateFinished(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.DebateFinished(4, true)

	expected := `
# HELP council_debates_total Finished debates by whether the last round reached consensus.
# TYPE council_debates_total counter
council_debates_total{consensus="true"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "council_debates_total"); err != nil {
		t.Error(err)
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestServe(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.AgentEliminated()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := Serve(ctx, "127.0.0.1:0", reg)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "council_eliminations_total 1") {
		t.Errorf("metrics body missing eliminations:\n%s", body)
	}
}

func TestInitTracingWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing("council-test", &buf)
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "debate.run")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "debate.run") {
		t.Errorf("span not exported:\n%s", buf.String())
	}
}
