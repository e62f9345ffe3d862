package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lorenzotomasdiez/council/internal/analytics"
	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func TestPersonasTable(t *testing.T) {
	var buf bytes.Buffer
	Personas(&buf, []debate.Agent{{Name: "Skeptic", Model: "gemma3:1b", Perspective: "Doubt everything", Traits: "critical"}})
	out := buf.String()
	for _, want := range []string{"Skeptic", "gemma3:1b", "Doubt everything", "critical"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestModelsTable(t *testing.T) {
	var buf bytes.Buffer
	Models(&buf, []llm.Model{{ID: "qwen2.5:3b", OwnedBy: "library"}})
	if !strings.Contains(buf.String(), "qwen2.5:3b") {
		t.Errorf("models table = %q", buf.String())
	}
}

func TestHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, nil)
	if !strings.Contains(buf.String(), "No debates") {
		t.Errorf("empty history = %q", buf.String())
	}

	buf.Reset()
	done := time.Date(2026, 5, 1, 12, 5, 0, 0, time.UTC)
	History(&buf, []store.Summary{
		{ID: "0123456789abcdef", Question: "AI Regulation?", Rounds: 2, Consensus: true, Candidate: "Alice",
			StartedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), FinishedAt: &done},
		{ID: "fedcba", Question: "Open borders?", Rounds: 1, StartedAt: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)},
	})
	out := buf.String()
	for _, want := range []string{"01234567", "2026-05-01 12:00", "consensus: Alice", "no consensus (unfinished)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Error("ids should be shortened")
	}
}

func TestAnalysisTable(t *testing.T) {
	var buf bytes.Buffer
	Analysis(&buf, analytics.Analyze(sampleState()))
	out := buf.String()
	for _, want := range []string{"AI Regulation?", "Alice", "round 1", "33% -> 100%", "Consensus reached:"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestAggregatesTable(t *testing.T) {
	var buf bytes.Buffer
	Aggregates(&buf, analytics.AggregateAll([]analytics.Report{analytics.Analyze(sampleState())}))
	if !strings.Contains(buf.String(), "Alice") || !strings.Contains(buf.String(), "Carol") {
		t.Errorf("aggregates = %q", buf.String())
	}
}

func TestSnippets(t *testing.T) {
	var buf bytes.Buffer
	Snippets(&buf, nil)
	if !strings.Contains(buf.String(), "No relevant memory") {
		t.Errorf("empty snippets = %q", buf.String())
	}
	buf.Reset()
	Snippets(&buf, []debate.Snippet{{Score: 0.91, Text: "[Alice] (2026-05-01): carbon tax", Source: "debate:d1"}})
	out := buf.String()
	if !strings.Contains(out, "(0.91)") || !strings.Contains(out, "carbon tax") {
		t.Errorf("snippets = %q", out)
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	if got := clip("a much longer sentence", 10); got != "a much ..." {
		t.Errorf("clip = %q", got)
	}
}
