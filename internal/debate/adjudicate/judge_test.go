package adjudicate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
)

type mockLLM struct {
	response string
	err      error
	model    string
	messages []llm.Message
	streamed bool
}

func (m *mockLLM) Complete(_ context.Context, model string, msgs []llm.Message, _ llm.Params) (string, error) {
	m.model = model
	m.messages = msgs
	return m.response, m.err
}

func (m *mockLLM) Stream(ctx context.Context, model string, msgs []llm.Message, p llm.Params, onChunk func(string)) (string, error) {
	m.streamed = true
	out, err := m.Complete(ctx, model, msgs, p)
	if err == nil {
		onChunk(out)
	}
	return out, err
}

func sampleState() *debate.State {
	return &debate.State{
		Config: debate.Config{Question: "Tabs or spaces?"},
		Rounds: []debate.RoundResult{
			{
				Round: 0,
				Arguments: []debate.Argument{
					{Author: "Alice", Content: "Tabs are accessible"},
					{Author: "Bob", Content: "Spaces render the same everywhere"},
					{Author: "Carol", Content: "Use a formatter"},
				},
				Votes: []debate.Vote{
					{Voter: "Alice", Ranking: []string{"Alice", "Carol", "Bob"}},
					{Voter: "Bob", Ranking: []string{"Carol", "Bob", "Alice"}},
					{Voter: "Carol", Ranking: []string{"Carol", "Alice", "Bob"}},
				},
				Candidate:       "Carol",
				LeadingFraction: 2.0 / 3,
				Eliminated:      "Bob",
			},
			{
				Round: 1,
				Arguments: []debate.Argument{
					{Author: "Alice", Content: "A formatter with tabs"},
					{Author: "Carol", Content: "Agreed"},
				},
				Votes: []debate.Vote{
					{Voter: "Alice", Ranking: []string{"Carol", "Alice"}},
					{Voter: "Carol", Ranking: []string{"Carol", "Alice"}},
				},
				ConsensusReached: true,
				Candidate:        "Carol",
				LeadingFraction:  1,
			},
		},
	}
}

func TestTranscriptIncludesEveryRound(t *testing.T) {
	got := Transcript(sampleState())

	for _, want := range []string{
		"Round 1:",
		"- Bob: Spaces render the same everywhere",
		"- Bob: Carol > Bob > Alice",
		"No consensus; Carol led with 67%",
		"Eliminated: Bob",
		"Round 2:",
		"Consensus reached on Carol (100% first-place votes)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}
}

func TestTranscriptEmptyState(t *testing.T) {
	if got := Transcript(&debate.State{}); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}

func TestJudgeStreamsJudgment(t *testing.T) {
	m := &mockLLM{response: "  Use a formatter.  "}
	j := NewJudge(m, "judge-model")

	var chunks []string
	got, err := j.Adjudicate(context.Background(), sampleState(), func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Use a formatter." {
		t.Errorf("expected trimmed judgment, got %q", got)
	}
	if !m.streamed || len(chunks) != 1 {
		t.Errorf("expected streamed output, streamed=%v chunks=%v", m.streamed, chunks)
	}
	if m.model != "judge-model" {
		t.Errorf("expected judge-model, got %q", m.model)
	}
	if !strings.Contains(m.messages[1].Content, "Question: Tabs or spaces?") {
		t.Errorf("prompt missing question:\n%s", m.messages[1].Content)
	}
}

func TestJudgeWithoutCallbackUsesComplete(t *testing.T) {
	m := &mockLLM{response: "verdict"}
	if _, err := NewJudge(m, "j").Adjudicate(context.Background(), sampleState(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.streamed {
		t.Error("expected Complete when no callback is given")
	}
}

func TestJudgeErrors(t *testing.T) {
	_, err := NewJudge(&mockLLM{err: errors.New("boom")}, "j").Adjudicate(context.Background(), sampleState(), nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped llm error, got %v", err)
	}

	_, err = NewJudge(&mockLLM{response: "   "}, "j").Adjudicate(context.Background(), sampleState(), nil)
	if !errors.Is(err, ErrEmptyJudgment) {
		t.Errorf("expected ErrEmptyJudgment, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewJudge(&mockLLM{response: "x"}, "j").Adjudicate(ctx, sampleState(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
