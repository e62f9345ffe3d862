package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
)

// numberingLLM answers every argument prompt with a uniquely numbered carbon tax
// argument and keeps the prompts it was given, per model.
type numberingLLM struct {
	mu      sync.Mutex
	n       int
	prompts map[string][]string
}

func (m *numberingLLM) Complete(_ context.Context, model string, msgs []llm.Message, _ llm.Params) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.Contains(msgs[0].Content, "Rank the arguments") {
		return "A, B", nil
	}
	m.n++
	m.prompts[model] = append(m.prompts[model], msgs[len(msgs)-1].Content)
	return fmt.Sprintf("carbon tax argument #%d", m.n), nil
}

func (m *numberingLLM) Stream(ctx context.Context, model string, msgs []llm.Message, p llm.Params, onChunk func(string)) (string, error) {
	out, err := m.Complete(ctx, model, msgs, p)
	if err == nil {
		onChunk(out)
	}
	return out, err
}

type fixedJudge struct{}

func (fixedJudge) Adjudicate(context.Context, *debate.State, func(string)) (string, error) {
	return "A wins", nil
}

func TestProviderSkipsRunningDebate(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewBadgerStore(openDB(t)), &keywordEmbedder{}, Options{Limit: 10})
	require.NoError(t, p.Record(ctx, "earlier", "Carbon tax?", debate.Argument{Author: "Old", Content: "carbon tax from last year", Round: 0}))

	l := &numberingLLM{prompts: map[string][]string{}}
	cfg := debate.Config{Question: "Should we levy a carbon tax?", MinRounds: 3, MaxRounds: 3, ConsensusThreshold: 0.5}
	agents := []debate.Agent{
		{Name: "A", Model: "m-A", ReasoningDepth: 3, Persistence: 0.5, TruthSeeking: 0.8},
		{Name: "B", Model: "m-B", ReasoningDepth: 3, Persistence: 0.5, TruthSeeking: 0.8},
	}
	e, err := debate.NewEngine(cfg, agents, l, fixedJudge{})
	require.NoError(t, err)
	e.SetContextProvider(p)
	e.SetMemoryRecorder(p)

	state, err := e.Run(ctx)
	require.NoError(t, err)
	require.Len(t, state.Rounds, 3)

	prompts := l.prompts["m-A"]
	require.Len(t, prompts, 3)
	for round, prompt := range prompts {
		_, memory, ok := strings.Cut(prompt, "Relevant context from memory:")
		require.True(t, ok, "round %d: expected memory context", round)
		assert.Contains(t, memory, "[Old]", "round %d: other debates stay retrievable", round)
		assert.NotContains(t, memory, "argument #", "round %d: memory leaked this debate's arguments", round)
	}

	// Round 2 sees round 1 once and round 0 not at all.
	last := prompts[2]
	for _, a := range state.Rounds[0].Arguments {
		assert.NotContains(t, last, a.Content)
	}
	for _, a := range state.Rounds[1].Arguments {
		assert.Equal(t, 1, strings.Count(last, a.Content), "round 1 argument %q", a.Content)
	}
}
