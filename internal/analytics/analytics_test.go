package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

func sampleState() *debate.State {
	return &debate.State{
		ID:     "d1",
		Config: debate.Config{Question: "q"},
		Agents: []debate.Agent{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Rounds: []debate.RoundResult{
			{
				Round: 0,
				Arguments: []debate.Argument{
					{Author: "A", Content: "aaaa"},
					{Author: "B", Content: "bb"},
					{Author: "C", Content: "cccccc"},
				},
				Votes: []debate.Vote{
					{Voter: "A", Ranking: []string{"A", "B", "C"}},
					{Voter: "B", Ranking: []string{"B", "A", "C"}},
					{Voter: "C", Ranking: []string{"A", "C", "B"}},
				},
				Candidate:       "A",
				LeadingFraction: 2.0 / 3,
				Eliminated:      "C",
				Focus:           []debate.FocusScore{{Author: "A", Score: 0.9}, {Author: "B", Score: 0.5}},
			},
			{
				Round: 1,
				Arguments: []debate.Argument{
					{Author: "A", Content: "aa"},
					{Author: "B", Content: "bbbb"},
				},
				Votes: []debate.Vote{
					{Voter: "A", Ranking: []string{"A", "B"}},
					{Voter: "B", Ranking: []string{"A", "B"}},
				},
				ConsensusReached: true,
				Candidate:        "A",
				LeadingFraction:  1,
				Focus:            []debate.FocusScore{{Author: "A", Score: 0.7}},
			},
		},
	}
}

func TestAnalyze(t *testing.T) {
	r := Analyze(sampleState())

	assert.Equal(t, 2, r.Rounds)
	assert.True(t, r.Consensus)
	assert.Equal(t, "A", r.Winner)
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1}, r.Progression, 1e-9)

	require.Len(t, r.Agents, 3)
	a, b, c := r.Agents[0], r.Agents[1], r.Agents[2]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, 2, a.Arguments)
	assert.Equal(t, 4, a.FirstPlaceVotes)
	assert.Equal(t, 1.0, a.WinRate)
	assert.Equal(t, 0.0, b.WinRate)
	assert.InDelta(t, 3.0, a.AvgArgumentLength, 1e-9)
	assert.InDelta(t, 0.8, a.AvgFocus, 1e-9)
	// ranks: 1,2,1,1,1
	assert.InDelta(t, 6.0/5, a.MeanRank, 1e-9)
	assert.Equal(t, -1, a.EliminatedRound)

	assert.Equal(t, 1, b.FirstPlaceVotes)
	assert.Equal(t, 0, c.FirstPlaceVotes)
	assert.Equal(t, 0, c.EliminatedRound)
	assert.Equal(t, 1, c.Arguments)

	// A ranked A first twice (3 + 2) and B second twice (2 + 1)
	assert.Equal(t, 5, r.Matrix["A"]["A"])
	assert.Equal(t, 3, r.Matrix["A"]["B"])
	assert.Equal(t, 1, r.Matrix["A"]["C"])
}

func TestAnalyzeEmptyDebate(t *testing.T) {
	r := Analyze(&debate.State{Agents: []debate.Agent{{Name: "A"}}})
	assert.False(t, r.Consensus)
	assert.Empty(t, r.Winner)
	assert.Empty(t, r.Progression)
	require.Len(t, r.Agents, 1)
	assert.Zero(t, r.Agents[0].MeanRank)
}

func TestAnalyzeZeroVoteRound(t *testing.T) {
	s := &debate.State{Rounds: []debate.RoundResult{{Round: 0}}}
	assert.Equal(t, []float64{0}, Analyze(s).Progression)
}

func TestAggregateAll(t *testing.T) {
	first := Analyze(sampleState())
	second := sampleState()
	second.Rounds = second.Rounds[:1]
	split := Analyze(second)

	agg := AggregateAll([]Report{first, split})
	require.Len(t, agg, 3)
	assert.Equal(t, "A", agg[0].Name)
	assert.Equal(t, 1, agg[0].Wins)
	assert.Equal(t, 2, agg[0].Debates)
	assert.Equal(t, 6, agg[0].FirstPlace)
	assert.InDelta(t, 1.0, agg[0].AvgWinRate, 1e-9)
	assert.Equal(t, "B", agg[1].Name)
	assert.Equal(t, "C", agg[2].Name)
}
