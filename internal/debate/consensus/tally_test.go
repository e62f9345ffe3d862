package consensus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeVoters = [][]string{
	{"X", "Y", "Z"},
	{"X", "Z", "Y"},
	{"Y", "X", "Z"},
}

func TestEvaluateMajority(t *testing.T) {
	out := Evaluate(threeVoters, []string{"X", "Y", "Z"}, 0.5)
	assert.True(t, out.Reached)
	assert.Equal(t, "X", out.Candidate)
	assert.Equal(t, map[string]int{"X": 2, "Y": 1}, out.FirstPlace)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 3, out.Total)
	assert.InDelta(t, 2.0/3.0, out.Fraction, 1e-9)
}

func TestEvaluateUnanimityStillReportsLeader(t *testing.T) {
	out := Evaluate(threeVoters, []string{"X", "Y", "Z"}, 1.0)
	assert.False(t, out.Reached)
	assert.Equal(t, "X", out.Candidate)
}

func TestEvaluateZeroVotes(t *testing.T) {
	out := Evaluate(nil, []string{"X", "Y"}, 0.5)
	assert.False(t, out.Reached)
	assert.Empty(t, out.Candidate)
	assert.Zero(t, out.Total)
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	votes := [][]string{{"A"}, {"A"}, {"B"}, {"C"}}
	assert.True(t, Evaluate(votes, []string{"A", "B", "C"}, 0.5).Reached, "2/4 meets 0.5")
	assert.False(t, Evaluate(votes, []string{"A", "B", "C"}, 0.51).Reached)
}

func TestEvaluateTieBreakFollowsCandidateOrder(t *testing.T) {
	votes := [][]string{{"B", "A"}, {"A", "B"}}
	assert.Equal(t, "A", Evaluate(votes, []string{"A", "B"}, 0.9).Candidate)
	assert.Equal(t, "B", Evaluate(votes, []string{"B", "A"}, 0.9).Candidate)

	// Deterministic across repeated calls regardless of map iteration order.
	for range 50 {
		assert.Equal(t, "A", Evaluate(votes, []string{"A", "B"}, 0.9).Candidate)
	}
}

func TestEvaluateUnknownFirstChoiceRankedAfterCandidates(t *testing.T) {
	votes := [][]string{{"Q"}, {"A"}}
	out := Evaluate(votes, []string{"A"}, 0.5)
	assert.Equal(t, "A", out.Candidate)
	assert.True(t, out.Reached)
}

func TestPreset(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"majority", 0.5},
		{"Supermajority", 2.0 / 3.0},
		{" unanimity ", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Preset(tt.name)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := Preset("plurality")
	assert.True(t, errors.Is(err, ErrUnknownPreset))
}
