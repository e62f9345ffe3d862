package consensus

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	eligible := []string{"X", "Y", "Z"}
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"duplicate and foreign dropped, missing appended", "X, X, Q, Y", []string{"X", "Y", "Z"}},
		{"complete ranking kept", "Z,Y,X", []string{"Z", "Y", "X"}},
		{"newline separated", "Y\nZ\r\nX", []string{"Y", "Z", "X"}},
		{"empty response", "", []string{"X", "Y", "Z"}},
		{"pure noise", "I think they were all great!", []string{"X", "Y", "Z"}},
		{"partial", "  Z  ", []string{"Z", "X", "Y"}},
		{"case sensitive exact match", "x, z, Y", []string{"Y", "X", "Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.raw, eligible))
		})
	}
}

func TestSanitizeNamesWithSpaces(t *testing.T) {
	eligible := []string{"Gemma Dreamer", "Qwen3 Engineer", "Bias Auditor"}
	got := Sanitize("Qwen3 Engineer,\n Bias Auditor, Gemma", eligible)
	assert.Equal(t, []string{"Qwen3 Engineer", "Bias Auditor", "Gemma Dreamer"}, got)
}

func TestSanitizeAlwaysPermutation(t *testing.T) {
	eligible := []string{"A", "B", "C", "D"}
	inputs := []string{"", "D", "A,A,A", "E,F,G", "B\nC\nD\nA", ",,,", "C, B, nope, C, A"}
	want := append([]string(nil), eligible...)
	sort.Strings(want)

	for _, raw := range inputs {
		got := Sanitize(raw, eligible)
		sorted := append([]string(nil), got...)
		sort.Strings(sorted)
		assert.Equal(t, want, sorted, "input %q", raw)
	}
}

func TestSanitizeNoEligible(t *testing.T) {
	assert.Empty(t, Sanitize("A, B", nil))
}
