package consensus

import (
	"errors"
	"fmt"
	"strings"
)

// Named thresholds.
const (
	Majority      = "majority"
	Supermajority = "supermajority"
	Unanimity     = "unanimity"
)

// ErrUnknownPreset is returned by Preset for names other than the three above.
var ErrUnknownPreset = errors.New("unknown consensus preset")

// Preset maps a named consensus rule to its first-place fraction.
func Preset(name string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Majority:
		return 0.5, nil
	case Supermajority:
		return 2.0 / 3.0, nil
	case Unanimity:
		return 1.0, nil
	default:
		return 0, fmt.Errorf("consensus: %w: %q", ErrUnknownPreset, name)
	}
}

// Outcome is the result of tallying a round's votes.
type Outcome struct {
	Reached bool
	// Candidate is the front-runner, reported even when the threshold is not met.
	// Empty when there are no votes.
	Candidate  string
	Count      int
	Total      int
	Fraction   float64
	FirstPlace map[string]int
}

// Evaluate tallies first-place votes and applies the threshold.
//
// Ties on first-place count go to the candidate earliest in candidates (roster order).
// First choices outside candidates are ranked after them in first-seen order.
func Evaluate(rankings [][]string, candidates []string, threshold float64) Outcome {
	out := Outcome{
		Total:      len(rankings),
		FirstPlace: make(map[string]int),
	}
	if out.Total == 0 {
		return out
	}

	order := append([]string(nil), candidates...)
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c] = true
	}
	for _, r := range rankings {
		if len(r) == 0 {
			continue
		}
		first := r[0]
		out.FirstPlace[first]++
		if !known[first] {
			known[first] = true
			order = append(order, first)
		}
	}

	for _, c := range order {
		if n := out.FirstPlace[c]; n > out.Count {
			out.Candidate, out.Count = c, n
		}
	}
	out.Fraction = float64(out.Count) / float64(out.Total)
	out.Reached = out.Candidate != "" && out.Fraction >= threshold
	return out
}
