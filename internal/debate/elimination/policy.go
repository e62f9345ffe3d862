// Package elimination picks the worst-ranked agent of a round for removal.
package elimination

// DefaultMinRoster is the smallest roster from which an agent may be removed.
const DefaultMinRoster = 3

// Scores sums each roster member's 1-based rank position over all rankings. Lower is
// better. Names outside roster are ignored.
func Scores(rankings [][]string, roster []string) map[string]int {
	scores := make(map[string]int, len(roster))
	for _, name := range roster {
		scores[name] = 0
	}
	for _, r := range rankings {
		for pos, name := range r {
			if _, ok := scores[name]; ok {
				scores[name] += pos + 1
			}
		}
	}
	return scores
}

// Policy removes the worst performer when the roster is large enough.
type Policy struct {
	MinRoster int
}

// New returns a Policy with the default roster floor.
func New() *Policy {
	return &Policy{MinRoster: DefaultMinRoster}
}

// Select returns the roster member with the highest aggregate rank score. Ties go to the
// member earliest in roster order. ok is false when the roster is below the floor.
func (p *Policy) Select(rankings [][]string, roster []string) (name string, ok bool) {
	floor := p.MinRoster
	if floor < DefaultMinRoster {
		floor = DefaultMinRoster
	}
	if len(roster) < floor {
		return "", false
	}
	scores := Scores(rankings, roster)
	worst := -1
	for _, n := range roster {
		if s := scores[n]; s > worst {
			name, worst = n, s
		}
	}
	return name, true
}
