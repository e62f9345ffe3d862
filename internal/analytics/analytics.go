// Package analytics derives per-agent statistics and voting patterns from finished debates.
package analytics

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

// AgentStats summarizes one agent's performance in a debate.
type AgentStats struct {
	Name              string  `json:"name"`
	Arguments         int     `json:"arguments"`
	FirstPlaceVotes   int     `json:"first_place_votes"`
	VotesReceived     int     `json:"votes_received"`
	MeanRank          float64 `json:"mean_rank"`
	// WinRate is the share of the agent's rounds in which it led the first-place tally.
	WinRate           float64 `json:"win_rate"`
	AvgArgumentLength float64 `json:"avg_argument_length"`
	AvgFocus          float64 `json:"avg_focus,omitempty"`
	EliminatedRound   int     `json:"eliminated_round"`
}

// Report is the analysis of a single debate.
type Report struct {
	DebateID  string       `json:"debate_id"`
	Question  string       `json:"question"`
	Rounds    int          `json:"rounds"`
	Consensus bool         `json:"consensus"`
	Winner    string       `json:"winner,omitempty"`
	Agents    []AgentStats `json:"agents"`
	// Progression is the leading first-place fraction per round.
	Progression []float64 `json:"progression"`
	// Matrix maps voter to candidate to a positional weight summed over rounds;
	// first place in an n-way ranking weighs n, last weighs 1.
	Matrix map[string]map[string]int `json:"matrix"`
}

type tally struct {
	args, argChars  int
	led             int
	firstPlace      int
	received        int
	rankSum         int
	focusSum        float64
	focusN          int
	eliminatedRound int
}

// Analyze computes the report for a debate. Agents are listed in roster order.
func Analyze(state *debate.State) Report {
	r := Report{
		DebateID: state.ID,
		Question: state.Config.Question,
		Rounds:   len(state.Rounds),
		Matrix:   make(map[string]map[string]int),
	}
	if last, ok := state.LastRound(); ok {
		r.Consensus = last.ConsensusReached
		r.Winner = last.Candidate
	}

	t := make(map[string]*tally, len(state.Agents))
	get := func(name string) *tally {
		if t[name] == nil {
			t[name] = &tally{eliminatedRound: -1}
		}
		return t[name]
	}
	for _, a := range state.Agents {
		get(a.Name)
	}

	for _, round := range state.Rounds {
		for _, a := range round.Arguments {
			at := get(a.Author)
			at.args++
			at.argChars += utf8.RuneCountInString(a.Content)
			if a.Author == round.Candidate {
				at.led++
			}
		}
		firsts := make(map[string]int)
		for _, v := range round.Votes {
			if len(v.Ranking) == 0 {
				continue
			}
			firsts[v.Ranking[0]]++
			get(v.Ranking[0]).firstPlace++
			if r.Matrix[v.Voter] == nil {
				r.Matrix[v.Voter] = make(map[string]int)
			}
			for i, name := range v.Ranking {
				at := get(name)
				at.received++
				at.rankSum += i + 1
				r.Matrix[v.Voter][name] += len(v.Ranking) - i
			}
		}
		r.Progression = append(r.Progression, leadingFraction(firsts, len(round.Votes)))
		for _, f := range round.Focus {
			at := get(f.Author)
			at.focusSum += f.Score
			at.focusN++
		}
		if round.Eliminated != "" {
			get(round.Eliminated).eliminatedRound = round.Round
		}
	}

	names := make([]string, 0, len(t))
	for _, a := range state.Agents {
		names = append(names, a.Name)
	}
	for name := range t {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		at := t[name]
		s := AgentStats{
			Name:            name,
			Arguments:       at.args,
			FirstPlaceVotes: at.firstPlace,
			VotesReceived:   at.received,
			EliminatedRound: at.eliminatedRound,
		}
		if at.received > 0 {
			s.MeanRank = float64(at.rankSum) / float64(at.received)
		}
		if at.args > 0 {
			s.AvgArgumentLength = float64(at.argChars) / float64(at.args)
			s.WinRate = float64(at.led) / float64(at.args)
		}
		if at.focusN > 0 {
			s.AvgFocus = at.focusSum / float64(at.focusN)
		}
		r.Agents = append(r.Agents, s)
	}
	return r
}

func leadingFraction(firsts map[string]int, votes int) float64 {
	if votes == 0 {
		return 0
	}
	best := 0
	for _, n := range firsts {
		best = max(best, n)
	}
	return float64(best) / float64(votes)
}

// Aggregate is an agent's record across several debates.
type Aggregate struct {
	Name       string  `json:"name"`
	Debates    int     `json:"debates"`
	Arguments  int     `json:"arguments"`
	FirstPlace int     `json:"first_place"`
	Wins       int     `json:"wins"`
	AvgWinRate float64 `json:"avg_win_rate"`
}

// AggregateAll combines the reports of several debates, sorted by wins then name.
func AggregateAll(reports []Report) []Aggregate {
	byName := make(map[string]*Aggregate)
	for _, r := range reports {
		for _, s := range r.Agents {
			a := byName[s.Name]
			if a == nil {
				a = &Aggregate{Name: s.Name}
				byName[s.Name] = a
			}
			a.Debates++
			a.Arguments += s.Arguments
			a.FirstPlace += s.FirstPlaceVotes
			a.AvgWinRate += s.WinRate
			if r.Consensus && r.Winner == s.Name {
				a.Wins++
			}
		}
	}

	out := make([]Aggregate, 0, len(byName))
	for _, a := range byName {
		a.AvgWinRate /= float64(a.Debates)
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b Aggregate) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
