package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lorenzotomasdiez/council/internal/analytics"
	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

// Personas lists a persona catalogue.
func Personas(w io.Writer, agents []debate.Agent) {
	t := newTable("#", "Name", "Model", "Perspective", "Traits")
	for i, a := range agents {
		t.Row(fmt.Sprint(i+1), a.Name, a.Model, clip(a.Perspective, 40), clip(a.Traits, 40))
	}
	fmt.Fprintln(w, t.String())
}

// Models lists the models reported by the server.
func Models(w io.Writer, models []llm.Model) {
	t := newTable("Model", "Owner")
	for _, m := range models {
		t.Row(m.ID, m.OwnedBy)
	}
	fmt.Fprintln(w, t.String())
}

// History lists stored debates.
func History(w io.Writer, debates []store.Summary) {
	if len(debates) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No debates stored yet."))
		return
	}
	t := newTable("ID", "Started", "Question", "Rounds", "Outcome")
	for _, d := range debates {
		outcome := "no consensus"
		if d.Consensus {
			outcome = "consensus: " + d.Candidate
		}
		if d.FinishedAt == nil {
			outcome += " (unfinished)"
		}
		t.Row(d.ID[:min(8, len(d.ID))], d.StartedAt.Format("2006-01-02 15:04"), clip(d.Question, 48), fmt.Sprint(d.Rounds), outcome)
	}
	fmt.Fprintln(w, t.String())
}

// Analysis prints the per-agent statistics of one debate.
func Analysis(w io.Writer, r analytics.Report) {
	fmt.Fprintln(w, roundStyle.Render(clip(r.Question, 72)))
	t := newTable("Agent", "Args", "1st", "Votes", "Mean rank", "Win rate", "Avg length", "Focus", "Eliminated")
	for _, s := range r.Agents {
		focus := "-"
		if s.AvgFocus > 0 {
			focus = fmt.Sprintf("%.2f", s.AvgFocus)
		}
		elim := "-"
		if s.EliminatedRound >= 0 {
			elim = fmt.Sprintf("round %d", s.EliminatedRound+1)
		}
		t.Row(s.Name, fmt.Sprint(s.Arguments), fmt.Sprint(s.FirstPlaceVotes), fmt.Sprint(s.VotesReceived),
			fmt.Sprintf("%.2f", s.MeanRank), fmt.Sprintf("%.0f%%", s.WinRate*100),
			fmt.Sprintf("%.0f", s.AvgArgumentLength), focus, elim)
	}
	fmt.Fprintln(w, t.String())

	progress := make([]string, len(r.Progression))
	for i, f := range r.Progression {
		progress[i] = fmt.Sprintf("%.0f%%", f*100)
	}
	fmt.Fprintf(w, "Consensus progression: %s\n", strings.Join(progress, " -> "))
	if r.Consensus {
		fmt.Fprintln(w, successStyle.Render("Consensus reached:")+" "+r.Winner)
	} else {
		fmt.Fprintln(w, failStyle.Render("No consensus."))
	}
}

// Aggregates prints agent records across debates.
func Aggregates(w io.Writer, aggs []analytics.Aggregate) {
	t := newTable("Agent", "Debates", "Arguments", "1st-place votes", "Wins", "Avg win rate")
	for _, a := range aggs {
		t.Row(a.Name, fmt.Sprint(a.Debates), fmt.Sprint(a.Arguments), fmt.Sprint(a.FirstPlace),
			fmt.Sprint(a.Wins), fmt.Sprintf("%.0f%%", a.AvgWinRate*100))
	}
	fmt.Fprintln(w, t.String())
}

// Snippets prints retrieved memory.
func Snippets(w io.Writer, snippets []debate.Snippet) {
	if len(snippets) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No relevant memory found."))
		return
	}
	for _, s := range snippets {
		fmt.Fprintf(w, "%s %s\n  %s\n", judgeStyle.Render(fmt.Sprintf("(%.2f)", s.Score)), mutedStyle.Render(s.Source), s.Text)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
