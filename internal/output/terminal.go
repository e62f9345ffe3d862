// Package output renders debates to the terminal and writes per-debate report files.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

var palette = []lipgloss.Color{"12", "10", "13", "14", "11", "9", "33", "208", "141", "43", "170"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	roundStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	judgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("13")).Padding(0, 1)
)

// SpeakerColor maps a roster index to a display color.
func SpeakerColor(i int) lipgloss.Color {
	return palette[i%len(palette)]
}

// Printer writes live debate progress. Its methods match the Engine hooks.
type Printer struct {
	w      io.Writer
	styles map[string]lipgloss.Style
}

// NewPrinter assigns every agent a color by its position in the roster.
func NewPrinter(w io.Writer, agents []debate.Agent) *Printer {
	styles := make(map[string]lipgloss.Style, len(agents))
	for i, a := range agents {
		styles[a.Name] = lipgloss.NewStyle().Bold(true).Foreground(SpeakerColor(i))
	}
	return &Printer{w: w, styles: styles}
}

func (p *Printer) speaker(name string) string {
	if s, ok := p.styles[name]; ok {
		return s.Render(name)
	}
	return lipgloss.NewStyle().Bold(true).Render(name)
}

// Header prints the debate title and settings.
func (p *Printer) Header(cfg debate.Config, agents []debate.Agent) {
	title := cfg.Title
	if title == "" {
		title = "Council"
	}
	fmt.Fprintln(p.w, titleStyle.Render(title))
	fmt.Fprintf(p.w, "%s %s\n", mutedStyle.Render("Question:"), cfg.Question)
	fmt.Fprintf(p.w, "%s %d-%d, threshold %.0f%%, elimination %v\n",
		mutedStyle.Render("Rounds:"), cfg.MinRounds, cfg.MaxRounds, cfg.ConsensusThreshold*100, cfg.Elimination)
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = fmt.Sprintf("%s (%s)", p.speaker(a.Name), a.Model)
	}
	fmt.Fprintf(p.w, "%s %s\n\n", mutedStyle.Render("Council:"), strings.Join(names, ", "))
}

// Phase announces round starts, voting and adjudication.
func (p *Printer) Phase(round int, phase debate.Phase) {
	switch phase {
	case debate.CollectArguments:
		fmt.Fprintf(p.w, "\n%s\n\n", roundStyle.Render(fmt.Sprintf("=== Round %d ===", round+1)))
	case debate.CollectVotes:
		fmt.Fprintln(p.w, mutedStyle.Render("Voting..."))
	case debate.Adjudicate:
		fmt.Fprintf(p.w, "\n%s\n", judgeStyle.Render("Final judgment"))
	case debate.Done:
		fmt.Fprintln(p.w)
	}
}

// ArgumentStart prints the speaker label before streamed text.
func (p *Printer) ArgumentStart(agent debate.Agent, _ int) {
	fmt.Fprintf(p.w, "%s: ", p.speaker(agent.Name))
}

// Chunk prints streamed text as it arrives.
func (p *Printer) Chunk(_ string, chunk string) {
	io.WriteString(p.w, chunk)
}

// ArgumentEnd closes a streamed argument.
func (p *Printer) ArgumentEnd(debate.Argument) {
	fmt.Fprint(p.w, "\n\n")
}

// JudgmentChunk prints streamed judgment text.
func (p *Printer) JudgmentChunk(chunk string) {
	io.WriteString(p.w, chunk)
}

// Warning prints a non-fatal problem.
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, warnStyle.Render("! "+msg))
}

// Round prints the votes, the consensus outcome and any elimination.
func (p *Printer) Round(r debate.RoundResult) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Voter", "Ranking")
	for _, v := range r.Votes {
		t.Row(v.Voter, strings.Join(v.Ranking, " > "))
	}
	fmt.Fprintln(p.w, t.String())
	fmt.Fprintln(p.w, ConsensusLine(r, p.speaker))
	if r.Eliminated != "" {
		fmt.Fprintf(p.w, "%s %s\n", failStyle.Render("Eliminated:"), p.speaker(r.Eliminated))
	}
}

// ConsensusLine describes a round's outcome; name formats agent names.
func ConsensusLine(r debate.RoundResult, name func(string) string) string {
	pct := fmt.Sprintf("%.0f%%", r.LeadingFraction*100)
	switch {
	case r.ConsensusReached:
		return successStyle.Render("Consensus reached:") + " " + name(r.Candidate) + " (" + pct + ")"
	case r.Candidate != "":
		return failStyle.Render("No consensus.") + " Leading: " + name(r.Candidate) + " (" + pct + ")"
	default:
		return failStyle.Render("No consensus.")
	}
}

// Judgment prints a finished judgment in a panel, for output that was not streamed.
func (p *Printer) Judgment(text string) {
	fmt.Fprintln(p.w, panelStyle.Render(text))
}

// Summary prints the final standings.
func (p *Printer) Summary(state *debate.State) {
	last, ok := state.LastRound()
	if !ok {
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Agent", "First-place votes", "Status")
	firsts := make(map[string]int)
	for _, v := range last.Votes {
		if len(v.Ranking) > 0 {
			firsts[v.Ranking[0]]++
		}
	}
	eliminated := make(map[string]int)
	for _, r := range state.Rounds {
		if r.Eliminated != "" {
			eliminated[r.Eliminated] = r.Round
		}
	}
	for _, a := range state.Agents {
		status := "active"
		if round, out := eliminated[a.Name]; out {
			status = fmt.Sprintf("eliminated in round %d", round+1)
		}
		t.Row(a.Name, fmt.Sprint(firsts[a.Name]), status)
	}
	fmt.Fprintf(p.w, "\n%s\n%s\n", roundStyle.Render(fmt.Sprintf("Final standings after %d rounds", len(state.Rounds))), t.String())
	fmt.Fprintln(p.w, ConsensusLine(last, p.speaker))
}
