package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lorenzotomasdiez/council/internal/analytics"
	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/debate/focus"
	"github.com/lorenzotomasdiez/council/internal/store"
)

const (
	LogFile        = "debate.log"
	TranscriptFile = "transcript.json"
	ReportFile     = "report.md"
	maxSlugLength  = 50
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug turns a question into a short lowercase dash-separated name.
func GenerateSlug(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "debate"
	}
	return slug
}

// CreateOutputDir creates base/slug-YYYYMMDD-HHMMSS.
func CreateOutputDir(base, slug string) (string, error) {
	dir := filepath.Join(base, fmt.Sprintf("%s-%s", slug, time.Now().Format("20060102-150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create %s: %w", dir, err)
	}
	return dir, nil
}

// Writer produces the files of one debate directory.
type Writer struct {
	dir string

	mu      sync.Mutex
	entries []string
	err     error
}

// NewWriter writes into dir, which must exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Log appends a timestamped line to debate.log immediately.
func (w *Writer) Log(msg string) {
	line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339), msg)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, line)

	f, err := os.OpenFile(filepath.Join(w.dir, LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.err = err
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		w.err = err
	}
}

// Logf is Log with formatting.
func (w *Writer) Logf(format string, args ...any) {
	w.Log(fmt.Sprintf(format, args...))
}

// WriteLog rewrites debate.log from every entry logged so far and reports any earlier
// append failure.
func (w *Writer) WriteLog() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.WriteFile(filepath.Join(w.dir, LogFile), []byte(strings.Join(w.entries, "")), 0o644); err != nil {
		return fmt.Errorf("output: write log: %w", err)
	}
	if w.err != nil {
		return fmt.Errorf("output: append log: %w", w.err)
	}
	return nil
}

// Sink returns the atomic JSON sink for transcript.json.
func (w *Writer) Sink() (*store.FileSink, error) {
	return store.NewFileSink(filepath.Join(w.dir, TranscriptFile))
}

// WriteJSON writes the full debate state to transcript.json.
func (w *Writer) WriteJSON(state *debate.State) error {
	sink, err := w.Sink()
	if err != nil {
		return err
	}
	return sink.Save(context.Background(), state)
}

// WriteMarkdown writes report.md with every round, the judgment and the analytics.
func (w *Writer) WriteMarkdown(state *debate.State) error {
	if err := os.WriteFile(filepath.Join(w.dir, ReportFile), []byte(Markdown(state)), 0o644); err != nil {
		return fmt.Errorf("output: write report: %w", err)
	}
	return nil
}

// Markdown renders a debate report.
func Markdown(state *debate.State) string {
	cfg := state.Config
	var sb strings.Builder

	title := cfg.Title
	if title == "" {
		title = cfg.Question
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "**Question:** %s\n\n", cfg.Question)
	fmt.Fprintf(&sb, "- Debate: `%s`\n", state.ID)
	fmt.Fprintf(&sb, "- Started: %s\n", state.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Rounds: %d (min %d, max %d)\n", len(state.Rounds), cfg.MinRounds, cfg.MaxRounds)
	fmt.Fprintf(&sb, "- Consensus threshold: %.0f%%\n", cfg.ConsensusThreshold*100)
	fmt.Fprintf(&sb, "- Elimination: %v\n\n", cfg.Elimination)

	sb.WriteString("## Participants\n\n| Agent | Model | Perspective |\n|---|---|---|\n")
	for _, a := range state.Agents {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", a.Name, a.Model, a.Perspective)
	}

	for _, r := range state.Rounds {
		fmt.Fprintf(&sb, "\n## Round %d\n\n", r.Round+1)
		for _, a := range r.Arguments {
			fmt.Fprintf(&sb, "### %s\n\n%s\n\n", a.Author, strings.TrimSpace(a.Content))
		}
		sb.WriteString("### Votes\n\n| Voter | Ranking |\n|---|---|\n")
		for _, v := range r.Votes {
			fmt.Fprintf(&sb, "| %s | %s |\n", v.Voter, strings.Join(v.Ranking, " > "))
		}
		fmt.Fprintf(&sb, "\n%s\n", markdownOutcome(r))
		if r.Eliminated != "" {
			fmt.Fprintf(&sb, "\n**Eliminated:** %s\n", r.Eliminated)
		}
		if len(r.Focus) > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Replace(focus.Report(cfg.Question, r.Focus), "## ", "### ", 1))
		}
	}

	if state.Judgment != "" {
		fmt.Fprintf(&sb, "\n## Final Judgment\n\n%s\n", state.Judgment)
	}

	rep := analytics.Analyze(state)
	sb.WriteString("\n## Analytics\n\n| Agent | Arguments | First-place votes | Mean rank | Win rate | Eliminated |\n|---|---|---|---|---|---|\n")
	for _, s := range rep.Agents {
		out := "-"
		if s.EliminatedRound >= 0 {
			out = fmt.Sprintf("round %d", s.EliminatedRound+1)
		}
		fmt.Fprintf(&sb, "| %s | %d | %d | %.2f | %.0f%% | %s |\n", s.Name, s.Arguments, s.FirstPlaceVotes, s.MeanRank, s.WinRate*100, out)
	}
	if len(rep.Progression) > 0 {
		steps := make([]string, len(rep.Progression))
		for i, f := range rep.Progression {
			steps[i] = fmt.Sprintf("%.0f%%", f*100)
		}
		fmt.Fprintf(&sb, "\nConsensus progression: %s\n", strings.Join(steps, " → "))
	}
	return sb.String()
}

func markdownOutcome(r debate.RoundResult) string {
	pct := fmt.Sprintf("%.0f%%", r.LeadingFraction*100)
	switch {
	case r.ConsensusReached:
		return fmt.Sprintf("**Consensus:** reached on %s (%s)", r.Candidate, pct)
	case r.Candidate != "":
		return fmt.Sprintf("**Consensus:** not reached, %s leads (%s)", r.Candidate, pct)
	default:
		return "**Consensus:** not reached"
	}
}
