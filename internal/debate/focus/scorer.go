// Package focus rates how closely arguments stay on the debate question.
package focus

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
)

const (
	DefaultThreshold = 0.7
	neutralScore     = 0.5
)

const systemPrompt = `You are a FOCUS EVALUATOR judging whether an argument stays ON-TOPIC.

Rate how relevant and focused the argument is with respect to the question:
1.0 = perfectly focused, every point addresses the question directly
0.8-0.9 = mostly relevant, one or two minor tangents
0.6-0.7 = reasonably focused, digressions reduce its impact
0.4-0.5 = half on topic, half drifting elsewhere
0.0-0.3 = mostly off-topic, does not address the core question`

// Completer is the subset of the reasoner the scorer needs.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message, params llm.Params) (string, error)
}

// Scorer implements debate.FocusScorer with a small evaluator model.
type Scorer struct {
	llm       Completer
	model     string
	threshold float64
}

// NewScorer creates a Scorer. A non-positive threshold selects DefaultThreshold.
func NewScorer(llm Completer, model string, threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{llm: llm, model: model, threshold: threshold}
}

// Score never fails: evaluator errors produce a neutral, unfocused score.
func (s *Scorer) Score(ctx context.Context, question string, arg debate.Argument) debate.FocusScore {
	temp := float32(0.3)
	msgs := []llm.Message{
		llm.System(systemPrompt),
		llm.User(fmt.Sprintf(
			"DEBATE QUESTION:\n%s\n\nARGUMENT by %s:\n%s\n\nRate its focus. Answer format:\nSCORE: [0.0-1.0]\nREASONING: [short explanation]",
			question, arg.Author, arg.Content,
		)),
	}

	out, err := s.llm.Complete(ctx, s.model, msgs, llm.Params{Temperature: &temp})
	if err != nil {
		return debate.FocusScore{
			Author:    arg.Author,
			Score:     neutralScore,
			Reasoning: fmt.Sprintf("error evaluating focus: %v", err),
		}
	}

	score, reasoning := Parse(out)
	return debate.FocusScore{
		Author:    arg.Author,
		Score:     score,
		Reasoning: reasoning,
		Focused:   score >= s.threshold,
	}
}

// Parse extracts the SCORE and REASONING lines. The score is clamped to [0, 1] and
// defaults to 0.5; reasoning defaults to the whole response.
func Parse(text string) (float64, string) {
	text = strings.TrimSpace(text)
	score, reasoning := neutralScore, text
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SCORE:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "SCORE:")), 64)
			if err == nil {
				score = min(1, max(0, v))
			}
		case strings.HasPrefix(line, "REASONING:"):
			reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		}
	}
	return score, reasoning
}

// Warnings lists a message for every unfocused score.
func Warnings(scores []debate.FocusScore) []string {
	var out []string
	for _, s := range scores {
		if !s.Focused {
			out = append(out, fmt.Sprintf("%s drifted off-topic (score %.2f). %s", s.Author, s.Score, s.Reasoning))
		}
	}
	return out
}

// Report renders scores as a markdown table, best first, with a summary line.
func Report(question string, scores []debate.FocusScore) string {
	sorted := slices.Clone(scores)
	slices.SortStableFunc(sorted, func(a, b debate.FocusScore) int { return cmp.Compare(b.Score, a.Score) })

	var sb strings.Builder
	sb.WriteString("## Focus Report\n\n")
	fmt.Fprintf(&sb, "**Question:** %s\n\n", question)
	sb.WriteString("| Speaker | Score | Status | Reasoning |\n|---|---|---|---|\n")
	var total float64
	focused := 0
	for _, s := range sorted {
		status := "drifting"
		if s.Focused {
			status = "focused"
			focused++
		}
		total += s.Score
		fmt.Fprintf(&sb, "| %s | %.2f | %s | %s |\n", s.Author, s.Score, status, s.Reasoning)
	}
	avg := 0.0
	if len(sorted) > 0 {
		avg = total / float64(len(sorted))
	}
	fmt.Fprintf(&sb, "\n**Summary:** %d/%d arguments focused. Average score: %.2f\n", focused, len(sorted), avg)
	return sb.String()
}
