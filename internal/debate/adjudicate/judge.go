// Package adjudicate synthesizes the final judgment of a finished debate.
package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
)

const systemPrompt = "You are a truth-oriented, concise and fair judge. Synthesize the arguments, " +
	"take the votes into account and deliver a final decision that weighs the strength of the evidence."

// ErrEmptyJudgment is returned when the judge model produces no text.
var ErrEmptyJudgment = errors.New("adjudicate: empty judgment")

// Judge asks a single model for the final decision over the whole debate history.
type Judge struct {
	llm   debate.Reasoner
	model string
}

// NewJudge creates a Judge that uses model for adjudication.
func NewJudge(llm debate.Reasoner, model string) *Judge {
	return &Judge{llm: llm, model: model}
}

// Model returns the judge model name.
func (j *Judge) Model() string { return j.model }

// Adjudicate implements debate.Adjudicator. A nil onChunk disables streaming.
func (j *Judge) Adjudicate(ctx context.Context, state *debate.State, onChunk func(string)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("adjudicate: %w", err)
	}

	msgs := []llm.Message{
		llm.System(systemPrompt),
		llm.User(fmt.Sprintf(
			"Question: %s\n\nDebate summary:\n%s\n\nGive the final decision with brief reasoning and, "+
				"where relevant, bullet-point recommendations for action.",
			state.Config.Question, Transcript(state),
		)),
	}

	var (
		out string
		err error
	)
	if onChunk != nil {
		out, err = j.llm.Stream(ctx, j.model, msgs, llm.Params{}, onChunk)
	} else {
		out, err = j.llm.Complete(ctx, j.model, msgs, llm.Params{})
	}
	if err != nil {
		return "", fmt.Errorf("adjudicate: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyJudgment
	}
	return out, nil
}

// Transcript renders every round's arguments, votes and outcome as plain text.
func Transcript(state *debate.State) string {
	var sb strings.Builder
	for i, r := range state.Rounds {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Round %d:\n", r.Round+1)
		for _, a := range r.Arguments {
			fmt.Fprintf(&sb, "- %s: %s\n", a.Author, a.Content)
		}
		sb.WriteString("Votes:\n")
		for _, v := range r.Votes {
			fmt.Fprintf(&sb, "- %s: %s\n", v.Voter, strings.Join(v.Ranking, " > "))
		}
		switch {
		case r.ConsensusReached:
			fmt.Fprintf(&sb, "Consensus reached on %s (%.0f%% first-place votes)\n", r.Candidate, r.LeadingFraction*100)
		case r.Candidate != "":
			fmt.Fprintf(&sb, "No consensus; %s led with %.0f%%\n", r.Candidate, r.LeadingFraction*100)
		default:
			sb.WriteString("No consensus\n")
		}
		if r.Eliminated != "" {
			fmt.Fprintf(&sb, "Eliminated: %s\n", r.Eliminated)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
