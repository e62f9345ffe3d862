package debate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lorenzotomasdiez/council/internal/llm"
)

// Phase is a step of the per-round state machine.
type Phase int

const (
	CollectArguments Phase = iota
	CollectVotes
	EvaluateConsensus
	Eliminate
	CheckTermination
	Adjudicate
	Done
)

func (p Phase) String() string {
	switch p {
	case CollectArguments:
		return "collect_arguments"
	case CollectVotes:
		return "collect_votes"
	case EvaluateConsensus:
		return "evaluate_consensus"
	case Eliminate:
		return "eliminate"
	case CheckTermination:
		return "check_termination"
	case Adjudicate:
		return "adjudicate"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Agent is a debate participant and its generation parameters.
type Agent struct {
	Name           string   `json:"name" yaml:"name" validate:"required"`
	Model          string   `json:"model" yaml:"model" validate:"required"`
	Traits         string   `json:"traits,omitempty" yaml:"traits"`
	Perspective    string   `json:"perspective,omitempty" yaml:"perspective"`
	ReasoningDepth int      `json:"reasoning_depth" yaml:"reasoning_depth" validate:"gte=0"`
	Persistence    float64  `json:"persistence" yaml:"persistence" validate:"gte=0,lte=1"`
	TruthSeeking   float64  `json:"truth_seeking" yaml:"truth_seeking" validate:"gte=0,lte=1"`
	Temperature    *float32 `json:"temperature,omitempty" yaml:"temperature"`
}

// Argument is one agent's contribution to a round.
type Argument struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Round     int       `json:"round"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is a voter's ranking of the round's authors, best first.
type Vote struct {
	Voter   string   `json:"voter"`
	Ranking []string `json:"ranking"`
	Round   int      `json:"round"`
}

// FocusScore is a diagnostic rating of how on-topic an argument is.
type FocusScore struct {
	Author    string  `json:"author"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	Focused   bool    `json:"focused"`
}

// RoundResult is the immutable record of a completed round.
type RoundResult struct {
	Round            int          `json:"round"`
	Arguments        []Argument   `json:"arguments"`
	Votes            []Vote       `json:"votes"`
	ConsensusReached bool         `json:"consensus_reached"`
	Candidate        string       `json:"consensus_candidate,omitempty"`
	LeadingFraction  float64      `json:"leading_fraction"`
	Eliminated       string       `json:"eliminated,omitempty"`
	Focus            []FocusScore `json:"focus,omitempty"`
}

// Authors returns the round's argument authors in the order they spoke.
func (r RoundResult) Authors() []string {
	names := make([]string, len(r.Arguments))
	for i, a := range r.Arguments {
		names[i] = a.Author
	}
	return names
}

// Rankings returns every vote's ranking in voter order.
func (r RoundResult) Rankings() [][]string {
	out := make([][]string, len(r.Votes))
	for i, v := range r.Votes {
		out[i] = v.Ranking
	}
	return out
}

// Config holds the per-debate settings consumed by the Engine.
type Config struct {
	Question           string  `json:"question" validate:"required"`
	Title              string  `json:"title,omitempty"`
	MinRounds          int     `json:"min_rounds" validate:"gte=0,ltefield=MaxRounds"`
	MaxRounds          int     `json:"max_rounds" validate:"gte=1"`
	ConsensusThreshold float64 `json:"consensus_threshold" validate:"gt=0,lte=1"`
	Elimination        bool    `json:"elimination"`
	Parallel           bool    `json:"parallel"`
}

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid debate config")

var validate = validator.New()

// Validate checks the invariants min_rounds <= max_rounds and 0 < threshold <= 1.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("debate: %w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// State is the append-only record of a debate.
type State struct {
	ID         string        `json:"id"`
	Config     Config        `json:"config"`
	Agents     []Agent       `json:"agents"`
	Rounds     []RoundResult `json:"rounds"`
	Judgment   string        `json:"judgment,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// LastRound returns the most recent round, if any.
func (s *State) LastRound() (RoundResult, bool) {
	if len(s.Rounds) == 0 {
		return RoundResult{}, false
	}
	return s.Rounds[len(s.Rounds)-1], true
}

// Clone returns a deep copy so snapshots handed to sinks never alias engine state.
func (s *State) Clone() *State {
	c := *s
	c.Agents = append([]Agent(nil), s.Agents...)
	c.Rounds = make([]RoundResult, len(s.Rounds))
	for i, r := range s.Rounds {
		rc := r
		rc.Arguments = append([]Argument(nil), r.Arguments...)
		rc.Focus = append([]FocusScore(nil), r.Focus...)
		rc.Votes = make([]Vote, len(r.Votes))
		for j, v := range r.Votes {
			v.Ranking = append([]string(nil), v.Ranking...)
			rc.Votes[j] = v
		}
		c.Rounds[i] = rc
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Snippet is a piece of retrieved context with its relevance score.
type Snippet struct {
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
}

// Reasoner is the generative service used for arguments and votes.
type Reasoner interface {
	Complete(ctx context.Context, model string, messages []llm.Message, params llm.Params) (string, error)
	Stream(ctx context.Context, model string, messages []llm.Message, params llm.Params, onChunk func(string)) (string, error)
}

// Adjudicator turns a finished debate into a final judgment.
type Adjudicator interface {
	Adjudicate(ctx context.Context, state *State, onChunk func(string)) (string, error)
}

// Sink durably stores State snapshots with atomic replace semantics.
type Sink interface {
	Save(ctx context.Context, state *State) error
}

// ContextProvider supplies optional retrieved context for argument prompts.
// Implementations must not return material recorded by the debate debateID.
type ContextProvider interface {
	Retrieve(ctx context.Context, debateID, query string) ([]Snippet, error)
}

// MemoryRecorder stores arguments for retrieval in later debates.
type MemoryRecorder interface {
	Record(ctx context.Context, debateID, question string, arg Argument) error
}

// FocusScorer rates arguments for diagnostics. Implementations must not fail.
type FocusScorer interface {
	Score(ctx context.Context, question string, arg Argument) FocusScore
}
