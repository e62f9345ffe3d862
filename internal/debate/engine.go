package debate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lorenzotomasdiez/council/internal/debate/consensus"
	"github.com/lorenzotomasdiez/council/internal/debate/elimination"
	"github.com/lorenzotomasdiez/council/internal/llm"
	"github.com/lorenzotomasdiez/council/internal/observability"
)

const tracerName = "github.com/lorenzotomasdiez/council/internal/debate"

// Engine orchestrates a bounded multi-round deliberation. It exclusively owns the roster
// and the round history; collaborators only return values.
type Engine struct {
	cfg      Config
	roster   *Roster
	llm      Reasoner
	judge    Adjudicator
	policy   *elimination.Policy
	sink     Sink
	contexts ContextProvider
	recorder MemoryRecorder
	scorer   FocusScorer
	metrics  *observability.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	state    *State

	OnPhase         func(round int, phase Phase)
	OnArgumentStart func(agent Agent, round int)
	OnChunk         func(author, chunk string)
	OnArgument      func(Argument)
	OnVote          func(Vote)
	OnRound         func(RoundResult)
	OnElimination   func(name string, round int)
	OnWarning       func(msg string)
	OnJudgmentChunk func(chunk string)
}

// NewEngine validates the configuration and roster and creates a debate engine.
func NewEngine(cfg Config, agents []Agent, llm Reasoner, judge Adjudicator) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	roster, err := NewRoster(agents)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		roster: roster,
		llm:    llm,
		judge:  judge,
		policy: elimination.New(),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		state: &State{
			ID:        uuid.NewString(),
			Config:    cfg,
			Agents:    roster.All(),
			StartedAt: time.Now().UTC(),
		},
	}, nil
}

// SetSink sets where State snapshots are persisted after every round.
func (e *Engine) SetSink(s Sink) { e.sink = s }

// SetContextProvider enables retrieval-augmented argument prompts.
func (e *Engine) SetContextProvider(p ContextProvider) { e.contexts = p }

// SetMemoryRecorder stores each persisted round's arguments for future debates.
func (e *Engine) SetMemoryRecorder(r MemoryRecorder) { e.recorder = r }

// SetFocusScorer enables per-argument focus diagnostics.
func (e *Engine) SetFocusScorer(s FocusScorer) { e.scorer = s }

// SetMetrics sets the metrics recorder.
func (e *Engine) SetMetrics(m *observability.Metrics) { e.metrics = m }

// SetLogger sets the structured logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// ID returns the debate identifier.
func (e *Engine) ID() string { return e.state.ID }

// State returns a snapshot of the debate so far.
func (e *Engine) State() *State { return e.state.Clone() }

// Roster exposes the engine's roster for read-only inspection.
func (e *Engine) Roster() *Roster { return e.roster }

// Run executes rounds until the termination rule fires, then adjudicates once.
// On failure the returned State holds every round persisted before the error.
func (e *Engine) Run(ctx context.Context) (*State, error) {
	ctx, span := e.tracer.Start(ctx, "debate.run", trace.WithAttributes(
		attribute.String("debate.id", e.state.ID),
		attribute.Int("debate.agents", e.roster.Len()),
	))
	defer span.End()

	e.logger.Info("debate started",
		"id", e.state.ID,
		"agents", e.roster.Len(),
		"min_rounds", e.cfg.MinRounds,
		"max_rounds", e.cfg.MaxRounds,
		"threshold", e.cfg.ConsensusThreshold,
		"elimination", e.cfg.Elimination,
	)

	var prior []Argument
	for round := 0; round < e.cfg.MaxRounds; round++ {
		result, err := e.runRound(ctx, round, prior)
		if err != nil {
			return e.fail(span, err)
		}
		prior = result.Arguments

		if err := e.enter(ctx, round, CheckTermination); err != nil {
			return e.fail(span, err)
		}
		if e.shouldStop(result) {
			break
		}
	}

	last := len(e.state.Rounds) - 1
	if err := e.enter(ctx, last, Adjudicate); err != nil {
		return e.fail(span, err)
	}
	if err := e.adjudicate(ctx); err != nil {
		return e.fail(span, err)
	}
	e.emitPhase(last, Done)

	final, _ := e.state.LastRound()
	e.metrics.DebateFinished(len(e.state.Rounds), final.ConsensusReached)
	e.logger.Info("debate finished",
		"id", e.state.ID,
		"rounds", len(e.state.Rounds),
		"consensus", final.ConsensusReached,
		"candidate", final.Candidate,
	)
	return e.State(), nil
}

func (e *Engine) shouldStop(r RoundResult) bool {
	completed := r.Round + 1
	return (r.ConsensusReached && completed >= e.cfg.MinRounds) || completed == e.cfg.MaxRounds
}

func (e *Engine) fail(span trace.Span, err error) (*State, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("debate aborted", "id", e.state.ID, "rounds", len(e.state.Rounds), "error", err)
	return e.State(), err
}

// enter checks for cancellation before a phase begins and announces it.
func (e *Engine) enter(ctx context.Context, round int, phase Phase) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("debate: round %d: before %s: %w", round, phase, err)
	}
	e.emitPhase(round, phase)
	return nil
}

func (e *Engine) emitPhase(round int, phase Phase) {
	e.logger.Debug("phase", "round", round, "phase", phase.String())
	if e.OnPhase != nil {
		e.OnPhase(round, phase)
	}
}

func (e *Engine) warn(msg string) {
	e.logger.Warn(msg, "id", e.state.ID)
	if e.OnWarning != nil {
		e.OnWarning(msg)
	}
}

func (e *Engine) runRound(ctx context.Context, round int, prior []Argument) (RoundResult, error) {
	ctx, span := e.tracer.Start(ctx, "debate.round", trace.WithAttributes(attribute.Int("round", round)))
	defer span.End()

	agents := e.roster.Active()

	if err := e.enter(ctx, round, CollectArguments); err != nil {
		return RoundResult{}, err
	}
	args, err := e.collectArguments(ctx, round, agents, prior)
	if err != nil {
		return RoundResult{}, err
	}
	focus := e.scoreFocus(ctx, args)

	if err := e.enter(ctx, round, CollectVotes); err != nil {
		return RoundResult{}, err
	}
	votes, err := e.collectVotes(ctx, round, agents, args)
	if err != nil {
		return RoundResult{}, err
	}

	if err := e.enter(ctx, round, EvaluateConsensus); err != nil {
		return RoundResult{}, err
	}
	result := RoundResult{
		Round:     round,
		Arguments: args,
		Votes:     votes,
		Focus:     focus,
	}
	outcome := consensus.Evaluate(result.Rankings(), result.Authors(), e.cfg.ConsensusThreshold)
	result.ConsensusReached = outcome.Reached
	result.Candidate = outcome.Candidate
	result.LeadingFraction = outcome.Fraction
	e.logger.Info("consensus evaluated",
		"round", round,
		"reached", outcome.Reached,
		"candidate", outcome.Candidate,
		"fraction", outcome.Fraction,
	)

	if e.cfg.Elimination && e.roster.Len() > 2 {
		if err := e.enter(ctx, round, Eliminate); err != nil {
			return RoundResult{}, err
		}
		if name, ok := e.policy.Select(result.Rankings(), e.roster.Names()); ok {
			if err := e.roster.Eliminate(name, round); err != nil {
				return RoundResult{}, err
			}
			result.Eliminated = name
			e.metrics.AgentEliminated()
			e.logger.Info("agent eliminated", "round", round, "agent", name)
			if e.OnElimination != nil {
				e.OnElimination(name, round)
			}
		}
	}

	if err := e.commit(ctx, result); err != nil {
		return RoundResult{}, err
	}
	span.SetAttributes(
		attribute.Bool("consensus.reached", result.ConsensusReached),
		attribute.String("consensus.candidate", result.Candidate),
	)
	e.metrics.RoundCompleted(result.ConsensusReached)
	if e.OnRound != nil {
		e.OnRound(result)
	}
	e.remember(ctx, result)
	return result, nil
}

// commit persists the history with the new round before it becomes part of State, so the
// in-memory history never runs ahead of what the sink holds.
func (e *Engine) commit(ctx context.Context, result RoundResult) error {
	next := e.state.Clone()
	next.Rounds = append(next.Rounds, result)
	if e.sink != nil {
		if err := e.sink.Save(ctx, next); err != nil {
			return fmt.Errorf("debate: round %d: persist: %w", result.Round, err)
		}
	}
	e.state.Rounds = append(e.state.Rounds, result)
	return nil
}

func (e *Engine) collectArguments(ctx context.Context, round int, agents []Agent, prior []Argument) ([]Argument, error) {
	snippets := e.retrieve(ctx)

	if e.cfg.Parallel {
		contents := make([]string, len(agents))
		g, gctx := errgroup.WithContext(ctx)
		for i, agent := range agents {
			g.Go(func() error {
				msgs := argumentMessages(agent, e.cfg.Question, prior, snippets)
				content, err := e.call(gctx, "argument", agent, msgs, nil)
				if err != nil {
					return fmt.Errorf("debate: round %d: argument from %s: %w", round, agent.Name, err)
				}
				contents[i] = content
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		args := make([]Argument, len(agents))
		for i, agent := range agents {
			args[i] = e.newArgument(agent, round, contents[i])
			if e.OnArgumentStart != nil {
				e.OnArgumentStart(agent, round)
			}
			if e.OnChunk != nil {
				e.OnChunk(agent.Name, contents[i])
			}
			if e.OnArgument != nil {
				e.OnArgument(args[i])
			}
		}
		return args, nil
	}

	args := make([]Argument, 0, len(agents))
	for _, agent := range agents {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("debate: round %d: %w", round, err)
		}
		if e.OnArgumentStart != nil {
			e.OnArgumentStart(agent, round)
		}
		msgs := argumentMessages(agent, e.cfg.Question, prior, snippets)
		content, err := e.call(ctx, "argument", agent, msgs, func(chunk string) {
			if e.OnChunk != nil {
				e.OnChunk(agent.Name, chunk)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("debate: round %d: argument from %s: %w", round, agent.Name, err)
		}
		arg := e.newArgument(agent, round, content)
		args = append(args, arg)
		if e.OnArgument != nil {
			e.OnArgument(arg)
		}
	}
	return args, nil
}

func (e *Engine) newArgument(agent Agent, round int, content string) Argument {
	return Argument{
		Author:    agent.Name,
		Content:   content,
		Round:     round,
		CreatedAt: time.Now().UTC(),
	}
}

func (e *Engine) collectVotes(ctx context.Context, round int, agents []Agent, args []Argument) ([]Vote, error) {
	eligible := make([]string, len(args))
	for i, a := range args {
		eligible[i] = a.Author
	}

	raws := make([]string, len(agents))
	if e.cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, agent := range agents {
			g.Go(func() error {
				raw, err := e.call(gctx, "vote", agent, voteMessages(agent, e.cfg.Question, args), nil)
				if err != nil {
					return fmt.Errorf("debate: round %d: vote from %s: %w", round, agent.Name, err)
				}
				raws[i] = raw
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, agent := range agents {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("debate: round %d: %w", round, err)
			}
			raw, err := e.call(ctx, "vote", agent, voteMessages(agent, e.cfg.Question, args), nil)
			if err != nil {
				return nil, fmt.Errorf("debate: round %d: vote from %s: %w", round, agent.Name, err)
			}
			raws[i] = raw
		}
	}

	votes := make([]Vote, len(agents))
	for i, agent := range agents {
		votes[i] = Vote{
			Voter:   agent.Name,
			Ranking: consensus.Sanitize(raws[i], eligible),
			Round:   round,
		}
		if e.OnVote != nil {
			e.OnVote(votes[i])
		}
	}
	return votes, nil
}

// call issues one reasoner request. A non-nil onChunk selects streaming.
func (e *Engine) call(ctx context.Context, phase string, agent Agent, msgs []llm.Message, onChunk func(string)) (string, error) {
	params := llm.Params{Temperature: agent.Temperature}
	start := time.Now()
	var (
		out string
		err error
	)
	if onChunk != nil {
		out, err = e.llm.Stream(ctx, agent.Model, msgs, params, onChunk)
	} else {
		out, err = e.llm.Complete(ctx, agent.Model, msgs, params)
	}
	e.metrics.ObserveCall(phase, time.Since(start), err)
	return out, err
}

func (e *Engine) retrieve(ctx context.Context) []Snippet {
	if e.contexts == nil {
		return nil
	}
	snippets, err := e.contexts.Retrieve(ctx, e.state.ID, e.cfg.Question)
	if err != nil {
		e.warn(fmt.Sprintf("context retrieval failed: %v", err))
		return nil
	}
	return snippets
}

func (e *Engine) scoreFocus(ctx context.Context, args []Argument) []FocusScore {
	if e.scorer == nil {
		return nil
	}
	scores := make([]FocusScore, 0, len(args))
	for _, a := range args {
		s := e.scorer.Score(ctx, e.cfg.Question, a)
		scores = append(scores, s)
		if !s.Focused {
			e.warn(fmt.Sprintf("%s drifted off-topic (score %.2f): %s", s.Author, s.Score, s.Reasoning))
		}
	}
	return scores
}

func (e *Engine) remember(ctx context.Context, r RoundResult) {
	if e.recorder == nil {
		return
	}
	for _, a := range r.Arguments {
		if err := e.recorder.Record(ctx, e.state.ID, e.cfg.Question, a); err != nil {
			e.warn(fmt.Sprintf("memory record for %s failed: %v", a.Author, err))
		}
	}
}

func (e *Engine) adjudicate(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "debate.adjudicate")
	defer span.End()

	start := time.Now()
	judgment, err := e.judge.Adjudicate(ctx, e.state.Clone(), e.OnJudgmentChunk)
	e.metrics.ObserveCall("judgment", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("debate: adjudication: %w", err)
	}

	e.state.Judgment = judgment
	finished := time.Now().UTC()
	e.state.FinishedAt = &finished
	if e.sink != nil {
		if err := e.sink.Save(ctx, e.state.Clone()); err != nil {
			return fmt.Errorf("debate: persist judgment: %w", err)
		}
	}
	return nil
}
