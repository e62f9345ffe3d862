package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/debate/adjudicate"
	"github.com/lorenzotomasdiez/council/internal/debate/focus"
	"github.com/lorenzotomasdiez/council/internal/observability"
	"github.com/lorenzotomasdiez/council/internal/output"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func newDebateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debate [question]",
		Short: "Run a council debate on a question",
		Example: `  council debate "Should cities ban cars from their centers?"
  council debate --agents "Bias Auditor,Risk Assessor,Ethics Reviewer" --preset supermajority --elimination "Is remote work here to stay?"
  council debate -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDebate(cmd, args)
		},
	}
	f := cmd.Flags()
	f.BoolP("interactive", "i", false, "Choose question and settings in a form")
	f.String("title", "", "Title for the report")
	f.String("name", "", "Output folder name (default: slug of the question)")
	f.StringSlice("agents", nil, "Persona names (default: the first four personas)")
	f.StringSlice("models", nil, "Models for the selected personas, in order")
	f.Int("min-rounds", 0, "Rounds that always run")
	f.Int("max-rounds", 0, "Hard round limit")
	f.Float64("threshold", 0, "First-place share needed for consensus, in (0, 1]")
	f.String("preset", "", "Consensus preset: majority, supermajority or unanimity")
	f.Bool("elimination", false, "Remove the weakest agent after each round while more than two remain")
	f.Bool("parallel", false, "Query agents concurrently (disables streaming)")
	f.String("judge-model", "", "Model that writes the final judgment")
	f.Bool("focus", false, "Score each argument for focus on the question")
	f.String("focus-model", "", "Model used for focus scoring (default: judge model)")
	f.Bool("memory", false, "Inject relevant memory into argument prompts")

	bindFlags(a.v, cmd, false, map[string]string{
		"debate.agents":      "agents",
		"debate.models":      "models",
		"debate.min_rounds":  "min-rounds",
		"debate.max_rounds":  "max-rounds",
		"debate.threshold":   "threshold",
		"debate.preset":      "preset",
		"debate.elimination": "elimination",
		"debate.parallel":    "parallel",
		"judge.model":        "judge-model",
		"focus.enabled":      "focus",
		"focus.model":        "focus-model",
		"memory.enabled":     "memory",
	})
	return cmd
}

func (a *app) runDebate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	log := a.log.Slog()
	out := cmd.OutOrStdout()

	question := strings.TrimSpace(strings.Join(args, " "))
	title, _ := cmd.Flags().GetString("title")
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		answers, err := runWizard(ctx, question, a.cfg)
		if err != nil {
			return err
		}
		question = answers.apply(a.cfg)
	}
	if question == "" {
		return errors.New("a question is required: pass it as an argument or use --interactive")
	}

	client := a.client()
	agents, err := a.roster(ctx, client, a.cfg.Debate.Agents)
	if err != nil {
		return err
	}
	dcfg := a.cfg.DebateConfig(question, title)

	slug, _ := cmd.Flags().GetString("name")
	if slug == "" {
		slug = output.GenerateSlug(question)
	}
	dir, err := output.CreateOutputDir(a.cfg.Store.Dir, slug)
	if err != nil {
		return err
	}
	writer := output.NewWriter(dir)
	fileSink, err := writer.Sink()
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB(db, &err)

	engine, err := debate.NewEngine(dcfg, agents, client, adjudicate.NewJudge(client, a.cfg.Judge.Model))
	if err != nil {
		return err
	}
	engine.SetLogger(log.With("debate", engine.ID()))
	engine.SetSink(store.Multi{fileSink, store.NewBadgerStore(db)})

	if a.cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		addr, err := observability.Serve(ctx, a.cfg.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		log.Info("serving metrics", "addr", addr.String())
		engine.SetMetrics(metrics)
	}
	if a.cfg.Metrics.Trace {
		shutdown, err := observability.InitTracing("council", cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			if serr := shutdown(context.Background()); serr != nil {
				log.Warn("flushing traces", "error", serr)
			}
		}()
	}
	if a.cfg.Memory.Enabled {
		p, err := a.provider(ctx, db, client)
		if err != nil {
			return err
		}
		engine.SetContextProvider(p)
		if a.cfg.Memory.Record {
			engine.SetMemoryRecorder(p)
		}
	}
	if a.cfg.Focus.Enabled {
		engine.SetFocusScorer(focus.NewScorer(client, a.cfg.FocusModel(), a.cfg.Focus.Threshold))
	}

	printer := output.NewPrinter(out, agents)
	wire(engine, printer, writer)

	printer.Header(dcfg, agents)
	writer.Logf("debate %s started: %s", engine.ID(), question)

	state, runErr := engine.Run(ctx)
	if state != nil && len(state.Rounds) > 0 {
		if err := writer.WriteMarkdown(state); err != nil {
			log.Error("writing report", "error", err)
		}
		printer.Summary(state)
	}
	if runErr != nil {
		writer.Logf("debate aborted: %v", runErr)
	}
	if err := writer.WriteLog(); err != nil {
		log.Error("writing log", "error", err)
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, "\nDebate %s complete. Output saved to: %s\n", engine.ID(), dir)
	return nil
}

// wire connects the engine hooks to the terminal printer and the debate log.
func wire(e *debate.Engine, p *output.Printer, w *output.Writer) {
	e.OnPhase = func(round int, phase debate.Phase) {
		p.Phase(round, phase)
		w.Logf("round %d: %s", round+1, phase)
	}
	e.OnArgumentStart = p.ArgumentStart
	e.OnChunk = p.Chunk
	e.OnArgument = func(arg debate.Argument) {
		p.ArgumentEnd(arg)
		w.Logf("[Round %d] %s: %s", arg.Round+1, arg.Author, arg.Content)
	}
	e.OnVote = func(v debate.Vote) {
		w.Logf("[Round %d] %s votes %s", v.Round+1, v.Voter, strings.Join(v.Ranking, " > "))
	}
	e.OnRound = func(r debate.RoundResult) {
		p.Round(r)
		w.Logf("round %d: consensus=%v leader=%s share=%.0f%%", r.Round+1, r.ConsensusReached, r.Candidate, r.LeadingFraction*100)
	}
	e.OnElimination = func(name string, round int) {
		w.Logf("round %d: eliminated %s", round+1, name)
	}
	e.OnWarning = func(msg string) {
		p.Warning(msg)
		w.Log("warning: " + msg)
	}
	e.OnJudgmentChunk = p.JudgmentChunk
}
