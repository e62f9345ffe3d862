package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/lorenzotomasdiez/council/internal/config"
	"github.com/lorenzotomasdiez/council/internal/debate/consensus"
	"github.com/lorenzotomasdiez/council/internal/personas"
)

const customThreshold = "custom"

type wizardAnswers struct {
	Question    string
	Agents      []string
	MinRounds   int
	MaxRounds   int
	Preset      string
	Elimination bool
	Parallel    bool
	Focus       bool
	Memory      bool
}

// defaultAnswers seeds the form from the loaded configuration.
func defaultAnswers(question string, cfg *config.Config) wizardAnswers {
	agents := cfg.Debate.Agents
	if len(agents) == 0 {
		for _, p := range personas.Default()[:personas.DefaultCount] {
			agents = append(agents, p.Name)
		}
	}
	preset := cfg.Debate.Preset
	if preset == "" {
		preset = customThreshold
	}
	return wizardAnswers{
		Question:    question,
		Agents:      agents,
		MinRounds:   cfg.Debate.MinRounds,
		MaxRounds:   cfg.Debate.MaxRounds,
		Preset:      preset,
		Elimination: cfg.Debate.Elimination,
		Parallel:    cfg.Debate.Parallel,
		Focus:       cfg.Focus.Enabled,
		Memory:      cfg.Memory.Enabled,
	}
}

// apply copies the answers into cfg and returns the question.
func (w wizardAnswers) apply(cfg *config.Config) string {
	cfg.Debate.Agents = w.Agents
	cfg.Debate.MinRounds = w.MinRounds
	cfg.Debate.MaxRounds = w.MaxRounds
	if w.Preset != customThreshold {
		if t, err := consensus.Preset(w.Preset); err == nil {
			cfg.Debate.Preset = w.Preset
			cfg.Debate.Threshold = t
		}
	}
	cfg.Debate.Elimination = w.Elimination
	cfg.Debate.Parallel = w.Parallel
	cfg.Focus.Enabled = w.Focus
	cfg.Memory.Enabled = w.Memory
	return strings.TrimSpace(w.Question)
}

func validateQuestion(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("question is required")
	}
	return nil
}

func validateAgents(names []string) error {
	if len(names) < 2 {
		return errors.New("pick at least two personas")
	}
	return nil
}

func roundOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, 10)
	for n := 1; n <= 10; n++ {
		opts = append(opts, huh.NewOption(fmt.Sprint(n), n))
	}
	return opts
}

func runWizard(ctx context.Context, question string, cfg *config.Config) (wizardAnswers, error) {
	ans := defaultAnswers(question, cfg)

	personaOpts := make([]huh.Option[string], 0)
	for _, p := range personas.Default() {
		personaOpts = append(personaOpts, huh.NewOption(fmt.Sprintf("%s - %s", p.Name, p.Perspective), p.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Question").
				Description("What should the council deliberate?").
				Value(&ans.Question).
				Validate(validateQuestion),
			huh.NewMultiSelect[string]().
				Title("Council members").
				Options(personaOpts...).
				Value(&ans.Agents).
				Validate(validateAgents),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Minimum rounds").
				Options(roundOptions()...).
				Value(&ans.MinRounds),
			huh.NewSelect[int]().
				Title("Maximum rounds").
				Options(roundOptions()...).
				Value(&ans.MaxRounds).
				Validate(func(n int) error {
					if n < ans.MinRounds {
						return fmt.Errorf("must be at least %d", ans.MinRounds)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Consensus rule").
				Options(
					huh.NewOption("Majority (50%)", consensus.Majority),
					huh.NewOption("Supermajority (67%)", consensus.Supermajority),
					huh.NewOption("Unanimity (100%)", consensus.Unanimity),
					huh.NewOption(fmt.Sprintf("Configured threshold (%.0f%%)", cfg.Debate.Threshold*100), customThreshold),
				).
				Value(&ans.Preset),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Eliminate the weakest agent each round?").Value(&ans.Elimination),
			huh.NewConfirm().Title("Query agents in parallel?").Description("Faster, but arguments are not streamed.").Value(&ans.Parallel),
			huh.NewConfirm().Title("Score arguments for focus?").Value(&ans.Focus),
			huh.NewConfirm().Title("Use memory from past debates and documents?").Value(&ans.Memory),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return wizardAnswers{}, fmt.Errorf("interactive: %w", err)
	}
	return ans, nil
}
