package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorenzotomasdiez/council/internal/config"
	"github.com/lorenzotomasdiez/council/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *logging.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "council",
		Short: "Bounded multi-round deliberation between LLM personas",
		Long: "Runs a council of LLM personas through rounds of arguments and ranked votes " +
			"until a consensus threshold is met or the round limit is reached, then asks " +
			"an adjudicator for a final judgment. Works with any OpenAI-compatible server; Ollama is the default.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.log != nil {
				return a.log.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("base-url", "", "OpenAI-compatible base URL (default Ollama at localhost:11434)")
	pf.String("api-key", "", "API key (overrides COUNCIL_LLM_API_KEY and OPENAI_API_KEY)")
	pf.String("store-dir", "", "Directory receiving one folder per debate")
	pf.String("db", "", "Badger directory for history and memory")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-dir", "", "Also write JSON logs to this directory")
	pf.Bool("log-json", false, "Log to stderr as JSON")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")

	bindFlags(a.v, root, true, map[string]string{
		"llm.base_url":  "base-url",
		"llm.api_key":   "api-key",
		"store.dir":     "store-dir",
		"store.db":      "db",
		"logging.level": "log-level",
		"logging.dir":   "log-dir",
		"logging.json":  "log-json",
		"metrics.addr":  "metrics-addr",
		"metrics.trace": "trace",
	})

	root.AddCommand(
		newDebateCmd(a),
		newPersonasCmd(a),
		newModelsCmd(a),
		newHistoryCmd(a),
		newAnalyzeCmd(a),
		newMemoryCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(a.v, path); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.log, err = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "council",
		JSON:    cfg.Logging.JSON,
		Console: cmd.ErrOrStderr(),
	})
	return err
}

// bindFlags maps viper keys to flags on cmd so explicitly set flags override
// the file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command, persistent bool, keys map[string]string) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", name, err))
		}
	}
}
