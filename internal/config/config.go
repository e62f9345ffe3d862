// Package config loads council settings from defaults, an optional YAML file,
// COUNCIL_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/debate/consensus"
	"github.com/lorenzotomasdiez/council/internal/debate/focus"
)

// EnvPrefix prefixes every environment override, e.g. COUNCIL_DEBATE_MAX_ROUNDS.
const EnvPrefix = "COUNCIL"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Debate  DebateConfig  `mapstructure:"debate"`
	Judge   JudgeConfig   `mapstructure:"judge"`
	Focus   FocusConfig   `mapstructure:"focus"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LLMConfig points at an OpenAI-compatible endpoint. Ollama is the default.
type LLMConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	APIKey            string        `mapstructure:"api_key"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type DebateConfig struct {
	MinRounds int `mapstructure:"min_rounds" validate:"gte=0,ltefield=MaxRounds"`
	MaxRounds int `mapstructure:"max_rounds" validate:"gte=1"`
	// Preset, when set, overrides Threshold.
	Preset      string   `mapstructure:"preset" validate:"omitempty,oneof=majority supermajority unanimity"`
	Threshold   float64  `mapstructure:"threshold" validate:"gt=0,lte=1"`
	Elimination bool     `mapstructure:"elimination"`
	Parallel    bool     `mapstructure:"parallel"`
	Agents      []string `mapstructure:"agents"`
	// Models overrides persona models positionally when non-empty.
	Models []string `mapstructure:"models"`
}

type JudgeConfig struct {
	Model string `mapstructure:"model" validate:"required"`
}

type FocusConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Model     string  `mapstructure:"model"`
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
}

type MemoryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Backend       string  `mapstructure:"backend" validate:"oneof=badger weaviate"`
	WeaviateURL   string  `mapstructure:"weaviate_url" validate:"omitempty,url"`
	Class         string  `mapstructure:"class"`
	Limit         int     `mapstructure:"limit" validate:"gte=1"`
	MinSimilarity float64 `mapstructure:"min_similarity" validate:"gte=0,lte=1"`
	Record        bool    `mapstructure:"record"`
}

type StoreConfig struct {
	// Dir receives one output directory per debate.
	Dir string `mapstructure:"dir" validate:"required"`
	// DB is the badger directory shared by history and memory.
	DB string `mapstructure:"db" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `mapstructure:"dir"`
	JSON  bool   `mapstructure:"json"`
}

type MetricsConfig struct {
	Addr  string `mapstructure:"addr"`
	Trace bool   `mapstructure:"trace"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:        "http://localhost:11434/v1",
			APIKey:         "ollama",
			EmbeddingModel: "granite-embedding:latest",
			Timeout:        5 * time.Minute,
		},
		Debate: DebateConfig{
			MinRounds: 2,
			MaxRounds: 5,
			Threshold: 0.6,
		},
		Judge: JudgeConfig{Model: "gemma3:1b"},
		Focus: FocusConfig{Threshold: focus.DefaultThreshold},
		Memory: MemoryConfig{
			Backend:       "badger",
			WeaviateURL:   "http://localhost:8080",
			Class:         "CouncilMemory",
			Limit:         3,
			MinSimilarity: 0.6,
			Record:        true,
		},
		Store: StoreConfig{
			Dir: "debates",
			DB:  ".council/db",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// SetDefaults registers the built-in settings on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.embedding_model", d.LLM.EmbeddingModel)
	v.SetDefault("llm.requests_per_second", d.LLM.RequestsPerSecond)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("debate.min_rounds", d.Debate.MinRounds)
	v.SetDefault("debate.max_rounds", d.Debate.MaxRounds)
	v.SetDefault("debate.preset", d.Debate.Preset)
	v.SetDefault("debate.threshold", d.Debate.Threshold)
	v.SetDefault("debate.elimination", d.Debate.Elimination)
	v.SetDefault("debate.parallel", d.Debate.Parallel)
	v.SetDefault("debate.agents", []string{})
	v.SetDefault("debate.models", []string{})

	v.SetDefault("judge.model", d.Judge.Model)

	v.SetDefault("focus.enabled", d.Focus.Enabled)
	v.SetDefault("focus.model", d.Focus.Model)
	v.SetDefault("focus.threshold", d.Focus.Threshold)

	v.SetDefault("memory.enabled", d.Memory.Enabled)
	v.SetDefault("memory.backend", d.Memory.Backend)
	v.SetDefault("memory.weaviate_url", d.Memory.WeaviateURL)
	v.SetDefault("memory.class", d.Memory.Class)
	v.SetDefault("memory.limit", d.Memory.Limit)
	v.SetDefault("memory.min_similarity", d.Memory.MinSimilarity)
	v.SetDefault("memory.record", d.Memory.Record)

	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.db", d.Store.DB)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.json", d.Logging.JSON)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.trace", d.Metrics.Trace)
}

// New returns a viper instance with defaults and environment overrides wired.
// OPENAI_API_KEY is honoured when COUNCIL_LLM_API_KEY is unset.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", EnvPrefix+"_LLM_BASE_URL", "OPENAI_BASE_URL")
	return v
}

// ReadFile merges a YAML config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Load unmarshals v, applies the consensus preset and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Debate.Preset != "" {
		t, err := consensus.Preset(cfg.Debate.Preset)
		if err != nil {
			return nil, fmt.Errorf("config: %w: %v", ErrInvalid, err)
		}
		cfg.Debate.Threshold = t
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w: %v", ErrInvalid, err)
	}
	return &cfg, nil
}

// DebateConfig builds the engine configuration for question.
func (c *Config) DebateConfig(question, title string) debate.Config {
	return debate.Config{
		Question:           question,
		Title:              title,
		MinRounds:          c.Debate.MinRounds,
		MaxRounds:          c.Debate.MaxRounds,
		ConsensusThreshold: c.Debate.Threshold,
		Elimination:        c.Debate.Elimination,
		Parallel:           c.Debate.Parallel,
	}
}

// FocusModel returns the model used for focus scoring, falling back to the judge.
func (c *Config) FocusModel() string {
	if c.Focus.Model != "" {
		return c.Focus.Model
	}
	return c.Judge.Model
}
