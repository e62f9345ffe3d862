// Package personas provides the built-in agent catalogue and model resolution.
package personas

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

// DefaultCount is how many catalogue personas a debate uses when none are named.
const DefaultCount = 4

//go:embed personas.yaml
var defaultYAML []byte

var defaults = mustLoad(defaultYAML)

// ErrUnknownPersona is returned by Select for names missing from the catalogue.
var ErrUnknownPersona = errors.New("unknown persona")

type catalogue struct {
	Personas []debate.Agent `yaml:"personas" validate:"required,min=1,dive"`
}

var validate = validator.New()

func mustLoad(data []byte) []debate.Agent {
	agents, err := Load(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("personas: embedded catalogue: %v", err))
	}
	return agents
}

// Load decodes and validates a YAML persona catalogue.
func Load(r io.Reader) ([]debate.Agent, error) {
	var c catalogue
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("personas: decode: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("personas: validate: %w", err)
	}
	seen := make(map[string]bool, len(c.Personas))
	for _, p := range c.Personas {
		key := strings.ToLower(p.Name)
		if seen[key] {
			return nil, fmt.Errorf("personas: duplicate name %q", p.Name)
		}
		seen[key] = true
	}
	return c.Personas, nil
}

// Default returns a copy of the built-in catalogue.
func Default() []debate.Agent {
	return append([]debate.Agent(nil), defaults...)
}

// Select picks personas by case-insensitive name, in the order requested.
// No names selects the first DefaultCount personas.
func Select(all []debate.Agent, names []string) ([]debate.Agent, error) {
	if len(names) == 0 {
		return append([]debate.Agent(nil), all[:min(DefaultCount, len(all))]...), nil
	}
	out := make([]debate.Agent, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := false
		for _, a := range all {
			if strings.EqualFold(a.Name, name) {
				out = append(out, a)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("personas: %w: %q", ErrUnknownPersona, name)
		}
	}
	return out, nil
}
