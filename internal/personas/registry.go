package personas

import (
	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
)

// Registry holds the models the server reports as available.
type Registry struct {
	available []llm.Model
	ids       map[string]bool
}

// NewRegistry creates a registry from a model listing.
func NewRegistry(models []llm.Model) *Registry {
	ids := make(map[string]bool, len(models))
	for _, m := range models {
		ids[m.ID] = true
	}
	return &Registry{available: models, ids: ids}
}

// Models returns all available models.
func (r *Registry) Models() []llm.Model {
	return r.available
}

// Has reports whether a model id is available.
func (r *Registry) Has(id string) bool {
	return r.ids[id]
}

// Resolve returns the agents with every unavailable model replaced, cycling through the
// available list. Agents are returned unchanged when nothing is available.
func (r *Registry) Resolve(agents []debate.Agent) []debate.Agent {
	out := append([]debate.Agent(nil), agents...)
	if len(r.available) == 0 {
		return out
	}
	next := 0
	for i := range out {
		if r.ids[out[i].Model] {
			continue
		}
		out[i].Model = r.available[next%len(r.available)].ID
		next++
	}
	return out
}

// DefaultModels returns the local models the built-in catalogue is written for.
func DefaultModels() []llm.Model {
	return []llm.Model{
		{ID: "qwen2.5:3b", OwnedBy: "library"},
		{ID: "gemma3:1b", OwnedBy: "library"},
		{ID: "qwen3:1.7b", OwnedBy: "library"},
		{ID: "gemma3:latest", OwnedBy: "library"},
	}
}
