package debate

import (
	"errors"
	"fmt"
)

// ErrUnknownAgent is returned when a name is not on the roster.
var ErrUnknownAgent = errors.New("unknown agent")

type member struct {
	agent           Agent
	active          bool
	eliminatedRound int
}

// Roster is the ordered set of debate agents. Eliminated agents keep their slot with an
// inactive status so history stays self-consistent.
type Roster struct {
	members []member
	index   map[string]int
}

// NewRoster builds a roster, rejecting empty or duplicate names.
func NewRoster(agents []Agent) (*Roster, error) {
	if len(agents) == 0 {
		return nil, errors.New("debate: roster needs at least one agent")
	}
	r := &Roster{
		members: make([]member, 0, len(agents)),
		index:   make(map[string]int, len(agents)),
	}
	for _, a := range agents {
		if a.Name == "" {
			return nil, errors.New("debate: agent name is empty")
		}
		if _, dup := r.index[a.Name]; dup {
			return nil, fmt.Errorf("debate: duplicate agent name %q", a.Name)
		}
		r.index[a.Name] = len(r.members)
		r.members = append(r.members, member{agent: a, active: true, eliminatedRound: -1})
	}
	return r, nil
}

// Active returns the agents still eligible to participate, in roster order.
func (r *Roster) Active() []Agent {
	out := make([]Agent, 0, len(r.members))
	for _, m := range r.members {
		if m.active {
			out = append(out, m.agent)
		}
	}
	return out
}

// Names returns the active agents' names in roster order.
func (r *Roster) Names() []string {
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m.active {
			out = append(out, m.agent.Name)
		}
	}
	return out
}

// Len is the number of active agents.
func (r *Roster) Len() int {
	n := 0
	for _, m := range r.members {
		if m.active {
			n++
		}
	}
	return n
}

// All returns every agent ever on the roster, eliminated or not.
func (r *Roster) All() []Agent {
	out := make([]Agent, len(r.members))
	for i, m := range r.members {
		out[i] = m.agent
	}
	return out
}

// Lookup finds an agent by name and reports whether it is still active.
func (r *Roster) Lookup(name string) (Agent, bool, error) {
	i, ok := r.index[name]
	if !ok {
		return Agent{}, false, fmt.Errorf("debate: %w: %q", ErrUnknownAgent, name)
	}
	return r.members[i].agent, r.members[i].active, nil
}

// Eliminate marks an active agent as removed after the given round.
func (r *Roster) Eliminate(name string, round int) error {
	i, ok := r.index[name]
	if !ok {
		return fmt.Errorf("debate: %w: %q", ErrUnknownAgent, name)
	}
	if !r.members[i].active {
		return fmt.Errorf("debate: agent %q already eliminated in round %d", name, r.members[i].eliminatedRound)
	}
	r.members[i].active = false
	r.members[i].eliminatedRound = round
	return nil
}

// EliminatedRound returns the round an agent was removed in, or -1 if still active.
func (r *Roster) EliminatedRound(name string) int {
	if i, ok := r.index[name]; ok {
		return r.members[i].eliminatedRound
	}
	return -1
}
