package debate

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRosterRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := NewRoster(nil); err == nil {
		t.Error("expected error for empty roster")
	}
	if _, err := NewRoster(makeAgents("A", "B", "A")); err == nil {
		t.Error("expected error for duplicate names")
	}
}

func TestRosterEliminateKeepsOrder(t *testing.T) {
	r, err := NewRoster(makeAgents("A", "B", "C", "D"))
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	if err := r.Eliminate("B", 0); err != nil {
		t.Fatalf("Eliminate: %v", err)
	}

	if got := strings.Join(r.Names(), ","); got != "A,C,D" {
		t.Errorf("expected A,C,D, got %s", got)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 active, got %d", r.Len())
	}
	if len(r.All()) != 4 {
		t.Errorf("All should keep eliminated members, got %d", len(r.All()))
	}
	if got := r.EliminatedRound("B"); got != 0 {
		t.Errorf("expected B eliminated in round 0, got %d", got)
	}
	if got := r.EliminatedRound("A"); got != -1 {
		t.Errorf("expected -1 for active member, got %d", got)
	}
}

func TestRosterEliminateErrors(t *testing.T) {
	r, _ := NewRoster(makeAgents("A", "B", "C"))
	if err := r.Eliminate("Z", 0); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if err := r.Eliminate("A", 0); err != nil {
		t.Fatalf("Eliminate: %v", err)
	}
	if err := r.Eliminate("A", 1); err == nil {
		t.Error("expected error eliminating an inactive member")
	}
}

func TestRosterLookup(t *testing.T) {
	r, _ := NewRoster(makeAgents("A", "B", "C"))
	_ = r.Eliminate("C", 2)

	a, active, err := r.Lookup("C")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if a.Name != "C" || active {
		t.Errorf("expected inactive C, got %+v active=%v", a, active)
	}
	if _, _, err := r.Lookup("nobody"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}
