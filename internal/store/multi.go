package store

import (
	"context"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

// Multi fans a snapshot out to several sinks in order and stops at the first failure.
type Multi []debate.Sink

// Save implements debate.Sink.
func (m Multi) Save(ctx context.Context, state *debate.State) error {
	for _, s := range m {
		if err := s.Save(ctx, state); err != nil {
			return err
		}
	}
	return nil
}
