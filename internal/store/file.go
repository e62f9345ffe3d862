// Package store persists debate snapshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

// FileSink writes each snapshot as indented JSON to a single path. A snapshot is written
// to a temporary file, synced and renamed over the target, so readers only ever see a
// complete document.
type FileSink struct {
	path string
}

// NewFileSink creates the parent directory of path if needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir for %s: %w", path, err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the target file.
func (f *FileSink) Path() string { return f.path }

// Save implements debate.Sink.
func (f *FileSink) Save(ctx context.Context, state *debate.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", state.ID, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}
	return nil
}

// LoadFile reads a snapshot written by FileSink.
func LoadFile(path string) (*debate.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var state debate.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return &state, nil
}
