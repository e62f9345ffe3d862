package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

const debatePrefix = "debate/"

// ErrNotFound is returned when no debate is stored under an id.
var ErrNotFound = errors.New("debate not found")

// BadgerConfig holds configuration for the embedded database.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM, for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens the database shared by the debate store and the memory store.
// The caller must Close it.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: badger path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return db, nil
}

// Summary is the listing view of a stored debate.
type Summary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Question   string     `json:"question"`
	Rounds     int        `json:"rounds"`
	Consensus  bool       `json:"consensus"`
	Candidate  string     `json:"candidate,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Summarize builds the listing view of a debate.
func Summarize(s *debate.State) Summary {
	sum := Summary{
		ID:         s.ID,
		Title:      s.Config.Title,
		Question:   s.Config.Question,
		Rounds:     len(s.Rounds),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if last, ok := s.LastRound(); ok {
		sum.Consensus = last.ConsensusReached
		sum.Candidate = last.Candidate
	}
	return sum
}

// BadgerStore keeps one snapshot per debate id. Each Save replaces the snapshot in a
// single transaction.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The store does not own db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Save implements debate.Sink.
func (s *BadgerStore) Save(ctx context.Context, state *debate.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", state.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(debatePrefix+state.ID), data)
	})
	if err != nil {
		return fmt.Errorf("store: save %s: %w", state.ID, err)
	}
	return nil
}

// Get loads a debate by id.
func (s *BadgerStore) Get(_ context.Context, id string) (*debate.State, error) {
	var state debate.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(debatePrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("store: %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return &state, nil
}

// List returns every stored debate, newest first.
func (s *BadgerStore) List(_ context.Context) ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(debatePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var state debate.State
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &state)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, Summarize(&state))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	slices.SortStableFunc(out, func(a, b Summary) int { return b.StartedAt.Compare(a.StartedAt) })
	return out, nil
}

// Delete removes a stored debate.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(debatePrefix + id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("store: %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}

