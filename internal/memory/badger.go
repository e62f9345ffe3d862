package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

const episodePrefix = "episode/"

// BadgerStore is a VectorStore that scans every episode in an embedded database.
// Fine for the few thousand arguments a local council accumulates.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database. The store does not own db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Put implements VectorStore.
func (s *BadgerStore) Put(_ context.Context, ep Episode) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("memory: marshal %s: %w", ep.ID, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(episodePrefix+ep.ID), data)
	}); err != nil {
		return fmt.Errorf("memory: put %s: %w", ep.ID, err)
	}
	return nil
}

// Search implements VectorStore.
func (s *BadgerStore) Search(ctx context.Context, vector []float32, limit int, minScore float64, excludeDebate string) ([]Match, error) {
	var matches []Match
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(episodePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ep Episode
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ep)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if excludeDebate != "" && ep.DebateID == excludeDebate {
				continue
			}
			if score := Cosine(vector, ep.Embedding); score >= minScore {
				matches = append(matches, Match{Episode: ep, Score: score})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}

	slices.SortStableFunc(matches, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count returns the number of stored episodes.
func (s *BadgerStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(episodePrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("memory: count: %w", err)
	}
	return n, nil
}
