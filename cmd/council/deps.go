package main

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/lorenzotomasdiez/council/internal/debate"
	"github.com/lorenzotomasdiez/council/internal/llm"
	"github.com/lorenzotomasdiez/council/internal/memory"
	"github.com/lorenzotomasdiez/council/internal/personas"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func (a *app) client() *llm.Client {
	return llm.NewClient(llm.Options{
		BaseURL:           a.cfg.LLM.BaseURL,
		APIKey:            a.cfg.LLM.APIKey,
		MaxRetries:        a.cfg.LLM.MaxRetries,
		RequestsPerSecond: a.cfg.LLM.RequestsPerSecond,
		EmbeddingModel:    a.cfg.LLM.EmbeddingModel,
		Timeout:           a.cfg.LLM.Timeout,
		Logger:            a.log.Slog(),
	})
}

// openDB opens the badger directory shared by debate history and memory.
func (a *app) openDB() (*badger.DB, error) {
	return store.OpenBadger(store.BadgerConfig{
		Path:   a.cfg.Store.DB,
		Logger: a.log.Slog().With("component", "badger"),
	})
}

// vectorStore selects the configured memory backend. db is only used by the
// badger backend.
func (a *app) vectorStore(ctx context.Context, db *badger.DB) (memory.VectorStore, error) {
	switch a.cfg.Memory.Backend {
	case "weaviate":
		ws, err := memory.NewWeaviateStore(a.cfg.Memory.WeaviateURL, a.cfg.Memory.Class)
		if err != nil {
			return nil, err
		}
		if err := ws.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return ws, nil
	default:
		return memory.NewBadgerStore(db), nil
	}
}

func (a *app) provider(ctx context.Context, db *badger.DB, embedder memory.Embedder) (*memory.Provider, error) {
	vs, err := a.vectorStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return memory.NewProvider(vs, embedder, memory.Options{
		Limit:         a.cfg.Memory.Limit,
		MinSimilarity: a.cfg.Memory.MinSimilarity,
		Logger:        a.log.Slog().With("component", "memory"),
	}), nil
}

// roster picks personas by name, applies positional model overrides and swaps
// models the server does not have for ones it does.
func (a *app) roster(ctx context.Context, client *llm.Client, names []string) ([]debate.Agent, error) {
	agents, err := personas.Select(personas.Default(), names)
	if err != nil {
		return nil, err
	}
	for i, m := range a.cfg.Debate.Models {
		if i < len(agents) && m != "" {
			agents[i].Model = m
		}
	}

	available, err := client.ListModels(ctx)
	if err != nil {
		a.log.Slog().Warn("could not list models, keeping configured ones", "error", err)
		return agents, nil
	}
	reg := personas.NewRegistry(available)
	resolved := reg.Resolve(agents)
	for i := range agents {
		if resolved[i].Model != agents[i].Model {
			a.log.Slog().Warn("model unavailable, substituting",
				"agent", agents[i].Name, "wanted", agents[i].Model, "using", resolved[i].Model)
		}
	}
	return resolved, nil
}

func closeDB(db *badger.DB, err *error) {
	if cerr := db.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close db: %w", cerr)
	}
}
