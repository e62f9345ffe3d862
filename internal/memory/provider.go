package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lorenzotomasdiez/council/internal/debate"
)

const (
	DefaultLimit         = 3
	DefaultMinSimilarity = 0.6
	snippetChars         = 300
)

// Options tunes retrieval.
type Options struct {
	// Limit caps the snippets returned per query. Zero selects DefaultLimit.
	Limit int
	// MinSimilarity drops matches scoring below it. Zero selects DefaultMinSimilarity.
	MinSimilarity float64
	Logger        *slog.Logger
}

// Provider implements debate.ContextProvider and debate.MemoryRecorder.
type Provider struct {
	store    VectorStore
	embedder Embedder
	limit    int
	minScore float64
	logger   *slog.Logger
	now      func() time.Time
}

// NewProvider creates a Provider over store, embedding text with embedder.
func NewProvider(store VectorStore, embedder Embedder, opts Options) *Provider {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Provider{
		store:    store,
		embedder: embedder,
		limit:    opts.Limit,
		minScore: opts.MinSimilarity,
		logger:   opts.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Provider) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// Retrieve implements debate.ContextProvider. Arguments recorded by debateID are
// never returned, so a running debate cannot read its own earlier rounds back.
func (p *Provider) Retrieve(ctx context.Context, debateID, query string) ([]debate.Snippet, error) {
	vec, err := p.embedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	matches, err := p.store.Search(ctx, vec, p.limit, p.minScore, debateID)
	if err != nil {
		return nil, err
	}

	snippets := make([]debate.Snippet, len(matches))
	for i, m := range matches {
		snippets[i] = debate.Snippet{
			Score:  m.Score,
			Text:   formatEpisode(m.Episode),
			Source: sourceOf(m.Episode),
		}
	}
	p.logger.Debug("memory retrieved", "debate", debateID, "query", query, "snippets", len(snippets))
	return snippets, nil
}

func formatEpisode(ep Episode) string {
	content := truncate(ep.Content, snippetChars)
	if ep.Agent == "" {
		return content
	}
	return fmt.Sprintf("[%s] (%s): %s", ep.Agent, ep.CreatedAt.Format(time.DateOnly), content)
}

func sourceOf(ep Episode) string {
	if ep.Source != "" {
		return ep.Source
	}
	if ep.DebateID != "" {
		return "debate:" + ep.DebateID
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Record implements debate.MemoryRecorder.
func (p *Provider) Record(ctx context.Context, debateID, question string, arg debate.Argument) error {
	vec, err := p.embedOne(ctx, arg.Content)
	if err != nil {
		return fmt.Errorf("memory: embed argument: %w", err)
	}
	return p.store.Put(ctx, Episode{
		ID:        uuid.NewString(),
		DebateID:  debateID,
		Question:  question,
		Agent:     arg.Author,
		Round:     arg.Round,
		Content:   arg.Content,
		Embedding: vec,
		CreatedAt: p.now(),
	})
}
