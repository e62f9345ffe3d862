// Package memory stores debate arguments and reference documents as embeddings and
// retrieves the most similar ones as context for later debates.
package memory

import (
	"context"
	"math"
	"time"
)

// Episode is one stored piece of text with its embedding.
type Episode struct {
	ID        string    `json:"id"`
	DebateID  string    `json:"debate_id,omitempty"`
	Question  string    `json:"question,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Round     int       `json:"round"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a search hit with its cosine similarity to the query.
type Match struct {
	Episode Episode
	Score   float64
}

// VectorStore persists episodes and finds the nearest ones to a vector.
type VectorStore interface {
	Put(ctx context.Context, ep Episode) error
	// Search returns at most limit matches scoring at least minScore, best first.
	// Episodes recorded by debate excludeDebate are skipped; empty skips nothing.
	Search(ctx context.Context, vector []float32, limit int, minScore float64, excludeDebate string) ([]Match, error)
}

// Embedder turns texts into vectors, one per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cosine returns the cosine similarity of a and b over their common length,
// or 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
