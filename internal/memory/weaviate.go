package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DefaultClass is the Weaviate class holding council memory.
const DefaultClass = "CouncilMemory"

// WeaviateStore is a VectorStore backed by a Weaviate class with externally supplied
// vectors.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateStore connects to the Weaviate instance at url, e.g. http://localhost:8080.
func NewWeaviateStore(url, class string) (*WeaviateStore, error) {
	cfg := weaviate.Config{Host: url, Scheme: "http"}
	switch {
	case strings.HasPrefix(url, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		cfg.Host = strings.TrimPrefix(url, "http://")
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("memory: weaviate client: %w", err)
	}
	if class == "" {
		class = DefaultClass
	}
	return &WeaviateStore{client: client, class: class}, nil
}

// Schema returns the class definition used by the store.
func (s *WeaviateStore) Schema() *models.Class {
	prop := func(name, dataType, desc string) *models.Property {
		return &models.Property{Name: name, DataType: []string{dataType}, Description: desc}
	}
	return &models.Class{
		Class:       s.class,
		Description: "Arguments and reference documents remembered across debates.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			prop("debate_id", "text", "Debate the argument was made in."),
			prop("question", "text", "Debate question."),
			prop("agent", "text", "Author of the argument."),
			prop("round", "int", "Zero-based round index."),
			prop("content", "text", "Remembered text."),
			prop("source", "text", "Origin of an ingested document."),
			prop("created_at", "number", "Unix milliseconds."),
		},
	}
}

// EnsureSchema creates the class when it does not exist yet.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx); err == nil {
		return nil
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.Schema()).Do(ctx); err != nil {
		return fmt.Errorf("memory: create class %s: %w", s.class, err)
	}
	return nil
}

// Put implements VectorStore.
func (s *WeaviateStore) Put(ctx context.Context, ep Episode) error {
	_, err := s.client.Data().Creator().
		WithClassName(s.class).
		WithID(ep.ID).
		WithProperties(map[string]interface{}{
			"debate_id":  ep.DebateID,
			"question":   ep.Question,
			"agent":      ep.Agent,
			"round":      ep.Round,
			"content":    ep.Content,
			"source":     ep.Source,
			"created_at": ep.CreatedAt.UnixMilli(),
		}).
		WithVector(ep.Embedding).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("memory: weaviate put %s: %w", ep.ID, err)
	}
	return nil
}

type weaviateHit struct {
	DebateID   string  `json:"debate_id"`
	Question   string  `json:"question"`
	Agent      string  `json:"agent"`
	Round      int     `json:"round"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	CreatedAt  float64 `json:"created_at"`
	Additional struct {
		ID        string  `json:"id"`
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

// Search implements VectorStore. Scores are Weaviate certainties, which lie in [0, 1].
func (s *WeaviateStore) Search(ctx context.Context, vector []float32, limit int, minScore float64, excludeDebate string) ([]Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithCertainty(float32(minScore))

	fields := []graphql.Field{
		{Name: "debate_id"},
		{Name: "question"},
		{Name: "agent"},
		{Name: "round"},
		{Name: "content"},
		{Name: "source"},
		{Name: "created_at"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	get := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)
	if excludeDebate != "" {
		get = get.WithWhere(filters.Where().
			WithPath([]string{"debate_id"}).
			WithOperator(filters.NotEqual).
			WithValueText(excludeDebate))
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("memory: weaviate search: %s", result.Errors[0].Message)
	}

	raw, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("memory: weaviate response: %w", err)
	}
	var typed struct {
		Get map[string][]weaviateHit `json:"Get"`
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, fmt.Errorf("memory: weaviate response: %w", err)
	}

	hits := typed.Get[s.class]
	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		if h.Additional.Certainty < minScore || (excludeDebate != "" && h.DebateID == excludeDebate) {
			continue
		}
		matches = append(matches, Match{
			Score: h.Additional.Certainty,
			Episode: Episode{
				ID:        h.Additional.ID,
				DebateID:  h.DebateID,
				Question:  h.Question,
				Agent:     h.Agent,
				Round:     h.Round,
				Content:   h.Content,
				Source:    h.Source,
				CreatedAt: time.UnixMilli(int64(h.CreatedAt)).UTC(),
			},
		})
	}
	return matches, nil
}
