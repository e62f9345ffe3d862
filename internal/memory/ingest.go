package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var ingestible = map[string]bool{".txt": true, ".md": true, ".json": true}

func splitterFor(ext string) textsplitter.TextSplitter {
	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	}
	if ext == ".md" {
		opts = append(opts, textsplitter.WithSeparators([]string{"\n## ", "\n### ", "\n\n", "\n", " ", ""}))
	}
	return textsplitter.NewRecursiveCharacter(opts...)
}

// Ingest loads the .txt, .md and .json files directly inside dir, splits them into
// chunks and stores every chunk. It returns the number of chunks stored.
func (p *Provider) Ingest(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("memory: read %s: %w", dir, err)
	}

	total := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("memory: ingest: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !ingestible[ext] {
			continue
		}
		n, err := p.ingestFile(ctx, filepath.Join(dir, e.Name()), ext)
		if err != nil {
			p.logger.Warn("skipping document", "file", e.Name(), "error", err)
			continue
		}
		p.logger.Info("document ingested", "file", e.Name(), "chunks", n)
		total += n
	}
	return total, nil
}

func (p *Provider) ingestFile(ctx context.Context, path, ext string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if ext == ".json" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return 0, fmt.Errorf("invalid json: %w", err)
		}
		data = buf.Bytes()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}

	chunks, err := splitterFor(ext).SplitText(string(data))
	if err != nil {
		return 0, fmt.Errorf("split: %w", err)
	}
	vecs, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vecs))
	}

	source := filepath.Base(path)
	for i, chunk := range chunks {
		ep := Episode{
			ID:        uuid.NewString(),
			Content:   chunk,
			Source:    source,
			Embedding: vecs[i],
			CreatedAt: p.now(),
		}
		if err := p.store.Put(ctx, ep); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
