package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL points at a local Ollama server's OpenAI-compatible API.
	DefaultBaseURL    = "http://localhost:11434/v1"
	defaultMaxRetries = 3
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// MaxRetries is the number of retries after the first attempt for 429 and 5xx responses.
	// Negative disables retries; zero uses the default.
	MaxRetries int
	// RequestsPerSecond throttles outgoing calls when > 0.
	RequestsPerSecond float64
	EmbeddingModel    string
	// Timeout bounds each HTTP request, including reading a streamed body. Zero means none.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is a Generative Reasoner backed by any OpenAI-compatible chat API.
type Client struct {
	api            *openai.Client
	limiter        *rate.Limiter
	maxRetries     int
	embeddingModel string
	logger         *slog.Logger
	backoffFunc    func(attempt int) time.Duration
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// NewClient creates a Client for the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIKey == "" {
		// Ollama ignores the key but the SDK always sends one.
		opts.APIKey = "ollama"
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	maxRetries := opts.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		api:            openai.NewClientWithConfig(cfg),
		maxRetries:     maxRetries,
		embeddingModel: opts.EmbeddingModel,
		logger:         logger,
		backoffFunc:    defaultBackoff,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Complete sends a chat completion request and returns the trimmed assistant text.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	req := c.request(model, messages, params, false)

	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %s: response has no choices", model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Stream sends a streaming chat completion request, forwarding every non-empty delta to
// onChunk, and returns the trimmed concatenation once the stream ends. Only opening the
// stream is retried; a failure after the first chunk is returned as is.
func (c *Client) Stream(ctx context.Context, model string, messages []Message, params Params, onChunk func(string)) (string, error) {
	req := c.request(model, messages, params, true)

	var stream *openai.ChatCompletionStream
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		stream, err = c.api.CreateChatCompletionStream(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s: %w", model, err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("llm: %s: stream: %w", model, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Embed returns one embedding vector per input text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.embeddingModel == "" {
		return nil, errors.New("llm: embedding model not configured")
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	var resp openai.EmbeddingResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateEmbeddings(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("llm: embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("llm: embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// ListModels retrieves the models the server advertises.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("llm: list models: %w", err)
	}
	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

func (c *Client) request(model string, messages []Message, params Params, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Stream:   stream,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	return req
}

// statusCode extracts the HTTP status from go-openai errors, or 0 for transport errors.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func (c *Client) withRetry(ctx context.Context, do func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffFunc(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := do(ctx)
		if err == nil {
			return nil
		}
		code := statusCode(err)
		if !isRetryable(code) {
			return err
		}
		c.logger.Warn("retrying reasoner call", "attempt", attempt+1, "status", code, "error", err)
		lastErr = err
	}
	return lastErr
}
