package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func noDelay(attempt int) time.Duration { return 0 }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient(Options{BaseURL: server.URL, APIKey: "test-key", EmbeddingModel: "embed-model"})
	c.backoffFunc = noDelay
	return c
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Authorization header 'Bearer test-key', got %q", r.Header.Get("Authorization"))
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("failed to unmarshal request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model 'test-model', got %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		writeCompletion(w, "  hi there \n")
	})

	got, err := c.Complete(context.Background(), "test-model", []Message{System("be brief"), User("hello")}, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi there" {
		t.Errorf("expected trimmed 'hi there', got %q", got)
	}
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected stream=true in request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var chunks []string
	got, err := c.Stream(context.Background(), "test-model", []Message{User("hi")}, Params{}, func(s string) {
		chunks = append(chunks, s)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
	if strings.Join(chunks, "|") != "Hel|lo| world" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestCompleteRetries429(t *testing.T) {
	var count atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if count.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, "rate limited")
			return
		}
		writeCompletion(w, "ok")
	})

	got, err := c.Complete(context.Background(), "test-model", []Message{User("hello")}, Params{})
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected 'ok', got %q", got)
	}
	if n := count.Load(); n != 3 {
		t.Errorf("expected 3 total requests, got %d", n)
	}
}

func TestCompleteRetries500WithAPIError(t *testing.T) {
	var count atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if count.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
			return
		}
		writeCompletion(w, "ok")
	})

	if _, err := c.Complete(context.Background(), "test-model", []Message{User("hello")}, Params{}); err != nil {
		t.Fatalf("expected success after retry, got error: %v", err)
	}
	if n := count.Load(); n != 2 {
		t.Errorf("expected 2 total requests, got %d", n)
	}
}

func TestCompleteMaxRetries(t *testing.T) {
	var count atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	})

	_, err := c.Complete(context.Background(), "test-model", []Message{User("hello")}, Params{})
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	if n := count.Load(); n != 4 {
		t.Errorf("expected 4 total attempts (1 + 3 retries), got %d", n)
	}
}

func TestCompleteNoRetryOn400(t *testing.T) {
	var count atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "bad request")
	})

	if _, err := c.Complete(context.Background(), "test-model", []Message{User("hello")}, Params{}); err == nil {
		t.Fatal("expected error for 400, got nil")
	}
	if n := count.Load(); n != 1 {
		t.Errorf("expected 1 request (no retry), got %d", n)
	}
}

func TestCompleteRetriesDisabled(t *testing.T) {
	var count atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(Options{BaseURL: server.URL, MaxRetries: -1})
	if _, err := c.Complete(context.Background(), "m", []Message{User("x")}, Params{}); err == nil {
		t.Fatal("expected error")
	}
	if n := count.Load(); n != 1 {
		t.Errorf("expected a single attempt, got %d", n)
	}
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose: vectors must be placed by index.
		fmt.Fprint(w, `{"object":"list","model":"embed-model","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`)
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
}

func TestEmbedRequiresModel(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error without embedding model")
	}
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/models" {
			t.Errorf("expected /models, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gemma3:1b","object":"model","owned_by":"library"},{"id":"qwen3:1.7b","object":"model","owned_by":"library"}]}`)
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "gemma3:1b" {
		t.Errorf("expected 'gemma3:1b', got %q", models[0].ID)
	}
}

func TestListModelsErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
	})
	if _, err := c.ListModels(context.Background()); err == nil {
		t.Fatal("expected error for 401 status, got nil")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	if c.maxRetries != defaultMaxRetries {
		t.Errorf("expected %d retries, got %d", defaultMaxRetries, c.maxRetries)
	}
	if c.limiter != nil {
		t.Error("expected no limiter without RequestsPerSecond")
	}
	if NewClient(Options{RequestsPerSecond: 2}).limiter == nil {
		t.Error("expected limiter with RequestsPerSecond")
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(Options{BaseURL: server.URL, MaxRetries: -1, Timeout: 50 * time.Millisecond})
	if _, err := c.Complete(context.Background(), "m", []Message{User("hi")}, Params{}); err == nil {
		t.Fatal("expected timeout error")
	}
}
