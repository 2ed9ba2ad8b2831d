package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/openai/openai-go/option"
)

type embeddingsServer struct {
	mu      sync.Mutex
	batches []int
	drop    bool
}

func (s *embeddingsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/embeddings") {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.batches = append(s.batches, len(req.Input))
	s.mu.Unlock()

	type item struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}
	data := make([]item, 0, len(req.Input))
	// Reverse order: the client must place vectors by index.
	for i := len(req.Input) - 1; i >= 0; i-- {
		n, _ := strconv.Atoi(strings.TrimPrefix(req.Input[i], "t"))
		data = append(data, item{Object: "embedding", Index: i, Embedding: []float64{float64(n), 1}})
	}
	if s.drop && len(data) > 0 {
		data = data[1:]
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
	})
}

func newTestEmbedder(t *testing.T, srv *embeddingsServer, opts ...Option) *Embedder {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	opts = append([]Option{WithRequestOptions(
		option.WithBaseURL(ts.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)}, opts...)
	return NewEmbedder(opts...)
}

func TestEmbedder_Batches(t *testing.T) {
	srv := &embeddingsServer{}
	e := newTestEmbedder(t, srv)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("Expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Fatalf("Vector %d out of order: %v", i, v)
		}
	}

	if len(srv.batches) != 3 || srv.batches[0] != 100 || srv.batches[1] != 100 || srv.batches[2] != 50 {
		t.Errorf("Expected batches [100 100 50], got %v", srv.batches)
	}
}

func TestEmbedder_BatchSizeOption(t *testing.T) {
	srv := &embeddingsServer{}
	e := newTestEmbedder(t, srv, WithBatchSize(2), WithRateLimit(1000))

	if _, err := e.Embed(context.Background(), []string{"t0", "t1", "t2"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(srv.batches) != 2 {
		t.Errorf("Expected 2 requests, got %v", srv.batches)
	}

	capped := NewEmbedder(WithBatchSize(500))
	if capped.batchSize != MaxBatchSize {
		t.Errorf("Batch size should stay at %d, got %d", MaxBatchSize, capped.batchSize)
	}
}

func TestEmbedder_CountMismatch(t *testing.T) {
	srv := &embeddingsServer{drop: true}
	e := newTestEmbedder(t, srv)

	_, err := e.Embed(context.Background(), []string{"t0", "t1"})
	if !errors.Is(err, ErrCountMismatch) {
		t.Errorf("Expected ErrCountMismatch, got %v", err)
	}
}

func TestEmbedder_Empty(t *testing.T) {
	srv := &embeddingsServer{}
	e := newTestEmbedder(t, srv)

	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 0 || len(srv.batches) != 0 {
		t.Errorf("Expected no requests for no input, got %v", srv.batches)
	}
}
