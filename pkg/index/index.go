// Package index owns the lifecycle of the persisted movie index: building it once
// from the catalog, reloading it into memory and serving the loaded chunks.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/barekit/cinerag/pkg/catalog"
	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store"
)

var (
	// ErrDimensionMismatch is returned when records and embeddings cannot be zipped.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotReady is returned when chunks are requested before EnsureReady succeeded.
	ErrNotReady = errors.New("index not ready")
	// ErrIndexUnavailable is returned when a build is required but the catalog cannot be read.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// State is the lifecycle state of the persisted index.
type State int

const (
	StateUninitialized State = iota
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	default:
		return "uninitialized"
	}
}

// Index builds the persisted store at most once and keeps its chunks in memory.
type Index struct {
	store       store.Store
	embedder    knowledge.Embedder
	catalogPath string
	logger      *slog.Logger

	// mu guards the whole check, build and load sequence.
	mu     sync.RWMutex
	chunks []knowledge.Chunk
	ready  bool
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Index) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// New creates an Index over s. catalogPath is read only when a build is needed.
func New(s store.Store, embedder knowledge.Embedder, catalogPath string, opts ...Option) *Index {
	x := &Index{
		store:       s,
		embedder:    embedder,
		catalogPath: catalogPath,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// EnsureReady builds the store if it is empty and loads every chunk into memory.
// Concurrent callers wait for a single build.
func (x *Index) EnsureReady(ctx context.Context) error {
	x.mu.RLock()
	ready := x.ready
	x.mu.RUnlock()
	if ready {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.ready {
		return nil
	}

	n, err := x.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}

	if n == 0 {
		x.logger.Info("index is empty, building", "catalog", x.catalogPath)
		if err := x.build(ctx); err != nil {
			return err
		}
	}

	return x.load(ctx)
}

// Rebuild replaces every persisted chunk with records zipped with embeddings
// and reloads the in-memory collection. An empty record set is rejected with
// ErrIndexUnavailable and leaves the current index untouched.
func (x *Index) Rebuild(ctx context.Context, records []catalog.Record, embeddings [][]float32) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: no records to index", ErrIndexUnavailable)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.rebuild(ctx, records, embeddings); err != nil {
		return err
	}
	return x.load(ctx)
}

// Reindex reads and embeds the catalog again regardless of what is persisted.
func (x *Index) Reindex(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.logger.Info("reindexing", "catalog", x.catalogPath)
	if err := x.build(ctx); err != nil {
		return err
	}
	return x.load(ctx)
}

// LoadedChunks returns the in-memory collection. Callers must not modify it.
func (x *Index) LoadedChunks() ([]knowledge.Chunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, ErrNotReady
	}
	return x.chunks, nil
}

// State reports the persisted state and chunk count. Uninitialized means the
// store could not be queried.
func (x *Index) State(ctx context.Context) (State, int, error) {
	x.mu.RLock()
	if x.ready && len(x.chunks) > 0 {
		n := len(x.chunks)
		x.mu.RUnlock()
		return StatePopulated, n, nil
	}
	x.mu.RUnlock()

	n, err := x.store.Count(ctx)
	if err != nil {
		return StateUninitialized, 0, fmt.Errorf("failed to check index: %w", err)
	}
	if n == 0 {
		return StateEmpty, 0, nil
	}
	return StatePopulated, n, nil
}

// build must be called with mu held.
func (x *Index) build(ctx context.Context) error {
	start := time.Now()

	records, err := catalog.Read(x.catalogPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: catalog %s has no records", ErrIndexUnavailable, x.catalogPath)
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}

	embeddings, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed catalog: %w", err)
	}

	if err := x.rebuild(ctx, records, embeddings); err != nil {
		return err
	}

	x.logger.Info("index built", "records", len(records), "elapsed", time.Since(start))
	return nil
}

// rebuild must be called with mu held.
func (x *Index) rebuild(ctx context.Context, records []catalog.Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("%w: %d records, %d embeddings", ErrDimensionMismatch, len(records), len(embeddings))
	}

	chunks := make([]knowledge.Chunk, len(records))
	for i, rec := range records {
		if len(embeddings[i]) == 0 || len(embeddings[i]) != len(embeddings[0]) {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(embeddings[i]), len(embeddings[0]))
		}
		chunks[i] = knowledge.NewChunk(i, rec, embeddings[i])
	}

	// A failed replace leaves the index not ready.
	x.ready = false
	x.chunks = nil

	if err := x.store.Replace(ctx, chunks); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	x.logger.Info("index rebuilt", "chunks", len(chunks))
	return nil
}

// load must be called with mu held.
func (x *Index) load(ctx context.Context) error {
	chunks, err := x.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	x.chunks = chunks
	x.ready = true
	x.logger.Info("index loaded", "chunks", len(chunks))
	return nil
}
