// Package cache memoizes embeddings for repeated texts, such as popular questions.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/barekit/cinerag/pkg/knowledge"
)

// Embedder wraps a knowledge.Embedder with an LRU cache keyed by text.
// Concurrent misses for the same single text share one upstream call.
type Embedder struct {
	next  knowledge.Embedder
	lru   *lru.Cache[string, []float32]
	group singleflight.Group
}

// New creates a caching embedder holding at most size vectors.
func New(next knowledge.Embedder, size int) (*Embedder, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &Embedder{next: next, lru: c}, nil
}

// Embed returns cached vectors when every text is cached, otherwise embeds the misses
// in a single upstream call. Single-text misses are coalesced with singleflight.
// Returned vectors are shared with the cache and must not be modified.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 1 {
		v, err := e.embedOne(ctx, texts[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := e.lru.Get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vectors))
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		e.lru.Add(missing[j], v)
	}
	return out, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.lru.Get(text); ok {
		return v, nil
	}

	// The flight is shared, so one caller's cancellation must not fail the others.
	flightCtx := context.WithoutCancel(ctx)
	val, err, _ := e.group.Do(text, func() (any, error) {
		v, err := knowledge.EmbedOne(flightCtx, e.next, text)
		if err != nil {
			return nil, err
		}
		e.lru.Add(text, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]float32), nil
}

// Len returns the number of cached vectors.
func (e *Embedder) Len() int {
	return e.lru.Len()
}

// Purge drops every cached vector.
func (e *Embedder) Purge() {
	e.lru.Purge()
}
