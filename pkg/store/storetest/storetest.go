// Package storetest holds a behavioural test suite shared by every store backend.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/barekit/cinerag/pkg/knowledge"
)

// Store mirrors store.Store so backends can be tested without an import cycle.
type Store interface {
	Count(ctx context.Context) (int, error)
	Replace(ctx context.Context, chunks []knowledge.Chunk) error
	LoadAll(ctx context.Context) ([]knowledge.Chunk, error)
	Close(ctx context.Context) error
}

// Chunks builds n chunks with distinct fields and dim-length embeddings.
// Non-ASCII text is included to catch encoding issues in backends.
func Chunks(n, dim int) []knowledge.Chunk {
	chunks := make([]knowledge.Chunk, n)
	for i := range chunks {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i+1)*0.25 - float32(j)*0.125
		}
		movieID := fmt.Sprintf("%d", 100+i)
		chunks[i] = knowledge.Chunk{
			ID:          knowledge.ChunkID(movieID, i),
			Ordinal:     i,
			MovieID:     movieID,
			Title:       fmt.Sprintf("Movie %d Amélie ちひろ", i),
			Overview:    fmt.Sprintf("Overview %d", i),
			Genres:      "Drama, Comedy",
			ReleaseDate: "2020-01-01",
			Runtime:     "100",
			Credits:     "Director X",
			Text:        fmt.Sprintf(`{"title": "Movie %d"}`, i),
			Embedding:   vec,
		}
	}
	return chunks
}

// Run exercises s. The store must start empty; Run leaves it empty.
func Run(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Cleanup(func() {
		_ = s.Replace(ctx, nil)
	})

	t.Run("starts empty", func(t *testing.T) {
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Fatalf("Expected empty store, got %d chunks", n)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		want := Chunks(5, 8)
		if err := s.Replace(ctx, want); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != len(want) {
			t.Fatalf("Expected %d chunks, got %d", len(want), n)
		}

		got, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		AssertEqual(t, want, got)
	})

	t.Run("replace is wholesale", func(t *testing.T) {
		if err := s.Replace(ctx, Chunks(6, 4)); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		smaller := Chunks(2, 4)
		smaller[0].Title = "Replaced"
		if err := s.Replace(ctx, smaller); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}

		got, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		AssertEqual(t, smaller, got)
	})

	t.Run("replace with nothing empties", func(t *testing.T) {
		if err := s.Replace(ctx, nil); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected empty store, got %d chunks", n)
		}
	})
}

// AssertEqual fails t unless got matches want field by field, in order.
func AssertEqual(t *testing.T, want, got []knowledge.Chunk) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ID != w.ID || g.Ordinal != w.Ordinal || g.MovieID != w.MovieID ||
			g.Title != w.Title || g.Overview != w.Overview || g.Genres != w.Genres ||
			g.ReleaseDate != w.ReleaseDate || g.Runtime != w.Runtime ||
			g.Credits != w.Credits || g.Text != w.Text {
			t.Errorf("Chunk %d mismatch:\n got: %+v\nwant: %+v", i, g, w)
			continue
		}
		if len(g.Embedding) != len(w.Embedding) {
			t.Errorf("Chunk %d: expected %d dimensions, got %d", i, len(w.Embedding), len(g.Embedding))
			continue
		}
		for j := range w.Embedding {
			if g.Embedding[j] != w.Embedding[j] {
				t.Errorf("Chunk %d: embedding[%d] = %v, want %v", i, j, g.Embedding[j], w.Embedding[j])
				break
			}
		}
	}
}
