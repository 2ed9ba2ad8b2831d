package store

import (
	"context"

	"github.com/barekit/cinerag/pkg/knowledge"
)

// Store is durable storage for the indexed chunks.
type Store interface {
	// Count returns the number of persisted chunks.
	Count(ctx context.Context) (int, error)
	// Replace deletes every persisted chunk and inserts chunks in their place.
	Replace(ctx context.Context, chunks []knowledge.Chunk) error
	// LoadAll returns every persisted chunk ordered by catalog ordinal.
	LoadAll(ctx context.Context) ([]knowledge.Chunk, error)
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
