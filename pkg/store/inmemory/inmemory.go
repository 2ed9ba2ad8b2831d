package inmemory

import (
	"context"
	"sync"

	"github.com/barekit/cinerag/pkg/knowledge"
)

// InMemory implements store.Store using a slice. Nothing survives a restart.
type InMemory struct {
	mu     sync.RWMutex
	chunks []knowledge.Chunk
}

// New creates a new InMemory store.
func New() *InMemory {
	return &InMemory{}
}

// Count returns the number of stored chunks.
func (m *InMemory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.chunks), nil
}

// Replace swaps the stored chunks for a copy of chunks.
func (m *InMemory) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	replacement := make([]knowledge.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		replacement[i] = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunks = replacement
	return nil
}

// LoadAll returns a copy of the stored chunks.
func (m *InMemory) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions if the caller modifies the slice
	result := make([]knowledge.Chunk, len(m.chunks))
	copy(result, m.chunks)

	return result, nil
}

// Close is a no-op.
func (m *InMemory) Close(ctx context.Context) error {
	return nil
}
