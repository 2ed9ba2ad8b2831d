package knowledge

import (
	"context"
	"fmt"

	"github.com/barekit/cinerag/pkg/catalog"
)

// Chunk is one indexed catalog entry together with its embedding.
type Chunk struct {
	// ID is unique within the index: "{movie_id}_{ordinal}".
	ID string `json:"id"`
	// Ordinal is the row position of the record in the catalog.
	Ordinal     int       `json:"ordinal"`
	MovieID     string    `json:"movie_id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	Genres      string    `json:"genres"`
	ReleaseDate string    `json:"release_date"`
	Runtime     string    `json:"runtime"`
	Credits     string    `json:"credits"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding"`
}

// ChunkID derives the stable chunk key for the record at the given catalog row.
func ChunkID(movieID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", movieID, ordinal)
}

// NewChunk builds the chunk for the record at the given catalog row.
func NewChunk(ordinal int, rec catalog.Record, embedding []float32) Chunk {
	return Chunk{
		ID:          ChunkID(rec.ID, ordinal),
		Ordinal:     ordinal,
		MovieID:     rec.ID,
		Title:       rec.Title,
		Overview:    rec.Overview,
		Genres:      rec.Genres,
		ReleaseDate: rec.ReleaseDate,
		Runtime:     rec.Runtime,
		Credits:     rec.Credits,
		Text:        rec.Text,
		Embedding:   embedding,
	}
}

// Embedder is the interface for generating embeddings.
// Implementations return exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}
