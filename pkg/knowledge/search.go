package knowledge

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when a candidate vector length differs from the query.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// epsilon keeps normalization finite for zero vectors.
const epsilon = 1e-8

// Match is a chunk ranked by similarity to a query.
type Match struct {
	Chunk *Chunk
	Score float32
}

// Search ranks chunks by cosine similarity to query and returns at most topK matches,
// highest score first. Equal scores keep the order of chunks.
// Chunks are never modified; matches point into the given slice.
func Search(query []float32, chunks []Chunk, topK int) ([]Match, error) {
	if len(chunks) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	qNorm := norm(query)
	matches := make([]Match, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, query has %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), len(query))
		}
		matches[i] = Match{Chunk: c, Score: cosine(query, qNorm, c.Embedding)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, norm(a), b)
}

func cosine(q []float32, qNorm float64, c []float32) float32 {
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(c[i])
	}
	return float32(dot / ((qNorm + epsilon) * (norm(c) + epsilon)))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
