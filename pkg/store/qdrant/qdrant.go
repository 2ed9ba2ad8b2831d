package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store/consts"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const payloadChunkID = "chunk_id"

// QdrantStore implements store.Store on a single Qdrant collection.
// Replace drops and recreates the collection, so it is not atomic: a crash
// in between leaves an empty or partial collection behind.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
}

// New creates a new QdrantStore.
func New(host string, port int, collectionName string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if collectionName == "" {
		collectionName = consts.TableNameMovies
	}

	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
	}, nil
}

// PointID derives a stable point UUID from a chunk ID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return 0, nil
	}

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

func (s *QdrantStore) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig:  qdrant.NewVectorsConfig(vectorParams(len(chunks[0].Embedding))),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadChunkID:        qdrant.NewValueString(c.ID),
				consts.ColOrdinal:     qdrant.NewValueInt(int64(c.Ordinal)),
				consts.ColMovieID:     qdrant.NewValueString(c.MovieID),
				consts.ColTitle:       qdrant.NewValueString(c.Title),
				consts.ColOverview:    qdrant.NewValueString(c.Overview),
				consts.ColGenres:      qdrant.NewValueString(c.Genres),
				consts.ColReleaseDate: qdrant.NewValueString(c.ReleaseDate),
				consts.ColRuntime:     qdrant.NewValueString(c.Runtime),
				consts.ColCredits:     qdrant.NewValueString(c.Credits),
				consts.ColText:        qdrant.NewValueString(c.Text),
			},
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// vectorParams uses dot distance so vectors come back exactly as stored;
// cosine collections normalize them on upload.
func vectorParams(dim int) *qdrant.VectorParams {
	return &qdrant.VectorParams{
		Size:     uint64(dim),
		Distance: qdrant.Distance_Dot,
	}
}

func (s *QdrantStore) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []knowledge.Chunk{}, nil
	}

	limit := uint32(n)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collectionName,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	chunks := make([]knowledge.Chunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, chunkFromPayload(p.GetPayload(), vectorOf(p)))
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Ordinal < chunks[j].Ordinal
	})
	return chunks, nil
}

func vectorOf(p *qdrant.RetrievedPoint) []float32 {
	out := p.GetVectors().GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

func chunkFromPayload(payload map[string]*qdrant.Value, embedding []float32) knowledge.Chunk {
	str := func(key string) string {
		return payload[key].GetStringValue()
	}
	return knowledge.Chunk{
		ID:          str(payloadChunkID),
		Ordinal:     int(payload[consts.ColOrdinal].GetIntegerValue()),
		MovieID:     str(consts.ColMovieID),
		Title:       str(consts.ColTitle),
		Overview:    str(consts.ColOverview),
		Genres:      str(consts.ColGenres),
		ReleaseDate: str(consts.ColReleaseDate),
		Runtime:     str(consts.ColRuntime),
		Credits:     str(consts.ColCredits),
		Text:        str(consts.ColText),
		Embedding:   embedding,
	}
}

func (s *QdrantStore) Close(_ context.Context) error {
	return s.client.Close()
}
