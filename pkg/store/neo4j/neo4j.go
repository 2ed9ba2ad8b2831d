package neo4j

import (
	"context"
	"fmt"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store/consts"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements store.Store with one :Movie node per chunk.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jStore adapter.
func New(uri, username, password, dbName string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	return &Neo4jStore{
		driver: driver,
		dbName: dbName,
	}, nil
}

func (s *Neo4jStore) Count(ctx context.Context) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`MATCH (m:%s) RETURN count(m) AS n`, consts.LabelMovie)
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("n")
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	n, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", result)
	}
	return int(n), nil
}

// Replace detaches and deletes every :Movie node and creates the new set in one write transaction.
func (s *Neo4jStore) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	rows := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		rows[i] = map[string]any{
			consts.ColID:          c.ID,
			consts.ColOrdinal:     int64(c.Ordinal),
			consts.ColMovieID:     c.MovieID,
			consts.ColTitle:       c.Title,
			consts.ColOverview:    c.Overview,
			consts.ColGenres:      c.Genres,
			consts.ColReleaseDate: c.ReleaseDate,
			consts.ColRuntime:     c.Runtime,
			consts.ColCredits:     c.Credits,
			consts.ColText:        c.Text,
			consts.ColEmbedding:   knowledge.EncodeEmbedding(c.Embedding),
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		deleteQuery := fmt.Sprintf(`MATCH (m:%s) DETACH DELETE m`, consts.LabelMovie)
		if _, err := tx.Run(ctx, deleteQuery, nil); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}

		createQuery := fmt.Sprintf(`
		UNWIND $rows AS row
		CREATE (m:%s)
		SET m = row
		`, consts.LabelMovie)
		_, err := tx.Run(ctx, createQuery, map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}
	return nil
}

func (s *Neo4jStore) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (m:%s)
		RETURN m
		ORDER BY m.%s ASC
		`, consts.LabelMovie, consts.ColOrdinal)

		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		chunks := []knowledge.Chunk{}
		for res.Next(ctx) {
			value, _ := res.Record().Get("m")
			node, ok := value.(neo4j.Node)
			if !ok {
				return nil, fmt.Errorf("unexpected record type %T", value)
			}
			chunk, err := chunkFromProps(node.Props)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return chunks, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	return result.([]knowledge.Chunk), nil
}

func chunkFromProps(props map[string]any) (knowledge.Chunk, error) {
	str := func(key string) string {
		v, _ := props[key].(string)
		return v
	}

	ordinal, _ := props[consts.ColOrdinal].(int64)
	blob, _ := props[consts.ColEmbedding].([]byte)
	embedding, err := knowledge.DecodeEmbedding(blob)
	if err != nil {
		return knowledge.Chunk{}, fmt.Errorf("failed to decode embedding for chunk %s: %w", str(consts.ColID), err)
	}

	return knowledge.Chunk{
		ID:          str(consts.ColID),
		Ordinal:     int(ordinal),
		MovieID:     str(consts.ColMovieID),
		Title:       str(consts.ColTitle),
		Overview:    str(consts.ColOverview),
		Genres:      str(consts.ColGenres),
		ReleaseDate: str(consts.ColReleaseDate),
		Runtime:     str(consts.ColRuntime),
		Credits:     str(consts.ColCredits),
		Text:        str(consts.ColText),
		Embedding:   embedding,
	}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
