package mongo

import (
	"context"
	"fmt"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store/consts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements store.Store using a MongoDB collection.
// Replace is a DeleteMany followed by InsertMany and is not atomic on standalone servers.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ChunkDoc is the stored document shape.
type ChunkDoc struct {
	ID          string `bson:"_id"`
	Ordinal     int    `bson:"ordinal"`
	MovieID     string `bson:"movie_id"`
	Title       string `bson:"title"`
	Overview    string `bson:"overview"`
	Genres      string `bson:"genres"`
	ReleaseDate string `bson:"release_date"`
	Runtime     string `bson:"runtime"`
	Credits     string `bson:"credits"`
	Text        string `bson:"text"`
	Embedding   []byte `bson:"embedding"`
}

// New creates a new MongoStore adapter.
func New(client *mongo.Client, dbName, collectionName string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = ChunkDoc{
			ID:          c.ID,
			Ordinal:     c.Ordinal,
			MovieID:     c.MovieID,
			Title:       c.Title,
			Overview:    c.Overview,
			Genres:      c.Genres,
			ReleaseDate: c.ReleaseDate,
			Runtime:     c.Runtime,
			Credits:     c.Credits,
			Text:        c.Text,
			Embedding:   knowledge.EncodeEmbedding(c.Embedding),
		}
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		// Leave the collection empty rather than partially populated.
		if _, delErr := s.collection.DeleteMany(ctx, bson.M{}); delErr != nil {
			return fmt.Errorf("failed to insert chunks: %w (cleanup failed: %v)", err, delErr)
		}
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

func (s *MongoStore) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	opts := options.Find().SetSort(bson.M{consts.ColOrdinal: 1})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer cursor.Close(ctx)

	chunks := []knowledge.Chunk{}
	for cursor.Next(ctx) {
		var doc ChunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}

		embedding, err := knowledge.DecodeEmbedding(doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for chunk %s: %w", doc.ID, err)
		}

		chunks = append(chunks, knowledge.Chunk{
			ID:          doc.ID,
			Ordinal:     doc.Ordinal,
			MovieID:     doc.MovieID,
			Title:       doc.Title,
			Overview:    doc.Overview,
			Genres:      doc.Genres,
			ReleaseDate: doc.ReleaseDate,
			Runtime:     doc.Runtime,
			Credits:     doc.Credits,
			Text:        doc.Text,
			Embedding:   embedding,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
