package gorm

import (
	"context"
	"fmt"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store/consts"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 100

// Store implements store.Store using GORM.
type Store struct {
	db *gorm.DB
}

// ChunkModel represents the database schema for an indexed chunk.
type ChunkModel struct {
	ID          string `gorm:"primaryKey;size:191"`
	Ordinal     int    `gorm:"index"`
	MovieID     string `gorm:"size:191"`
	Title       string
	Overview    string
	Genres      string
	ReleaseDate string
	Runtime     string
	Credits     string
	Text        string
	Embedding   []byte // little-endian float32 array
}

// TableName overrides the table name.
func (ChunkModel) TableName() string {
	return consts.TableNameMovies
}

// New creates a new Store and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ChunkModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Count returns the number of persisted chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ChunkModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}

// Replace deletes all rows and inserts chunks in a single transaction.
func (s *Store) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	models := make([]ChunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = ChunkModel{
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

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ChunkModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&models, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

// LoadAll loads every chunk ordered by ordinal.
func (s *Store) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	var models []ChunkModel
	if err := s.db.WithContext(ctx).Order(consts.ColOrdinal + " asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	chunks := make([]knowledge.Chunk, len(models))
	for i, m := range models {
		embedding, err := knowledge.DecodeEmbedding(m.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for chunk %s: %w", m.ID, err)
		}
		chunks[i] = knowledge.Chunk{
			ID:          m.ID,
			Ordinal:     m.Ordinal,
			MovieID:     m.MovieID,
			Title:       m.Title,
			Overview:    m.Overview,
			Genres:      m.Genres,
			ReleaseDate: m.ReleaseDate,
			Runtime:     m.Runtime,
			Credits:     m.Credits,
			Text:        m.Text,
			Embedding:   embedding,
		}
	}
	return chunks, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Config returns the GORM settings shared by every relational backend.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}
