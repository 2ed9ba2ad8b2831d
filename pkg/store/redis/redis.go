package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/store/consts"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements store.Store using Redis.
// Each chunk is a hash under "movies:{id}"; the list "movies:ids" keeps catalog order.
type RedisStore struct {
	client *redis.Client
}

// New creates a new RedisStore.
func New(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func chunkKey(id string) string {
	return consts.KeyPrefix + id
}

// Count returns the length of the id list.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, consts.KeyIDs).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}

// Replace deletes the current chunk hashes and writes the new set in one MULTI/EXEC block.
// WATCH on the id list aborts the swap if another writer changes it concurrently.
func (s *RedisStore) Replace(ctx context.Context, chunks []knowledge.Chunk) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		oldIDs, err := tx.LRange(ctx, consts.KeyIDs, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to list chunk ids: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range oldIDs {
				pipe.Del(ctx, chunkKey(id))
			}
			pipe.Del(ctx, consts.KeyIDs)

			ids := make([]interface{}, len(chunks))
			for i, c := range chunks {
				ids[i] = c.ID
				pipe.HSet(ctx, chunkKey(c.ID), map[string]interface{}{
					consts.ColOrdinal:     c.Ordinal,
					consts.ColMovieID:     c.MovieID,
					consts.ColTitle:       c.Title,
					consts.ColOverview:    c.Overview,
					consts.ColGenres:      c.Genres,
					consts.ColReleaseDate: c.ReleaseDate,
					consts.ColRuntime:     c.Runtime,
					consts.ColCredits:     c.Credits,
					consts.ColText:        c.Text,
					consts.ColEmbedding:   knowledge.EncodeEmbedding(c.Embedding),
				})
			}
			if len(ids) > 0 {
				pipe.RPush(ctx, consts.KeyIDs, ids...)
			}
			return nil
		})
		return err
	}, consts.KeyIDs)
	if err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}
	return nil
}

// LoadAll reads the id list and fetches every hash in one pipeline.
func (s *RedisStore) LoadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	ids, err := s.client.LRange(ctx, consts.KeyIDs, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk ids: %w", err)
	}
	if len(ids) == 0 {
		return []knowledge.Chunk{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, chunkKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	chunks := make([]knowledge.Chunk, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			return nil, fmt.Errorf("chunk %s is listed but has no data", ids[i])
		}

		ordinal, err := strconv.Atoi(fields[consts.ColOrdinal])
		if err != nil {
			return nil, fmt.Errorf("invalid ordinal for chunk %s: %w", ids[i], err)
		}
		embedding, err := knowledge.DecodeEmbedding([]byte(fields[consts.ColEmbedding]))
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding for chunk %s: %w", ids[i], err)
		}

		chunks[i] = knowledge.Chunk{
			ID:          ids[i],
			Ordinal:     ordinal,
			MovieID:     fields[consts.ColMovieID],
			Title:       fields[consts.ColTitle],
			Overview:    fields[consts.ColOverview],
			Genres:      fields[consts.ColGenres],
			ReleaseDate: fields[consts.ColReleaseDate],
			Runtime:     fields[consts.ColRuntime],
			Credits:     fields[consts.ColCredits],
			Text:        fields[consts.ColText],
			Embedding:   embedding,
		}
	}
	return chunks, nil
}

// Close closes the client.
func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
