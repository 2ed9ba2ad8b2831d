// Package rag answers questions about the movie catalog by retrieving the
// closest indexed movies and asking a language model to answer from them.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/llm"
)

const (
	DefaultTopK = 5

	DefaultInstructions = "You are a helpful assistant."

	promptTemplate = "Use the following context to answer the user's question.\n" +
		"If the answer is not in the context, say that you don't know.\n\n" +
		"Context:\n%s\n\n" +
		"Question: %s\n" +
		"Answer:"
)

// Index is the part of the index lifecycle the service needs.
type Index interface {
	EnsureReady(ctx context.Context) error
	LoadedChunks() ([]knowledge.Chunk, error)
}

// Service ties retrieval and answer synthesis together.
type Service struct {
	Instructions string
	TopK         int

	index    Index
	embedder knowledge.Embedder
	llm      llm.Provider
	logger   *slog.Logger
}

// Option is a function that configures a Service.
type Option func(*Service)

// New creates a new Service.
func New(index Index, embedder knowledge.Embedder, provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		Instructions: DefaultInstructions,
		TopK:         DefaultTopK,
		index:        index,
		embedder:     embedder,
		llm:          provider,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithTopK sets how many movies are retrieved per question.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.TopK = k
		}
	}
}

// WithInstructions sets the system instructions.
func WithInstructions(instructions string) Option {
	return func(s *Service) {
		s.Instructions = instructions
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AnswerQuestion retrieves the closest movies to question and returns the
// model's answer verbatim. Any failure aborts the whole operation.
func (s *Service) AnswerQuestion(ctx context.Context, question string) (string, error) {
	if err := s.index.EnsureReady(ctx); err != nil {
		return "", err
	}

	chunks, err := s.index.LoadedChunks()
	if err != nil {
		return "", err
	}

	query, err := knowledge.EmbedOne(ctx, s.embedder, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := knowledge.Search(query, chunks, s.TopK)
	if err != nil {
		return "", err
	}

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		titles := make([]string, len(matches))
		scores := make([]float32, len(matches))
		for i, m := range matches {
			titles[i] = m.Chunk.Title
			scores[i] = m.Score
		}
		s.logger.Debug("retrieved context", "question", question, "titles", titles, "scores", scores)
	}

	return s.synthesize(ctx, question, FormatContext(matches))
}

func (s *Service) synthesize(ctx context.Context, question, contextText string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.Instructions},
		{Role: llm.RoleUser, Content: BuildPrompt(question, contextText)},
	}

	response, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM error: %w", err)
	}
	return response.Content, nil
}

// BuildPrompt renders the user message sent to the model.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// FormatContext renders one block per match, separated by a blank line.
func FormatContext(matches []knowledge.Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = strings.Join([]string{
			"Title: " + m.Chunk.Title,
			"Genres: " + m.Chunk.Genres,
			"Release date: " + m.Chunk.ReleaseDate,
			"Runtime: " + m.Chunk.Runtime,
			"Overview: " + m.Chunk.Overview,
		}, "\n")
	}
	return strings.Join(blocks, "\n\n")
}
