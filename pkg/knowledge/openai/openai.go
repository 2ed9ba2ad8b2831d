package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// MaxBatchSize is the largest number of texts sent in one embeddings request.
const MaxBatchSize = 100

// ErrCountMismatch is returned when a response does not carry one vector per input.
var ErrCountMismatch = errors.New("embedding count mismatch")

// Embedder implements knowledge.Embedder using OpenAI.
type Embedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *Embedder) {
		if model != "" {
			e.model = openai.EmbeddingModel(model)
		}
	}
}

// WithBatchSize sets how many texts go into one request, capped at MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 && n <= MaxBatchSize {
			e.batchSize = n
		}
	}
}

// WithRateLimit limits embeddings requests to perSecond calls per second.
// Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(e *Embedder) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRequestOptions passes options through to the OpenAI client.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(e *Embedder) {
		client := openai.NewClient(opts...)
		e.client = &client
	}
}

// NewEmbedder creates a new OpenAI Embedder.
func NewEmbedder(opts ...Option) *Embedder {
	client := openai.NewClient()
	e := &Embedder{
		client:    &client,
		model:     openai.EmbeddingModelTextEmbedding3Small,
		batchSize: MaxBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed generates embeddings for the given texts, one request per batch.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: e.model,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(resp.Data))
	}

	e.logger.Debug("embeddings batch", "model", e.model, "texts", len(texts), "tokens", resp.Usage.TotalTokens)

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(embeddings) || embeddings[idx] != nil {
			return nil, fmt.Errorf("%w: unexpected index %d in response", ErrCountMismatch, data.Index)
		}
		// Convert []float64 to []float32
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[idx] = vec
	}

	return embeddings, nil
}
