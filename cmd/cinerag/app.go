package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/barekit/cinerag/internal/api/handlers"
	"github.com/barekit/cinerag/internal/api/middleware"
	"github.com/barekit/cinerag/internal/config"
	"github.com/barekit/cinerag/pkg/index"
	"github.com/barekit/cinerag/pkg/knowledge"
	"github.com/barekit/cinerag/pkg/knowledge/cache"
	embedopenai "github.com/barekit/cinerag/pkg/knowledge/openai"
	llmopenai "github.com/barekit/cinerag/pkg/llm/openai"
	"github.com/barekit/cinerag/pkg/rag"
	"github.com/barekit/cinerag/pkg/store"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 120 * time.Second
	idleTimeout  = 60 * time.Second
)

// App holds all service dependencies and coordinates startup and shutdown.
type App struct {
	cfg     *config.Config
	store   store.Store
	index   *index.Index
	service *rag.Service
	server  *http.Server
}

// NewApp opens the store and wires the gateways, index and service.
// Nothing is embedded until the index is first needed.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.New(ctx, store.Config{
		Type:             store.Type(cfg.StoreType),
		ConnectionString: cfg.StoreDSN,
		Username:         cfg.StoreUsername,
		Password:         cfg.StorePassword,
		DBName:           cfg.StoreDBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreType, err)
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	embedder := embedopenai.NewEmbedder(
		embedopenai.WithRequestOptions(requestOpts...),
		embedopenai.WithModel(cfg.EmbeddingModel),
		embedopenai.WithBatchSize(cfg.EmbeddingBatchSize),
		embedopenai.WithRateLimit(cfg.EmbeddingRateLimit),
	)

	var queryEmbedder knowledge.Embedder = embedder
	if cfg.QueryCacheSize > 0 {
		cached, err := cache.New(embedder, cfg.QueryCacheSize)
		if err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		queryEmbedder = cached
	}

	provider := llmopenai.New(requestOpts...)
	provider.SetModel(cfg.ChatModel)

	idx := index.New(st, embedder, cfg.CatalogPath)
	service := rag.New(idx, queryEmbedder, provider, rag.WithTopK(cfg.TopK))

	app := &App{
		cfg:     cfg,
		store:   st,
		index:   idx,
		service: service,
	}
	app.server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(handlers.NewChatHandler(service), handlers.NewHealthHandler(idx), cfg.MaxRequestBodyBytes),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	slog.Info("Application initialized",
		"store", cfg.StoreType,
		"catalog", cfg.CatalogPath,
		"embedding_model", cfg.EmbeddingModel,
		"chat_model", cfg.ChatModel,
		"top_k", cfg.TopK,
	)

	return app, nil
}

// newHandler builds the routes and wraps them in the middleware chain.
func newHandler(chat *handlers.ChatHandler, health *handlers.HealthHandler, maxBody int64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", chat.Chat)
	mux.HandleFunc("GET /health", health.Check)

	var handler http.Handler = mux
	handler = middleware.MaxBody(maxBody)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the server, then closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if closeErr := a.store.Close(ctx); closeErr != nil {
			slog.Error("store close during server shutdown", "error", closeErr)
		}
		return fmt.Errorf("server shutdown: %w", err)
	}

	return a.Close(ctx)
}

// Close releases the store. Used by commands that never start the server.
func (a *App) Close(ctx context.Context) error {
	if err := a.store.Close(ctx); err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}
