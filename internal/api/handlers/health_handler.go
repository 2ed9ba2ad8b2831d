package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/barekit/cinerag/internal/api/response"
	"github.com/barekit/cinerag/pkg/index"
)

// IndexStater reports the state of the persisted index.
type IndexStater interface {
	State(ctx context.Context) (index.State, int, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	index IndexStater
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(index IndexStater) *HealthHandler {
	return &HealthHandler{index: index}
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Index  string `json:"index"`
	Chunks int    `json:"chunks"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	state, n, err := h.index.State(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to check index state", "error", err)
		response.RespondServiceUnavailable(w, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Index:  state.String(),
		Chunks: n,
	})
}
