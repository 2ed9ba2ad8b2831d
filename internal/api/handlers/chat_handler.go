package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/barekit/cinerag/internal/api/response"
	"github.com/barekit/cinerag/pkg/catalog"
	"github.com/barekit/cinerag/pkg/index"
	"github.com/barekit/cinerag/pkg/knowledge"
)

// Answerer answers a question about the catalog.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question string) (string, error)
}

// ChatHandler handles question answering requests.
type ChatHandler struct {
	service Answerer
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service Answerer) *ChatHandler {
	return &ChatHandler{service: service}
}

// ChatRequest is the body for POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the response for POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// Chat handles POST /chat. A blank or whitespace-only question is rejected
// with 400 before reaching the service.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		response.RespondBadRequest(w, "question is required")
		return
	}

	answer, err := h.service.AnswerQuestion(r.Context(), req.Question)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to answer question", "kind", errorKind(err), "error", err)
		response.RespondInternalServerError(w, err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}

// errorKind names the failure class for logging.
func errorKind(err error) string {
	switch {
	case errors.Is(err, catalog.ErrIngestion):
		return "ingestion"
	case errors.Is(err, index.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, index.ErrNotReady):
		return "not_ready"
	case errors.Is(err, index.ErrDimensionMismatch), errors.Is(err, knowledge.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "gateway"
	}
}
