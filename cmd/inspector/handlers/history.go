package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
)

// HistoryStore reads and clears the query history.
type HistoryStore interface {
	History(ctx context.Context) ([]session.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// HistoryHandler handles query history requests.
type HistoryHandler struct {
	store  HistoryStore
	logger logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store HistoryStore, log logger.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: log}
}

// List handles GET /api/v1/history. ?format=csv downloads it.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.History(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to load history", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if wantsCSV(r) {
		respondCSV(w, exportName("search-queries", time.Now()), export.HistoryCSV(entries))
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Clear handles DELETE /api/v1/history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearHistory(r.Context()); err != nil {
		h.logger.Error(r.Context(), "failed to clear history", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	respondSuccess(w, "history cleared")
}
