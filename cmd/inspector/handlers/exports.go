package handlers

import (
	"net/http"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// ExportsHandler lists published exports.
type ExportsHandler struct {
	publisher Publisher
	logger    logger.Logger
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(publisher Publisher, log logger.Logger) *ExportsHandler {
	return &ExportsHandler{publisher: publisher, logger: log}
}

// List handles GET /api/v1/exports.
func (h *ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	arts, err := h.publisher.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list exports", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	respondJSON(w, http.StatusOK, arts)
}
