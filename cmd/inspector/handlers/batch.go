package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// BatchController is the batch orchestrator as seen by the API.
type BatchController interface {
	Start(ctx context.Context, prompts []string) (batch.Status, error)
	Stop(ctx context.Context) (batch.Status, error)
	Clear(ctx context.Context) error
	Snapshot() batch.Status
}

// Publisher stores rendered exports.
type Publisher interface {
	Publish(ctx context.Context, kind string, data []byte) (export.Artifact, error)
	List(ctx context.Context) ([]export.Artifact, error)
}

// StartBatchRequest accepts prompts as a list or as one prompt per line.
type StartBatchRequest struct {
	Prompts []string `json:"prompts"`
	Text    string   `json:"text"`
}

// BatchHandler handles batch run requests.
type BatchHandler struct {
	orch      BatchController
	publisher Publisher
	logger    logger.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(orch BatchController, publisher Publisher, log logger.Logger) *BatchHandler {
	return &BatchHandler{orch: orch, publisher: publisher, logger: log}
}

// Start handles POST /api/v1/batch.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartBatchRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompts := append([]string(nil), req.Prompts...)
	if req.Text != "" {
		prompts = append(prompts, strings.Split(req.Text, "\n")...)
	}

	status, err := h.orch.Start(r.Context(), prompts)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrNoPrompts):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, batch.ErrBatchRunning):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to start batch")
		}
		return
	}
	respondJSON(w, http.StatusAccepted, status)
}

// Stop handles POST /api/v1/batch/stop.
func (h *BatchHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status, err := h.orch.Stop(r.Context())
	if err != nil {
		if errors.Is(err, batch.ErrNotRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to stop batch")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Clear handles DELETE /api/v1/batch.
func (h *BatchHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Clear(r.Context()); err != nil {
		if errors.Is(err, batch.ErrBatchRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error(r.Context(), "failed to clear batch", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to clear batch")
		return
	}
	respondSuccess(w, "batch cleared")
}

// Status handles GET /api/v1/batch. ?format=csv downloads the results.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.orch.Snapshot()
	if wantsCSV(r) {
		if status.Run == nil {
			respondError(w, http.StatusNotFound, "no batch results")
			return
		}
		respondCSV(w, exportName("chatgpt-batch", time.Now()), export.BatchCSV(status.Run))
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Export handles POST /api/v1/batch/export, publishing the results to
// storage.
func (h *BatchHandler) Export(w http.ResponseWriter, r *http.Request) {
	status := h.orch.Snapshot()
	if status.Run == nil {
		respondError(w, http.StatusNotFound, "no batch results")
		return
	}
	art, err := h.publisher.Publish(r.Context(), "chatgpt-batch", export.BatchCSV(status.Run))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to publish export")
		return
	}
	respondJSON(w, http.StatusCreated, art)
}
