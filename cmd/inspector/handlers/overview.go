package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/pipeline"
)

// OverviewChecker reports whether a query shows an AI overview.
type OverviewChecker interface {
	Check(ctx context.Context, query string, aiMode bool) bool
}

// SearchBatchRunner runs a search batch.
type SearchBatchRunner interface {
	Run(ctx context.Context, queries []string, aiMode bool) ([]overview.QueryReport, error)
}

// LatestSource exposes what the panel currently shows.
type LatestSource interface {
	Latest() pipeline.Latest
}

// CheckOverviewRequest asks for a single overview check.
type CheckOverviewRequest struct {
	Query     string `json:"query"`
	UseAIMode bool   `json:"useAIMode"`
}

// CheckOverviewResponse is the answer to a single check.
type CheckOverviewResponse struct {
	Query         string `json:"query"`
	HasAIOverview bool   `json:"hasAIOverview"`
}

// SearchBatchRequest lists queries as an array or one per line.
type SearchBatchRequest struct {
	Queries   []string `json:"queries"`
	Text      string   `json:"text"`
	UseAIMode bool     `json:"useAIMode"`
	Publish   bool     `json:"publish"`
}

// SearchBatchResponse carries the reports and, when published, the
// stored export.
type SearchBatchResponse struct {
	Results  []overview.QueryReport `json:"results"`
	Artifact *export.Artifact       `json:"artifact,omitempty"`
}

// OverviewHandler handles search-engine requests.
type OverviewHandler struct {
	checker   OverviewChecker
	runner    SearchBatchRunner
	latest    LatestSource
	publisher Publisher
	logger    logger.Logger
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(checker OverviewChecker, runner SearchBatchRunner, latest LatestSource, publisher Publisher, log logger.Logger) *OverviewHandler {
	return &OverviewHandler{
		checker:   checker,
		runner:    runner,
		latest:    latest,
		publisher: publisher,
		logger:    log,
	}
}

// Check handles POST /api/v1/overview/check.
func (h *OverviewHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckOverviewRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	respondJSON(w, http.StatusOK, CheckOverviewResponse{
		Query:         query,
		HasAIOverview: h.checker.Check(r.Context(), query, req.UseAIMode),
	})
}

// SearchBatch handles POST /api/v1/search-batch. It blocks until every
// query was processed.
func (h *OverviewHandler) SearchBatch(w http.ResponseWriter, r *http.Request) {
	var req SearchBatchRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	queries := append([]string(nil), req.Queries...)
	if req.Text != "" {
		queries = append(queries, strings.Split(req.Text, "\n")...)
	}

	reports, err := h.runner.Run(r.Context(), queries, req.UseAIMode)
	if err != nil {
		switch {
		case errors.Is(err, overview.ErrNoQueries):
			respondError(w, http.StatusBadRequest, "please enter at least one query")
		case errors.Is(err, grounding.ErrNoAPIKey):
			respondError(w, http.StatusPreconditionFailed, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "search batch failed")
		}
		return
	}

	if wantsCSV(r) {
		respondCSV(w, exportName("google-ai-queries", time.Now()), export.SearchCSV(reports))
		return
	}

	resp := SearchBatchResponse{Results: reports}
	if req.Publish {
		art, err := h.publisher.Publish(r.Context(), "google-ai-queries", export.SearchCSV(reports))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to publish export")
			return
		}
		resp.Artifact = &art
	}
	respondJSON(w, http.StatusOK, resp)
}

// Latest handles GET /api/v1/latest.
func (h *OverviewHandler) Latest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.latest.Latest())
}
