package main

import (
	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/pipeline"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/settings"
)

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse matches handlers.SuccessResponse.
type SuccessResponse struct {
	Message string `json:"message"`
}

// BatchStatus matches batch.Status.
type BatchStatus = batch.Status

// HistoryEntry matches session.HistoryEntry.
type HistoryEntry = session.HistoryEntry

// Artifact matches export.Artifact.
type Artifact = export.Artifact

// KeyStatus matches settings.Status.
type KeyStatus = settings.Status

// Latest matches pipeline.Latest.
type Latest = pipeline.Latest

// StartBatchRequest matches handlers.StartBatchRequest.
type StartBatchRequest struct {
	Prompts []string `json:"prompts"`
}

// APIKeyRequest matches handlers.APIKeyRequest.
type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// TestKeyResponse matches handlers.TestKeyResponse.
type TestKeyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CheckOverviewRequest matches handlers.CheckOverviewRequest.
type CheckOverviewRequest struct {
	Query     string `json:"query"`
	UseAIMode bool   `json:"useAIMode"`
}

// CheckOverviewResponse matches handlers.CheckOverviewResponse.
type CheckOverviewResponse struct {
	Query         string `json:"query"`
	HasAIOverview bool   `json:"hasAIOverview"`
}

// SearchBatchRequest matches handlers.SearchBatchRequest.
type SearchBatchRequest struct {
	Queries   []string `json:"queries"`
	UseAIMode bool     `json:"useAIMode"`
	Publish   bool     `json:"publish"`
}

// SearchBatchResponse matches handlers.SearchBatchResponse.
type SearchBatchResponse struct {
	Results  []overview.QueryReport `json:"results"`
	Artifact *Artifact              `json:"artifact,omitempty"`
}
