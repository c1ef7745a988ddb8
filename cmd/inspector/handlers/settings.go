package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/settings"
)

// KeyManager stores the Gemini API key.
type KeyManager interface {
	APIKey(ctx context.Context) (string, error)
	SetAPIKey(ctx context.Context, key string) error
	ClearAPIKey(ctx context.Context) error
	Status(ctx context.Context) (settings.Status, error)
}

// KeyTester makes a trial call with a key.
type KeyTester interface {
	TestKey(ctx context.Context, key string) error
}

// APIKeyRequest carries a key to store or test.
type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// TestKeyResponse reports the result of a trial call.
type TestKeyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SettingsHandler handles API key settings.
type SettingsHandler struct {
	keys   KeyManager
	tester KeyTester
	logger logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(keys KeyManager, tester KeyTester, log logger.Logger) *SettingsHandler {
	return &SettingsHandler{keys: keys, tester: tester, logger: log}
}

// Get handles GET /api/v1/settings/apikey. The key itself is never
// returned, only its masked form.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	status, err := h.keys.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Set handles PUT /api/v1/settings/apikey.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.keys.SetAPIKey(r.Context(), req.APIKey); err != nil {
		if errors.Is(err, settings.ErrEmptyAPIKey) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to save API key")
		return
	}
	status, err := h.keys.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Delete handles DELETE /api/v1/settings/apikey.
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.ClearAPIKey(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear API key")
		return
	}
	respondSuccess(w, "API key cleared")
}

// Test handles POST /api/v1/settings/apikey/test. An empty body tests the
// stored key.
func (h *SettingsHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if r.ContentLength != 0 {
		if err := parseJSON(r, &req, h.logger); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		stored, err := h.keys.APIKey(r.Context())
		if err != nil {
			if errors.Is(err, settings.ErrNoAPIKey) {
				respondError(w, http.StatusBadRequest, "please enter an API key")
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to read API key")
			return
		}
		key = stored
	}

	if err := h.tester.TestKey(r.Context(), key); err != nil {
		respondJSON(w, http.StatusOK, TestKeyResponse{OK: false, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, TestKeyResponse{OK: true})
}
