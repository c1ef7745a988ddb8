package handlers

import (
	"errors"
	"net/http"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// MessagePoster accepts messages for the controller side.
type MessagePoster interface {
	Verify(token string) error
	Post(msg bridge.Message) bool
}

// BridgeHandler is the HTTP ingress for scripts running in the host page.
type BridgeHandler struct {
	bridge MessagePoster
	logger logger.Logger
}

// NewBridgeHandler creates a new bridge handler.
func NewBridgeHandler(b MessagePoster, log logger.Logger) *BridgeHandler {
	return &BridgeHandler{bridge: b, logger: log}
}

// Post handles POST /bridge/messages.
func (h *BridgeHandler) Post(w http.ResponseWriter, r *http.Request) {
	var msg bridge.Message
	if err := parseJSON(r, &msg, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !msg.Type.IsValid() {
		respondError(w, http.StatusBadRequest, "unknown message type")
		return
	}
	if err := h.bridge.Verify(msg.Source); err != nil {
		h.logger.Warn(r.Context(), "rejected bridge message", map[string]interface{}{
			"type":    string(msg.Type),
			"foreign": errors.Is(err, bridge.ErrForeignSource),
		})
		respondError(w, http.StatusForbidden, "invalid source token")
		return
	}
	if !h.bridge.Post(msg) {
		respondError(w, http.StatusServiceUnavailable, "bridge queue full")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
