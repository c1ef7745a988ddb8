package handlers

import (
	"net/http"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// OriginGuard admits browser requests only from the host pages the
// inspector drives. Requests without an Origin header (the CLI, curl) pass.
type OriginGuard struct {
	allowed map[string]bool
	logger  logger.Logger
}

// NewOriginGuard creates a guard for the given origins, e.g.
// "https://chatgpt.com".
func NewOriginGuard(origins []string, log logger.Logger) *OriginGuard {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}
	return &OriginGuard{allowed: allowed, logger: log}
}

// Allowed reports whether origin may call the API.
func (g *OriginGuard) Allowed(origin string) bool {
	return g.allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
}

// Handler wraps next with the origin check and answers CORS preflights.
func (g *OriginGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !g.Allowed(origin) {
			g.logger.Warn(r.Context(), "rejected request from foreign origin", map[string]interface{}{
				"origin": origin,
				"path":   r.URL.Path,
			})
			respondError(w, http.StatusForbidden, "origin not allowed")
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
