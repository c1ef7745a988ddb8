package hostpage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/interceptor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Hijacker replays matching page requests through an interceptor
// transport instead of reading bodies back from the browser. Responses
// are buffered before the page sees them, so streamed answers arrive in
// one piece.
type Hijacker struct {
	router *rod.HijackRouter
	logger logger.Logger
}

// Hijack routes requests whose URL matches the transport's profile
// through it.
func Hijack(ctx context.Context, p *Page, transport *interceptor.Transport, log logger.Logger) (*Hijacker, error) {
	log = logger.Component(log, "hijack")
	client := &http.Client{Transport: transport}
	router := p.with(ctx).HijackRequests()

	for _, pattern := range HijackPatterns(transport.Interceptor.Profile()) {
		err := router.Add(pattern, proto.NetworkResourceTypeFetch, func(h *rod.Hijack) {
			if err := h.LoadResponse(client, true); err != nil {
				log.Warn(h.Request.Req().Context(), "hijacked request failed", map[string]interface{}{
					"url":   h.Request.URL().String(),
					"error": err.Error(),
				})
				h.Response.Fail(proto.NetworkErrorReasonFailed)
			}
		})
		if err != nil {
			_ = router.Stop()
			return nil, fmt.Errorf("failed to add hijack route %q: %w", pattern, err)
		}
	}

	go router.Run()
	return &Hijacker{router: router, logger: log}, nil
}

// Stop removes the routes.
func (h *Hijacker) Stop() error {
	return h.router.Stop()
}

// HijackPatterns turns profile URL substrings into browser glob patterns.
func HijackPatterns(p interceptor.Profile) []string {
	patterns := make([]string, 0, len(p.URLPatterns))
	for _, s := range p.URLPatterns {
		s = strings.Trim(s, "*")
		if s == "" {
			continue
		}
		patterns = append(patterns, "*"+s+"*")
	}
	return patterns
}
