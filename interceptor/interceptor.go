// Package interceptor observes responses of selected host-page calls and
// hands every decodable payload to a sink. It never alters what the page
// receives and never surfaces its own failures to the page.
package interceptor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Sink receives each decoded payload together with the URL it came from.
type Sink func(ctx context.Context, url string, payload *jsontree.Value)

// Interceptor applies one Profile.
type Interceptor struct {
	profile Profile
	sink    Sink
	logger  logger.Logger
}

// New creates an Interceptor for profile delivering to sink.
func New(profile Profile, sink Sink, log logger.Logger) *Interceptor {
	return &Interceptor{
		profile: profile,
		sink:    sink,
		logger:  logger.Component(log, "interceptor").WithField("profile", profile.Name),
	}
}

// Profile returns the profile this interceptor applies.
func (i *Interceptor) Profile() Profile {
	return i.profile
}

// Matches reports whether calls to url should be inspected.
func (i *Interceptor) Matches(url string) bool {
	if url == "" {
		return false
	}
	for _, p := range i.profile.URLPatterns {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

func (i *Interceptor) hasMarker(body []byte) bool {
	for _, m := range i.profile.Markers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}

// Inspect decodes body and delivers each payload to the sink, returning how
// many were delivered. Bodies without a marker are not parsed. A body that
// is not a single JSON document is read as an event stream when the profile
// allows it; lines that fail to decode are skipped.
func (i *Interceptor) Inspect(ctx context.Context, url string, body []byte) (delivered int) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error(ctx, "recovered while inspecting response", map[string]interface{}{
				"url":   url,
				"panic": fmt.Sprint(r),
			})
		}
	}()

	if !i.hasMarker(body) {
		return 0
	}

	if v, err := jsontree.Parse(body); err == nil {
		i.sink(ctx, url, v)
		return 1
	}
	if i.profile.StreamPrefix == "" {
		i.logger.Debug(ctx, "response is not a JSON document", map[string]interface{}{
			"url": url,
		})
		return 0
	}

	prefix := []byte(i.profile.StreamPrefix)
	terminator := []byte(i.profile.StreamTerminator)
	skipped := 0
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, prefix) {
			continue
		}
		if len(terminator) > 0 && bytes.Contains(line, terminator) {
			continue
		}
		v, err := jsontree.Parse(line[len(prefix):])
		if err != nil {
			skipped++
			continue
		}
		i.sink(ctx, url, v)
		delivered++
	}

	if skipped > 0 {
		i.logger.Debug(ctx, "skipped undecodable stream lines", map[string]interface{}{
			"url":     url,
			"skipped": skipped,
		})
	}
	return delivered
}
