package overview

import (
	"context"
	"net/url"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

const searchBase = "https://www.google.com/search"

// Tab is a page opened for a single check.
type Tab interface {
	DOM
	Close() error
}

// TabOpener opens url in a background tab.
type TabOpener interface {
	OpenBackground(ctx context.Context, url string) (Tab, error)
}

// Checker answers whether the search engine shows an AI overview for a
// query by loading the result page out of sight.
type Checker struct {
	opener   TabOpener
	detector *Detector
	wait     time.Duration
	logger   logger.Logger
}

// NewChecker creates a checker that waits for wait after opening a tab.
func NewChecker(opener TabOpener, detector *Detector, wait time.Duration, log logger.Logger) *Checker {
	return &Checker{
		opener:   opener,
		detector: detector,
		wait:     wait,
		logger:   logger.Component(log, "overview_checker"),
	}
}

// SearchURL builds the result page URL for query.
func SearchURL(query string, aiMode bool) string {
	v := url.Values{}
	if aiMode {
		v.Set("udm", "50")
	}
	v.Set("q", query)
	return searchBase + "?" + v.Encode()
}

// Check loads the result page for query and runs the detector. Any failure
// counts as no overview.
func (c *Checker) Check(ctx context.Context, query string, aiMode bool) bool {
	target := SearchURL(query, aiMode)
	tab, err := c.opener.OpenBackground(ctx, target)
	if err != nil {
		c.logger.Warn(ctx, "failed to open search tab", map[string]interface{}{
			"url":   target,
			"error": err.Error(),
		})
		return false
	}
	defer func() {
		if err := tab.Close(); err != nil {
			c.logger.Debug(ctx, "failed to close search tab", map[string]interface{}{"error": err.Error()})
		}
	}()

	timer := time.NewTimer(c.wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
	}

	found, reason := c.detector.Detect(ctx, tab)
	c.logger.Debug(ctx, "overview check", map[string]interface{}{
		"query":  query,
		"found":  found,
		"reason": reason,
	})
	return found
}
