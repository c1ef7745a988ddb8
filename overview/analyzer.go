package overview

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

const (
	sourceSearch  = "Google Search"
	noOverviewMsg = "No AI overview detected. Try a search that triggers AI responses."
)

// Grounder runs a grounded generation call.
type Grounder interface {
	Ground(ctx context.Context, query string, aiMode bool) grounding.Result
}

// Emitter delivers a display update to the panel side.
type Emitter func(ctx context.Context, d capture.SearchDisplay)

// Analyzer reacts to result-page navigations.
type Analyzer struct {
	detector    *Detector
	dom         DOM
	grounder    Grounder
	emit        Emitter
	logger      logger.Logger
	detectDelay time.Duration
	now         func() time.Time

	mu      sync.Mutex
	lastURL string
}

// NewAnalyzer creates an analyzer reading dom after each new search.
func NewAnalyzer(detector *Detector, dom DOM, grounder Grounder, emit Emitter, detectDelay time.Duration, log logger.Logger) *Analyzer {
	return &Analyzer{
		detector:    detector,
		dom:         dom,
		grounder:    grounder,
		emit:        emit,
		logger:      logger.Component(log, "overview"),
		detectDelay: detectDelay,
		now:         time.Now,
	}
}

// IsAIMode reports whether rawURL is an AI-mode result page.
func IsAIMode(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Query().Get("udm") == "50"
}

// HandleURL processes a result page URL. It returns false when the URL has
// no query or was already handled.
func (a *Analyzer) HandleURL(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	query := u.Query().Get("q")
	if query == "" {
		return false
	}

	a.mu.Lock()
	if rawURL == a.lastURL {
		a.mu.Unlock()
		return false
	}
	a.lastURL = rawURL
	a.mu.Unlock()

	a.logger.Debug(ctx, "new search detected", map[string]interface{}{"query": query})
	a.emit(ctx, capture.SearchDisplay{
		Queries:       []string{},
		Status:        capture.StatusDetecting,
		StatusText:    "Detecting AI content...",
		Source:        sourceSearch,
		OriginalQuery: query,
		Timestamp:     a.now().UTC(),
	})

	timer := time.NewTimer(a.detectDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return true
	case <-timer.C:
	}

	aiMode := IsAIMode(rawURL)
	found, reason := a.detector.Detect(ctx, a.dom)
	if !found && !aiMode {
		a.emit(ctx, capture.SearchDisplay{
			Queries:       []string{},
			StatusText:    noOverviewMsg,
			Source:        sourceSearch,
			Mode:          capture.ModeNoAI,
			OriginalQuery: query,
			Timestamp:     a.now().UTC(),
		})
		return true
	}

	mode := capture.ModeAIOverview
	if aiMode {
		mode = capture.ModeAIMode
	}
	a.logger.Debug(ctx, "AI content confirmed", map[string]interface{}{
		"mode":   mode,
		"reason": reason,
	})
	a.emit(ctx, capture.SearchDisplay{
		Queries:       []string{},
		Status:        capture.StatusCalling,
		StatusText:    "Calling Gemini Grounding API...",
		Source:        sourceSearch,
		Mode:          mode,
		OriginalQuery: query,
		Timestamp:     a.now().UTC(),
	})

	res := a.grounder.Ground(ctx, query, aiMode)
	a.emit(ctx, Display(res, a.now().UTC()))
	return true
}

// Display converts a grounding result into a panel update.
func Display(res grounding.Result, at time.Time) capture.SearchDisplay {
	return capture.SearchDisplay{
		Queries:       res.Queries,
		Source:        res.Source,
		Mode:          res.Mode,
		Model:         res.Model,
		OriginalQuery: res.Query,
		Citations:     res.Citations,
		Error:         res.Error,
		Timestamp:     at,
	}
}
