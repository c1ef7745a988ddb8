package overview

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

var ErrNoQueries = errors.New("search batch requires at least one query")

// QueryReport is one row of a search batch.
type QueryReport struct {
	OriginalQuery string   `json:"originalQuery"`
	SearchQueries []string `json:"searchQueries"`
	HasAIOverview bool     `json:"hasAIOverview"`
	AIMode        bool     `json:"isAIMode"`
	Error         string   `json:"error,omitempty"`
}

// OverviewChecker reports AI overview presence for a query.
type OverviewChecker interface {
	Check(ctx context.Context, query string, aiMode bool) bool
}

// BatchRunner grounds a list of queries one after another and checks each
// against the live result page.
type BatchRunner struct {
	keys     grounding.KeySource
	grounder Grounder
	checker  OverviewChecker
	delay    time.Duration
	logger   logger.Logger
}

// NewBatchRunner creates a runner pausing delay between queries.
func NewBatchRunner(keys grounding.KeySource, grounder Grounder, checker OverviewChecker, delay time.Duration, log logger.Logger) *BatchRunner {
	return &BatchRunner{
		keys:     keys,
		grounder: grounder,
		checker:  checker,
		delay:    delay,
		logger:   logger.Component(log, "search_batch"),
	}
}

// Run processes queries in order. aiMode selects the result page variant
// used for the overview check; grounding always uses the overview model.
func (r *BatchRunner) Run(ctx context.Context, queries []string, aiMode bool) ([]QueryReport, error) {
	cleaned := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoQueries
	}
	if key, err := r.keys.APIKey(ctx); err != nil || key == "" {
		return nil, grounding.ErrNoAPIKey
	}

	reports := make([]QueryReport, 0, len(cleaned))
	for i, q := range cleaned {
		res := r.grounder.Ground(ctx, q, false)
		report := QueryReport{
			OriginalQuery: q,
			SearchQueries: res.Queries,
			AIMode:        aiMode,
		}
		if res.Error != "" {
			report.SearchQueries = []string{}
			report.Error = res.Error
		} else {
			report.HasAIOverview = r.checker.Check(ctx, q, aiMode)
		}
		reports = append(reports, report)

		r.logger.Info(ctx, "search batch query processed", map[string]interface{}{
			"index":           i,
			"queries":         len(report.SearchQueries),
			"has_ai_overview": report.HasAIOverview,
		})

		if i < len(cleaned)-1 {
			timer := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return reports, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return reports, nil
}
