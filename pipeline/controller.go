package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
)

// Source labels recorded in history.
const (
	SourceChat   = "ChatGPT"
	SourceSearch = "Google AI"
)

// EventSink receives chat events, normally the batch orchestrator.
type EventSink interface {
	HandleEvent(ctx context.Context, ev *capture.Event) bool
}

// OverviewChecker answers checkGoogleAIOverview commands.
type OverviewChecker interface {
	Check(ctx context.Context, query string, aiMode bool) bool
}

// OverviewResult is the answer to the most recent overview check.
type OverviewResult struct {
	Query         string    `json:"query"`
	UseAIMode     bool      `json:"useAIMode"`
	HasAIOverview bool      `json:"hasAIOverview"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// Latest is what the panel shows: the newest chat event and search display.
type Latest struct {
	Event    *capture.Event         `json:"event,omitempty"`
	Search   *capture.SearchDisplay `json:"search,omitempty"`
	Overview *OverviewResult        `json:"overview,omitempty"`

	// OptionsRequestedAt is when the page side last asked for the settings
	// surface. Clients polling Latest open it when this moves.
	OptionsRequestedAt *time.Time `json:"optionsRequestedAt,omitempty"`
}

// Controller is the controller-side bridge handler. It feeds the batch
// orchestrator, records history and keeps the latest display state.
type Controller struct {
	events  EventSink
	state   *session.State
	checker OverviewChecker
	logger  logger.Logger

	mu     sync.RWMutex
	latest Latest
}

// NewController creates a controller. checker may be nil when the search
// engine side is disabled.
func NewController(events EventSink, state *session.State, checker OverviewChecker, log logger.Logger) *Controller {
	return &Controller{
		events:  events,
		state:   state,
		checker: checker,
		logger:  logger.Component(log, "controller"),
	}
}

// Latest returns the current display state.
func (c *Controller) Latest() Latest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Handle dispatches one verified bridge message.
func (c *Controller) Handle(ctx context.Context, msg bridge.Message) {
	switch msg.Type {
	case bridge.TypeData:
		ev, err := msg.Event()
		if err != nil {
			c.logger.Warn(ctx, "undecodable event message", map[string]interface{}{"error": err.Error()})
			return
		}
		c.handleEvent(ctx, ev)

	case bridge.TypeQueries:
		ev := capture.NewEvent()
		ev.Queries = append(ev.Queries, msg.Queries...)
		c.handleEvent(ctx, ev)

	case bridge.TypeSearchData:
		display, err := msg.SearchDisplay()
		if err != nil {
			c.logger.Warn(ctx, "undecodable search message", map[string]interface{}{"error": err.Error()})
			return
		}
		c.handleSearch(ctx, display)

	case bridge.TypeOpenOptions:
		at := time.Now().UTC()
		c.mu.Lock()
		c.latest.OptionsRequestedAt = &at
		c.mu.Unlock()
		c.logger.Info(ctx, "settings surface requested", nil)

	case bridge.TypeCheckOverview:
		c.handleOverviewCheck(ctx, msg.Query, msg.UseAIMode)
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev *capture.Event) {
	if ev.Empty() {
		return
	}

	c.mu.Lock()
	c.latest.Event = ev
	c.mu.Unlock()

	if c.events != nil {
		c.events.HandleEvent(ctx, ev)
	}

	if len(ev.Queries) == 0 {
		return
	}
	err := c.state.AppendHistory(ctx, session.HistoryEntry{
		Source:  SourceChat,
		Queries: ev.Queries,
		Event:   ev,
	})
	if err != nil {
		c.logger.Error(ctx, "failed to record history", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Controller) handleSearch(ctx context.Context, d *capture.SearchDisplay) {
	c.mu.Lock()
	c.latest.Search = d
	c.mu.Unlock()

	if d.Pending() {
		return
	}

	source := d.Source
	if source == "" {
		source = SourceSearch
	}
	err := c.state.AppendHistory(ctx, session.HistoryEntry{
		Timestamp:     d.Timestamp,
		Source:        source,
		Queries:       d.Queries,
		OriginalQuery: d.OriginalQuery,
		Mode:          d.Mode,
		Error:         d.Error,
	})
	if err != nil {
		c.logger.Error(ctx, "failed to record history", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Controller) handleOverviewCheck(ctx context.Context, query string, aiMode bool) {
	if c.checker == nil || query == "" {
		c.logger.Warn(ctx, "overview check unavailable", map[string]interface{}{"query": query})
		return
	}

	has := c.checker.Check(ctx, query, aiMode)
	c.mu.Lock()
	c.latest.Overview = &OverviewResult{
		Query:         query,
		UseAIMode:     aiMode,
		HasAIOverview: has,
		CheckedAt:     time.Now().UTC(),
	}
	c.mu.Unlock()

	c.logger.Info(ctx, "overview check finished", map[string]interface{}{
		"query":           query,
		"has_ai_overview": has,
	})
}
