// Package batch drives a list of prompts through the chat host page one at
// a time and collects the search signals each prompt produced.
package batch

import (
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
)

// State is the lifecycle of a run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// Phase is the per-prompt step of a running batch.
type Phase string

const (
	PhaseNone              Phase = ""
	PhaseAwaitingFreshPage Phase = "awaiting_fresh_page"
	PhaseSubmittingPrompt  Phase = "submitting_prompt"
	PhaseAwaitingResponse  Phase = "awaiting_response_completion"
	PhaseAdvancing         Phase = "advancing"
	PhaseStalled           Phase = "stalled"
)

// PromptResult holds what was observed for one submitted prompt.
type PromptResult struct {
	Prompt           string                    `json:"prompt"`
	Queries          []string                  `json:"queries"`
	Scores           *capture.Scores           `json:"scores"`
	SourcesRetrieved []capture.RetrievedSource `json:"sourcesRetrieved"`
	SourcesCited     []capture.CitedSource     `json:"sourcesCited"`
	SearchTurns      *int                      `json:"searchTurns"`
	Timestamp        time.Time                 `json:"timestamp"`
}

func newPromptResult(prompt string, at time.Time) *PromptResult {
	return &PromptResult{
		Prompt:           prompt,
		Queries:          []string{},
		SourcesRetrieved: []capture.RetrievedSource{},
		SourcesCited:     []capture.CitedSource{},
		Timestamp:        at,
	}
}

// Merge folds ev into r. A populated field is replaced only by a non-empty
// incoming value; an empty incoming slice never clears what is there.
func (r *PromptResult) Merge(ev *capture.Event) {
	if ev == nil {
		return
	}
	if len(ev.Queries) > 0 {
		r.Queries = append([]string(nil), ev.Queries...)
	}
	if ev.Scores != nil {
		scores := *ev.Scores
		r.Scores = &scores
	}
	if len(ev.SourcesRetrieved) > 0 {
		r.SourcesRetrieved = append([]capture.RetrievedSource(nil), ev.SourcesRetrieved...)
	}
	if len(ev.SourcesCited) > 0 {
		r.SourcesCited = append([]capture.CitedSource(nil), ev.SourcesCited...)
	}
	if ev.SearchTurns != nil {
		turns := *ev.SearchTurns
		r.SearchTurns = &turns
	}
}

// CitedURLs lists the URL of every cited source.
func (r *PromptResult) CitedURLs() []string {
	urls := make([]string, 0, len(r.SourcesCited))
	for _, s := range r.SourcesCited {
		urls = append(urls, s.URL)
	}
	return urls
}

func (r *PromptResult) clone() *PromptResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Queries = append([]string{}, r.Queries...)
	c.SourcesRetrieved = append([]capture.RetrievedSource{}, r.SourcesRetrieved...)
	c.SourcesCited = append([]capture.CitedSource{}, r.SourcesCited...)
	if r.Scores != nil {
		scores := *r.Scores
		c.Scores = &scores
	}
	if r.SearchTurns != nil {
		turns := *r.SearchTurns
		c.SearchTurns = &turns
	}
	return &c
}

// Run is the persisted batch record. Results has one slot per prompt; a
// nil slot means that prompt has not been reached yet.
type Run struct {
	ID        string          `json:"id"`
	State     State           `json:"state"`
	Running   bool            `json:"running"`
	Prompts   []string        `json:"prompts"`
	Results   []*PromptResult `json:"results"`
	Index     int             `json:"currentIndex"`
	StartedAt time.Time       `json:"startedAt"`

	// Outstanding is set while the prompt at Index-1 may still be answered.
	Outstanding bool `json:"outstanding"`
}

func newRun(id string, prompts []string, at time.Time) *Run {
	return &Run{
		ID:        id,
		State:     StateRunning,
		Running:   true,
		Prompts:   append([]string(nil), prompts...),
		Results:   make([]*PromptResult, len(prompts)),
		StartedAt: at,
	}
}

// Remaining reports whether prompts are left to submit.
func (r *Run) Remaining() bool {
	return r.Index < len(r.Prompts)
}

// Collected returns the non-nil results in prompt order.
func (r *Run) Collected() []*PromptResult {
	out := make([]*PromptResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// normalize repairs a run loaded from storage so indexing is safe.
func (r *Run) normalize() {
	if len(r.Results) < len(r.Prompts) {
		r.Results = append(r.Results, make([]*PromptResult, len(r.Prompts)-len(r.Results))...)
	}
	if r.Index < 0 {
		r.Index = 0
	}
	if r.Index > len(r.Prompts) {
		r.Index = len(r.Prompts)
	}
	if r.State == "" {
		switch {
		case r.Running:
			r.State = StateRunning
		case r.Remaining():
			r.State = StateStopped
		default:
			r.State = StateCompleted
		}
	}
}

func (r *Run) clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.Prompts = append([]string(nil), r.Prompts...)
	c.Results = make([]*PromptResult, len(r.Results))
	for i, res := range r.Results {
		c.Results[i] = res.clone()
	}
	return &c
}
