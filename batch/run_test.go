package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
)

func TestPromptResult_Merge(t *testing.T) {
	turns := 2
	retrieved := []capture.RetrievedSource{{Domain: "example.com", URL: "https://example.com/a", RefType: "search"}}
	cited := []capture.CitedSource{{URL: "https://example.com/a", Title: "A"}}

	r := newPromptResult("p", time.Unix(0, 0))
	r.Merge(&capture.Event{Queries: []string{"x"}, SourcesRetrieved: retrieved})
	r.Merge(&capture.Event{Scores: capture.NewScores(1, 0, 0), SearchTurns: &turns, SourcesCited: cited})

	assert.Equal(t, []string{"x"}, r.Queries)
	assert.Equal(t, "100.000", r.Scores.SimpleSearch)
	assert.Equal(t, 2, *r.SearchTurns)
	assert.Equal(t, retrieved, r.SourcesRetrieved)
	assert.Equal(t, cited, r.SourcesCited)
	assert.Equal(t, []string{"https://example.com/a"}, r.CitedURLs())

	// Non-empty values replace, empty ones never clear.
	r.Merge(&capture.Event{Queries: []string{"y", "z"}, SourcesRetrieved: []capture.RetrievedSource{}})
	assert.Equal(t, []string{"y", "z"}, r.Queries)
	assert.Equal(t, retrieved, r.SourcesRetrieved)

	r.Merge(nil)
	assert.Equal(t, []string{"y", "z"}, r.Queries)
}

func TestRun_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		run       Run
		wantState State
		wantIndex int
	}{
		{name: "running", run: Run{Running: true, Prompts: []string{"a"}}, wantState: StateRunning},
		{name: "stopped early", run: Run{Prompts: []string{"a", "b"}, Index: 1}, wantState: StateStopped, wantIndex: 1},
		{name: "finished", run: Run{Prompts: []string{"a"}, Index: 1}, wantState: StateCompleted, wantIndex: 1},
		{name: "index out of range", run: Run{Prompts: []string{"a"}, Index: 5}, wantState: StateCompleted, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := tt.run
			run.normalize()
			assert.Equal(t, tt.wantState, run.State)
			assert.Equal(t, tt.wantIndex, run.Index)
			assert.Len(t, run.Results, len(run.Prompts))
		})
	}
}

func TestRun_CloneIsIndependent(t *testing.T) {
	run := newRun("id", []string{"a", "b"}, time.Unix(0, 0))
	run.Results[0] = newPromptResult("a", time.Unix(0, 0))
	run.Results[0].Queries = []string{"q"}

	c := run.clone()
	c.Results[0].Queries[0] = "changed"
	c.Prompts[1] = "changed"

	assert.Equal(t, "q", run.Results[0].Queries[0])
	assert.Equal(t, "b", run.Prompts[1])
	assert.Nil(t, c.Results[1])
	assert.Len(t, run.Collected(), 1)
}
