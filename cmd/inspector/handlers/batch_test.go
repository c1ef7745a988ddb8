package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
)

func finishedStatus() batch.Status {
	return batch.Status{
		State: batch.StateCompleted,
		Run: &batch.Run{
			ID:      "run-1",
			State:   batch.StateCompleted,
			Prompts: []string{"p"},
			Results: []*batch.PromptResult{{
				Prompt:    "p",
				Queries:   []string{`a "quoted" term`},
				Timestamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			}},
			Index: 1,
		},
	}
}

func TestBatchHandler_Start(t *testing.T) {
	tests := []struct {
		name       string
		body       StartBatchRequest
		err        error
		wantStatus int
	}{
		{name: "started", body: StartBatchRequest{Prompts: []string{"a"}, Text: "b\nc"}, wantStatus: http.StatusAccepted},
		{name: "no prompts", err: batch.ErrNoPrompts, wantStatus: http.StatusBadRequest},
		{name: "already running", body: StartBatchRequest{Prompts: []string{"a"}}, err: batch.ErrBatchRunning, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.batch.startErr = tt.err

			w := e.do(t, http.MethodPost, "/api/v1/batch", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.name == "started" {
				require.Len(t, e.batch.started, 1)
				assert.Equal(t, []string{"a", "b", "c"}, e.batch.started[0])
			}
		})
	}
}

func TestBatchHandler_StopAndClear(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/v1/batch/stop", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/v1/batch", nil).Code)

	e.batch.stopErr = batch.ErrNotRunning
	e.batch.clearErr = batch.ErrBatchRunning
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, "/api/v1/batch/stop", nil).Code)
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodDelete, "/api/v1/batch", nil).Code)
}

func TestBatchHandler_Status(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/batch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status batch.Status
	decode(t, w, &status)
	assert.Equal(t, batch.StateIdle, status.State)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/v1/batch?format=csv", nil).Code)

	e.batch.status = finishedStatus()
	w = e.do(t, http.MethodGet, "/api/v1/batch?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chatgpt-batch-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Prompt,Search Queries,"))
	assert.Contains(t, w.Body.String(), `"a ""quoted"" term"`)
}

func TestBatchHandler_Export(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/v1/batch/export", nil).Code)

	e.batch.status = finishedStatus()
	w := e.do(t, http.MethodPost, "/api/v1/batch/export", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var art export.Artifact
	decode(t, w, &art)
	assert.True(t, strings.HasPrefix(art.Key, "exports/chatgpt-batch-"))
	assert.NotEmpty(t, art.URL)

	w = e.do(t, http.MethodGet, "/api/v1/exports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var arts []export.Artifact
	decode(t, w, &arts)
	require.Len(t, arts, 1)
	assert.Equal(t, art.Key, arts[0].Key)
}
