package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
)

func TestOverviewHandler_Check(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/overview/check", CheckOverviewRequest{Query: " "}).Code)

	w := e.do(t, http.MethodPost, "/api/v1/overview/check", CheckOverviewRequest{Query: " best laptop "})
	require.Equal(t, http.StatusOK, w.Code)
	var resp CheckOverviewResponse
	decode(t, w, &resp)
	assert.Equal(t, CheckOverviewResponse{Query: "best laptop", HasAIOverview: true}, resp)
}

func TestOverviewHandler_SearchBatch(t *testing.T) {
	reports := []overview.QueryReport{{OriginalQuery: "q", SearchQueries: []string{"a", "b"}, HasAIOverview: true}}

	tests := []struct {
		name       string
		err        error
		path       string
		body       SearchBatchRequest
		wantStatus int
	}{
		{name: "ok", path: "/api/v1/search-batch", body: SearchBatchRequest{Text: "q\n"}, wantStatus: http.StatusOK},
		{name: "published", path: "/api/v1/search-batch", body: SearchBatchRequest{Queries: []string{"q"}, Publish: true}, wantStatus: http.StatusOK},
		{name: "csv", path: "/api/v1/search-batch?format=csv", body: SearchBatchRequest{Queries: []string{"q"}}, wantStatus: http.StatusOK},
		{name: "no queries", path: "/api/v1/search-batch", err: overview.ErrNoQueries, wantStatus: http.StatusBadRequest},
		{name: "no key", path: "/api/v1/search-batch", body: SearchBatchRequest{Queries: []string{"q"}}, err: grounding.ErrNoAPIKey, wantStatus: http.StatusPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.runner.reports = reports
			e.runner.err = tt.err

			w := e.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)

			switch tt.name {
			case "ok":
				assert.Equal(t, []string{"q", ""}, e.runner.got)
				var resp SearchBatchResponse
				decode(t, w, &resp)
				assert.Equal(t, reports, resp.Results)
				assert.Nil(t, resp.Artifact)
			case "published":
				var resp SearchBatchResponse
				decode(t, w, &resp)
				require.NotNil(t, resp.Artifact)
				assert.Contains(t, resp.Artifact.Key, "google-ai-queries-")
			case "csv":
				assert.Equal(t, "Original Query,Generated Queries,Has AI Overview,Mode,Query Count\n"+
					`"q","a | b",Yes,Regular,2`+"\n", w.Body.String())
			}
		})
	}
}

func TestOverviewHandler_Latest(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestHealthHandler(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
