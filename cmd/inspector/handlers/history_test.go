package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
)

func TestHistoryHandler(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, e.state.AppendHistory(ctx, session.HistoryEntry{Timestamp: at, Source: "ChatGPT", Queries: []string{"first"}}))
	require.NoError(t, e.state.AppendHistory(ctx, session.HistoryEntry{Timestamp: at, Source: "ChatGPT", Queries: []string{"second"}}))

	w := e.do(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []session.HistoryEntry
	decode(t, w, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"second"}, entries[0].Queries)

	w = e.do(t, http.MethodGet, "/api/v1/history?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Timestamp,Source,Query\n"+
		`"2024-06-01T09:00:00Z","ChatGPT","second"`+"\n"+
		`"2024-06-01T09:00:00Z","ChatGPT","first"`+"\n", w.Body.String())

	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/v1/history", nil).Code)
	w = e.do(t, http.MethodGet, "/api/v1/history", nil)
	decode(t, w, &entries)
	assert.Empty(t, entries)
}
