package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
)

func TestState_HistoryEmpty(t *testing.T) {
	store, _ := setupTestStore(t)
	state := NewState(store)

	entries, err := state.History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestState_AppendHistoryNewestFirst(t *testing.T) {
	store, _ := setupTestStore(t)
	state := NewState(store)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := capture.NewEvent()
	ev.Queries = []string{"best running shoes"}

	require.NoError(t, state.AppendHistory(ctx, HistoryEntry{Timestamp: base, Source: "ChatGPT", Queries: []string{"first"}}))
	require.NoError(t, state.AppendHistory(ctx, HistoryEntry{Timestamp: base.Add(time.Minute), Source: "ChatGPT", Queries: ev.Queries, Event: ev}))

	entries, err := state.History(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"best running shoes"}, entries[0].Queries)
	require.NotNil(t, entries[0].Event)
	assert.Equal(t, ev.Queries, entries[0].Event.Queries)
	assert.Equal(t, []string{"first"}, entries[1].Queries)
	assert.True(t, base.Equal(entries[1].Timestamp))
}

func TestState_AppendHistoryCapped(t *testing.T) {
	store, _ := setupTestStore(t)
	state := NewState(store)
	ctx := context.Background()

	for i := 0; i < MaxHistory+5; i++ {
		require.NoError(t, state.AppendHistory(ctx, HistoryEntry{
			Source:  "ChatGPT",
			Queries: []string{fmt.Sprintf("query %d", i)},
		}))
	}

	entries, err := state.History(ctx)
	require.NoError(t, err)
	require.Len(t, entries, MaxHistory)
	assert.Equal(t, []string{fmt.Sprintf("query %d", MaxHistory+4)}, entries[0].Queries)
	assert.Equal(t, []string{"query 5"}, entries[MaxHistory-1].Queries)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestState_ClearHistory(t *testing.T) {
	store, _ := setupTestStore(t)
	state := NewState(store)
	ctx := context.Background()

	require.NoError(t, state.AppendHistory(ctx, HistoryEntry{Source: "Gemini", Queries: []string{"q"}}))
	require.NoError(t, state.ClearHistory(ctx))

	entries, err := state.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestState_BatchRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	state := NewState(store)
	ctx := context.Background()

	type run struct {
		Running bool     `json:"running"`
		Prompts []string `json:"prompts"`
		Index   int      `json:"currentIndex"`
	}

	var loaded run
	ok, err := state.LoadBatch(ctx, &loaded)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, state.SaveBatch(ctx, run{Running: true, Prompts: []string{"a", "b"}, Index: 1}))
	ok, err = state.LoadBatch(ctx, &loaded)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, run{Running: true, Prompts: []string{"a", "b"}, Index: 1}, loaded)

	require.NoError(t, state.ClearBatch(ctx))
	ok, err = state.LoadBatch(ctx, &loaded)
	require.NoError(t, err)
	assert.False(t, ok)
}
