package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/testutil"
)

func TestGormStore_SetAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Local, "greeting", map[string]string{"text": "hello"}))

	var got map[string]string
	require.NoError(t, store.Get(ctx, Local, "greeting", &got))
	assert.Equal(t, "hello", got["text"])

	// Same key in the other namespace is independent.
	err := store.Get(ctx, Sync, "greeting", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_LastWriteWins(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Sync, KeyGeminiAPIKey, "first"))
	require.NoError(t, store.Set(ctx, Sync, KeyGeminiAPIKey, "second"))

	var got string
	require.NoError(t, store.Get(ctx, Sync, KeyGeminiAPIKey, &got))
	assert.Equal(t, "second", got)

	var count int64
	store.db.Model(&Entry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_Validation(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ns      Namespace
		key     string
		wantErr error
	}{
		{name: "unknown namespace", ns: "managed", key: "k", wantErr: ErrInvalidNamespace},
		{name: "empty key", ns: Local, key: "", wantErr: ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Set(ctx, tt.ns, tt.key, 1), tt.wantErr)
			assert.ErrorIs(t, store.Get(ctx, tt.ns, tt.key, nil), tt.wantErr)
			assert.ErrorIs(t, store.Delete(ctx, tt.ns, tt.key), tt.wantErr)
		})
	}
}

func TestGormStore_Delete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Local, KeyBatchState, map[string]bool{"running": true}))
	require.NoError(t, store.Delete(ctx, Local, KeyBatchState))
	assert.ErrorIs(t, store.Get(ctx, Local, KeyBatchState, nil), ErrNotFound)

	// Missing keys delete cleanly.
	assert.NoError(t, store.Delete(ctx, Local, KeyBatchState))
}

func TestGormStore_Subscribe(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	var changes []Change
	cancel := store.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	require.NoError(t, store.Set(ctx, Local, "a", 1))
	require.NoError(t, store.Delete(ctx, Local, "a"))
	require.NoError(t, store.Delete(ctx, Local, "missing"))

	require.Len(t, changes, 2)
	assert.Equal(t, Change{Namespace: Local, Key: "a", Value: []byte("1")}, changes[0])
	assert.Equal(t, Change{Namespace: Local, Key: "a", Removed: true}, changes[1])

	cancel()
	require.NoError(t, store.Set(ctx, Local, "b", 2))
	assert.Len(t, changes, 2)
}

func TestGormStore_DecodeError(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	testutil.CreateFixtures(t, store.db, &Entry{Namespace: Local, Key: KeyHistory, Value: "{not json"})

	var entries []HistoryEntry
	err := store.Get(ctx, Local, KeyHistory, &entries)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGormStore_WithMigratedSchema(t *testing.T) {
	db := testutil.SetupMigratedDB(t)
	store := NewGormStore(db, logger.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Local, "k", "v"))
	require.NoError(t, store.Set(ctx, Local, "k", "w"))

	var got string
	require.NoError(t, store.Get(ctx, Local, "k", &got))
	assert.Equal(t, "w", got)
}
