package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	ctx := context.Background()
	rec := &recordingSink{}
	log := logger.NewTestLogger()
	tr := NewTracker(New(ChatProfile, rec.sink, log))

	fetched := 0
	fetch := func(body string, err error) BodyFetcher {
		return func(context.Context) ([]byte, error) {
			fetched++
			return []byte(body), err
		}
	}

	t.Run("untracked request is never fetched", func(t *testing.T) {
		assert.False(t, tr.ResponseReceived("1", "https://chatgpt.com/assets/a.js", 200))
		assert.Equal(t, 0, tr.LoadingFinished(ctx, "1", fetch(`{}`, nil)))
		assert.Equal(t, 0, fetched)
	})

	t.Run("failed status is not tracked", func(t *testing.T) {
		assert.False(t, tr.ResponseReceived("2", "https://chatgpt.com/backend-api/conversation", 500))
		assert.Equal(t, 0, tr.Pending())
	})

	t.Run("tracked request is inspected once", func(t *testing.T) {
		assert.True(t, tr.ResponseReceived("3", "https://chatgpt.com/backend-api/conversation", 200))
		assert.Equal(t, 1, tr.LoadingFinished(ctx, "3", fetch(`{"search_model_queries": ["q"]}`, nil)))
		assert.Equal(t, 0, tr.LoadingFinished(ctx, "3", fetch(`{"search_model_queries": ["q"]}`, nil)))
		assert.Equal(t, 1, fetched)
		assert.Equal(t, 1, rec.count())
	})

	t.Run("fetch failure is logged and dropped", func(t *testing.T) {
		tr.ResponseReceived("4", "https://chatgpt.com/backend-api/conversation", 200)
		assert.Equal(t, 0, tr.LoadingFinished(ctx, "4", fetch("", errors.New("No resource with given identifier found"))))
		assert.Len(t, log.Find("failed to fetch response body"), 1)
	})

	t.Run("forget and reset", func(t *testing.T) {
		tr.ResponseReceived("5", "https://chatgpt.com/backend-api/conversation", 200)
		tr.ResponseReceived("6", "https://chatgpt.com/backend-api/conversation", 200)
		tr.Forget("5")
		assert.Equal(t, 1, tr.Pending())
		tr.Reset()
		assert.Equal(t, 0, tr.Pending())
	})
}
