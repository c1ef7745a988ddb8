package extractor

import (
	"context"
	"testing"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSearch(t *testing.T) {
	raw := `{
		"q": "how do tides work",
		"ctx": {"text": "short", "prompt": "https://example.com/page", "question": "data:image/png;base64,AAAA"},
		"queries": ["tides and the moon", {"query": "spring tide definition"}, {"text": "neap tide"}, {"other": 1}],
		"nested": [{"searchQuery": "how do tides work"}]
	}`
	root, err := jsontree.Parse([]byte(raw))
	require.NoError(t, err)

	data, ok := New(logger.NewTestLogger()).ExtractSearch(context.Background(), root, "https://www.google.com/search?q=tides")
	require.True(t, ok)
	assert.Equal(t, []string{"how do tides work", "tides and the moon", "spring tide definition", "neap tide"}, data.Queries)
	assert.Equal(t, SearchSource, data.Source)
	assert.Equal(t, "https://www.google.com/search?q=tides", data.InterceptedFrom)
}

func TestExtractSearch_NothingPlausible(t *testing.T) {
	root, err := jsontree.Parse([]byte(`{"q": "abcd", "text": "http://x.test/long"}`))
	require.NoError(t, err)

	_, ok := New(logger.NewTestLogger()).ExtractSearch(context.Background(), root, "")
	assert.False(t, ok)
}
