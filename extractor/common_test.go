package extractor

import (
	"context"
	"testing"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/stretchr/testify/require"
)

// extract parses raw and runs the chat extractor over it.
func extract(t *testing.T, raw string) (*capture.Event, bool, *logger.TestLogger) {
	t.Helper()
	root, err := jsontree.Parse([]byte(raw))
	require.NoError(t, err)

	log := logger.NewTestLogger()
	ev, ok := New(log).Extract(context.Background(), root)
	return ev, ok, log
}
