package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/testutil"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []bridge.Message
	// drop rejects that many sends before accepting again.
	drop int
}

func (s *recordingSender) Send(msg bridge.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drop > 0 {
		s.drop--
		return false
	}
	s.sent = append(s.sent, msg)
	return true
}

func (s *recordingSender) messages() []bridge.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bridge.Message(nil), s.sent...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []*capture.Event
}

func (r *recordingEvents) HandleEvent(ctx context.Context, ev *capture.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordingEvents) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixedChecker struct {
	result bool
	calls  []string
}

func (f *fixedChecker) Check(ctx context.Context, query string, aiMode bool) bool {
	f.calls = append(f.calls, query)
	return f.result
}

func setupState(t *testing.T) *session.State {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &session.Entry{})
	return session.NewState(session.NewGormStore(db, logger.NewTestLogger()))
}

func history(t *testing.T, state *session.State) []session.HistoryEntry {
	t.Helper()
	entries, err := state.History(context.Background())
	require.NoError(t, err)
	return entries
}
