package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/export"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/pipeline"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/settings"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/storage"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/testutil"
)

const hostOrigin = "https://chatgpt.com"

type fakeBatch struct {
	started  [][]string
	startErr error
	stopErr  error
	clearErr error
	status   batch.Status
}

func (f *fakeBatch) Start(ctx context.Context, prompts []string) (batch.Status, error) {
	f.started = append(f.started, prompts)
	return f.status, f.startErr
}

func (f *fakeBatch) Stop(ctx context.Context) (batch.Status, error) { return f.status, f.stopErr }
func (f *fakeBatch) Clear(ctx context.Context) error                { return f.clearErr }
func (f *fakeBatch) Snapshot() batch.Status                         { return f.status }

type fakeTester struct {
	keys []string
	err  error
}

func (f *fakeTester) TestKey(ctx context.Context, key string) error {
	f.keys = append(f.keys, key)
	return f.err
}

type fakeChecker struct{ has bool }

func (f fakeChecker) Check(ctx context.Context, query string, aiMode bool) bool { return f.has }

type fakeRunner struct {
	reports []overview.QueryReport
	err     error
	got     []string
}

func (f *fakeRunner) Run(ctx context.Context, queries []string, aiMode bool) ([]overview.QueryReport, error) {
	f.got = queries
	return f.reports, f.err
}

type fakeLatest struct{ latest pipeline.Latest }

func (f fakeLatest) Latest() pipeline.Latest { return f.latest }

type env struct {
	router    *mux.Router
	bridge    *bridge.Bridge
	state     *session.State
	keys      *settings.Service
	batch     *fakeBatch
	tester    *fakeTester
	runner    *fakeRunner
	publisher *export.Publisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewTestLogger()

	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &session.Entry{})
	store := session.NewGormStore(db, log)

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	e := &env{
		bridge:    bridge.New([]byte("0123456789abcdef0123456789abcdef"), nil, 1, log),
		state:     session.NewState(store),
		keys:      settings.NewService(store, "test-secret", log),
		batch:     &fakeBatch{status: batch.Status{State: batch.StateIdle}},
		tester:    &fakeTester{},
		runner:    &fakeRunner{},
		publisher: export.NewPublisher(blobs, log),
	}
	e.router = NewRouter(Services{
		Bridge:         e.bridge,
		History:        e.state,
		Batch:          e.batch,
		Keys:           e.keys,
		KeyTester:      e.tester,
		Checker:        fakeChecker{has: true},
		SearchBatch:    e.runner,
		Latest:         fakeLatest{},
		Publisher:      e.publisher,
		AllowedOrigins: []string{hostOrigin},
	}, log)
	return e
}

func (e *env) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	var req *http.Request
	if buf != nil {
		req = httptest.NewRequest(method, path, buf)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}
