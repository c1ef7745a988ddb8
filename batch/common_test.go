package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/testutil"
)

const freshURL = "https://chat.test/"

func testConfig() Config {
	return Config{
		FreshURL:            freshURL,
		ConversationPattern: `/c/[^/]+`,
		InputSelectors:      []string{"#missing", "#input"},
		SubmitSelectors:     []string{"#send"},
		SubmitSVGPaths:      []string{"M1"},
		StreamingSelectors:  []string{"#stop"},
		InputAttempts:       3,
		FreshPageAttempts:   2,
		CompletionPoll:      time.Millisecond,
		CompletionTimeout:   5 * time.Millisecond,
	}
}

type fakeElement struct {
	page *fakePage
	kind string
}

func (e *fakeElement) ContentEditable(ctx context.Context) (bool, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.page.editable, nil
}

func (e *fakeElement) SetValue(ctx context.Context, text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.typed = append(e.page.typed, "value:"+text)
	e.page.draft = text
	return nil
}

func (e *fakeElement) InsertText(ctx context.Context, text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.typed = append(e.page.typed, "insert:"+text)
	e.page.draft = text
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.page.send(e.kind)
	return nil
}

// fakePage simulates a chat client: submitting moves to a conversation URL
// and shows a stop button for a few polls.
type fakePage struct {
	mu sync.Mutex

	url             string
	editable        bool
	noInput         bool
	noSubmit        bool
	svgSubmit       bool
	streamPolls     int
	alwaysStreaming bool

	draft       string
	typed       []string
	submitted   []string
	submitVia   []string
	navigations []string
	streamLeft  int
	notified    bool

	// onStreaming runs once per submission, on the first completion poll.
	onStreaming func(prompt string)
}

func newFakePage() *fakePage {
	return &fakePage{url: freshURL, streamPolls: 2}
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

func (p *fakePage) Query(ctx context.Context, selector string) (Element, error) {
	p.mu.Lock()
	switch selector {
	case "#input":
		defer p.mu.Unlock()
		if p.noInput {
			return nil, nil
		}
		return &fakeElement{page: p, kind: "input"}, nil
	case "#send":
		defer p.mu.Unlock()
		if p.noSubmit || p.svgSubmit {
			return nil, nil
		}
		return &fakeElement{page: p, kind: "button"}, nil
	case "#stop":
		hook, prompt := p.onStreaming, p.draft
		first := !p.notified
		p.notified = true
		streaming := p.alwaysStreaming || p.streamLeft > 0
		if p.streamLeft > 0 {
			p.streamLeft--
		}
		p.mu.Unlock()

		if first && hook != nil {
			hook(prompt)
		}
		if streaming {
			return &fakeElement{page: p, kind: "stop"}, nil
		}
		return nil, nil
	}
	p.mu.Unlock()
	return nil, nil
}

func (p *fakePage) QueryButtonWithPath(ctx context.Context, prefix string) (Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.svgSubmit && prefix == "M1" {
		return &fakeElement{page: p, kind: "svg"}, nil
	}
	return nil, nil
}

func (p *fakePage) PressEnter(ctx context.Context) error {
	p.send("enter")
	return nil
}

func (p *fakePage) send(via string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, p.draft)
	p.submitVia = append(p.submitVia, via)
	p.url = fmt.Sprintf("%sc/conv-%d", freshURL, len(p.submitted))
	p.streamLeft = p.streamPolls
	p.notified = false
}

func (p *fakePage) snapshot() (submitted, navigations, via, typed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.submitted...),
		append([]string(nil), p.navigations...),
		append([]string(nil), p.submitVia...),
		append([]string(nil), p.typed...)
}

type harness struct {
	orch  *Orchestrator
	page  *fakePage
	state *session.State
	log   *logger.TestLogger
}

func newHarness(t *testing.T, page *fakePage) *harness {
	t.Helper()
	return newHarnessWithConfig(t, page, testConfig())
}

func newHarnessWithConfig(t *testing.T, page *fakePage, cfg Config) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &session.Entry{})
	log := logger.NewTestLogger()
	state := session.NewState(session.NewGormStore(db, log))

	orch, err := NewOrchestrator(cfg, page, state, log)
	require.NoError(t, err)

	clock := testutil.NewClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	orch.now = clock.Now
	ids := 0
	orch.newID = func() string {
		ids++
		return fmt.Sprintf("run-%d", ids)
	}
	t.Cleanup(orch.Close)

	return &harness{orch: orch, page: page, state: state, log: log}
}

func (h *harness) persisted(t *testing.T) *Run {
	t.Helper()
	var run Run
	ok, err := h.state.LoadBatch(context.Background(), &run)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	return &run
}
