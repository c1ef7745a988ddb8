package overview

import (
	"context"
	"errors"
	"sync"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/grounding"
)

type fakeDOM struct {
	present  map[string]bool
	headings []string
	classes  []string
	failing  bool
	closed   bool
}

func (d *fakeDOM) Exists(ctx context.Context, selector string) (bool, error) {
	if d.failing {
		return false, errors.New("invalid selector")
	}
	return d.present[selector], nil
}

func (d *fakeDOM) HeadingTexts(ctx context.Context) ([]string, error) {
	return d.headings, nil
}

func (d *fakeDOM) ClassNames(ctx context.Context) ([]string, error) {
	return d.classes, nil
}

func (d *fakeDOM) Close() error {
	d.closed = true
	return nil
}

type fakeGrounder struct {
	mu    sync.Mutex
	calls []string
	modes []bool
	fail  map[string]string
}

func (g *fakeGrounder) Ground(ctx context.Context, query string, aiMode bool) grounding.Result {
	g.mu.Lock()
	g.calls = append(g.calls, query)
	g.modes = append(g.modes, aiMode)
	g.mu.Unlock()

	if msg, ok := g.fail[query]; ok {
		return grounding.Result{Query: query, Queries: []string{}, Source: grounding.SourceFailed, Error: msg}
	}
	mode := capture.ModeAIOverview
	if aiMode {
		mode = capture.ModeAIMode
	}
	return grounding.Result{
		Query:     query,
		Queries:   []string{query + " explained"},
		Citations: []capture.Citation{{URI: "https://example.com", Title: "example.com"}},
		Model:     "gemini-test",
		Mode:      mode,
		Source:    grounding.SourceOverview,
	}
}

type displays struct {
	mu   sync.Mutex
	list []capture.SearchDisplay
}

func (d *displays) emit(ctx context.Context, v capture.SearchDisplay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list = append(d.list, v)
}

type staticKey string

func (k staticKey) APIKey(ctx context.Context) (string, error) {
	if k == "" {
		return "", errors.New("missing")
	}
	return string(k), nil
}

type fakeOpener struct {
	tabs   map[string]*fakeDOM
	opened []string
	err    error
}

func (o *fakeOpener) OpenBackground(ctx context.Context, url string) (Tab, error) {
	o.opened = append(o.opened, url)
	if o.err != nil {
		return nil, o.err
	}
	tab, ok := o.tabs[url]
	if !ok {
		tab = &fakeDOM{}
	}
	return tab, nil
}

type fixedChecker map[string]bool

func (c fixedChecker) Check(ctx context.Context, query string, aiMode bool) bool {
	return c[query]
}
