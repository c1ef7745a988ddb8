package hostpage

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/interceptor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Hooks are called on page lifecycle events. Either may be nil.
type Hooks struct {
	// OnNavigate runs when the main frame commits a new document, before
	// any of its traffic is seen.
	OnNavigate func(ctx context.Context, url string)
	// OnLoad runs once the main frame finished loading.
	OnLoad func(ctx context.Context, url string)
	// OnURLChange runs when the main frame changes its URL without loading
	// a new document (history API or fragment navigation).
	OnURLChange func(ctx context.Context, url string)
}

type bodyFetcher func(ctx context.Context, id proto.NetworkRequestID) ([]byte, error)

// Tap feeds a page's network traffic to trackers and reports navigations.
type Tap struct {
	trackers []*interceptor.Tracker
	hooks    Hooks
	fetch    bodyFetcher
	url      func(ctx context.Context) (string, error)
	logger   logger.Logger

	mu        sync.Mutex
	mainFrame proto.PageFrameID

	wg sync.WaitGroup
}

func newTap(trackers []*interceptor.Tracker, hooks Hooks, log logger.Logger) *Tap {
	return &Tap{
		trackers: trackers,
		hooks:    hooks,
		logger:   logger.Component(log, "tap"),
	}
}

// Attach enables the network and page domains on p and starts dispatching
// their events until ctx is done.
func Attach(ctx context.Context, p *Page, trackers []*interceptor.Tracker, hooks Hooks, log logger.Logger) (*Tap, error) {
	page := p.with(ctx)
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}
	if err := (proto.PageEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable page events: %w", err)
	}

	t := newTap(trackers, hooks, log)
	t.fetch = func(ctx context.Context, id proto.NetworkRequestID) ([]byte, error) {
		return responseBody(page.Context(ctx), id)
	}
	t.url = p.URL
	t.mainFrame = page.FrameID

	wait := page.EachEvent(
		func(ev *proto.NetworkResponseReceived) { t.onResponse(ev) },
		func(ev *proto.NetworkLoadingFinished) {
			// Fetching the body is a round trip to the browser, which must
			// not happen on the event loop.
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.onFinished(ctx, ev)
			}()
		},
		func(ev *proto.NetworkLoadingFailed) { t.onFailed(ev) },
		func(ev *proto.PageFrameNavigated) { t.onNavigated(ctx, ev) },
		func(ev *proto.PageNavigatedWithinDocument) {
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.onURLChange(ctx, ev)
			}()
		},
		func(ev *proto.PageLoadEventFired) {
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.onLoad(ctx)
			}()
		},
	)
	go wait()
	return t, nil
}

// Wait blocks until in-flight body fetches and load hooks have returned.
func (t *Tap) Wait() {
	t.wg.Wait()
}

func (t *Tap) onResponse(ev *proto.NetworkResponseReceived) {
	if ev.Response == nil {
		return
	}
	id := string(ev.RequestID)
	for _, tr := range t.trackers {
		tr.ResponseReceived(id, ev.Response.URL, ev.Response.Status)
	}
}

func (t *Tap) onFinished(ctx context.Context, ev *proto.NetworkLoadingFinished) {
	id := string(ev.RequestID)

	var (
		once sync.Once
		body []byte
		err  error
	)
	fetch := func(ctx context.Context) ([]byte, error) {
		once.Do(func() { body, err = t.fetch(ctx, ev.RequestID) })
		return body, err
	}
	for _, tr := range t.trackers {
		tr.LoadingFinished(ctx, id, fetch)
	}
}

func (t *Tap) onFailed(ev *proto.NetworkLoadingFailed) {
	for _, tr := range t.trackers {
		tr.Forget(string(ev.RequestID))
	}
}

func (t *Tap) onNavigated(ctx context.Context, ev *proto.PageFrameNavigated) {
	if !isMainFrame(ev.Frame) {
		return
	}
	t.mu.Lock()
	t.mainFrame = ev.Frame.ID
	t.mu.Unlock()

	for _, tr := range t.trackers {
		tr.Reset()
	}
	t.logger.Debug(ctx, "main frame navigated", map[string]interface{}{
		"url": ev.Frame.URL,
	})
	if t.hooks.OnNavigate != nil {
		t.hooks.OnNavigate(ctx, ev.Frame.URL)
	}
}

func (t *Tap) onLoad(ctx context.Context) {
	if t.hooks.OnLoad == nil {
		return
	}
	url, err := t.url(ctx)
	if err != nil {
		t.logger.Warn(ctx, "failed to read URL after load", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	t.hooks.OnLoad(ctx, url)
}

func (t *Tap) onURLChange(ctx context.Context, ev *proto.PageNavigatedWithinDocument) {
	t.mu.Lock()
	main := t.mainFrame
	t.mu.Unlock()
	if main != "" && ev.FrameID != main {
		return
	}

	t.logger.Debug(ctx, "main frame URL changed", map[string]interface{}{
		"url": ev.URL,
	})
	if t.hooks.OnURLChange != nil {
		t.hooks.OnURLChange(ctx, ev.URL)
	}
}

func isMainFrame(f *proto.PageFrame) bool {
	return f != nil && f.ParentID == ""
}

func responseBody(page *rod.Page, id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
	if err != nil {
		return nil, err
	}
	return decodeBody(res)
}

func decodeBody(res *proto.NetworkGetResponseBodyResult) ([]byte, error) {
	if !res.Base64Encoded {
		return []byte(res.Body), nil
	}
	b, err := base64.StdEncoding.DecodeString(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return b, nil
}
