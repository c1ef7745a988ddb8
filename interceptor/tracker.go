package interceptor

import (
	"context"
	"sync"
)

// BodyFetcher retrieves a finished response body from wherever the
// browser keeps it.
type BodyFetcher func(ctx context.Context) ([]byte, error)

// Tracker is the event-driven variant of the interceptor: a browser reports
// responses and load completion by request id, and only tracked requests
// have their bodies fetched.
type Tracker struct {
	interceptor *Interceptor

	mu      sync.Mutex
	pending map[string]string
}

// NewTracker creates a Tracker feeding i.
func NewTracker(i *Interceptor) *Tracker {
	return &Tracker{
		interceptor: i,
		pending:     make(map[string]string),
	}
}

// ResponseReceived starts tracking id when url matches and status is 2xx.
func (t *Tracker) ResponseReceived(id, url string, status int) bool {
	if status < 200 || status > 299 || !t.interceptor.Matches(url) {
		return false
	}
	t.mu.Lock()
	t.pending[id] = url
	t.mu.Unlock()
	return true
}

// LoadingFinished fetches and inspects the body of a tracked request. It
// blocks on fetch, so browser adapters call it off their event loop.
func (t *Tracker) LoadingFinished(ctx context.Context, id string, fetch BodyFetcher) int {
	t.mu.Lock()
	url, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if !ok {
		return 0
	}

	body, err := fetch(ctx)
	if err != nil {
		t.interceptor.logger.Warn(ctx, "failed to fetch response body", map[string]interface{}{
			"url":        url,
			"request_id": id,
			"error":      err.Error(),
		})
		return 0
	}
	return t.interceptor.Inspect(ctx, url, body)
}

// Forget drops a request that failed before finishing.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// Pending returns the number of requests awaiting completion.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Reset drops all tracked requests, typically on navigation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pending = make(map[string]string)
	t.mu.Unlock()
}
