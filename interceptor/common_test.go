package interceptor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
)

// recordingSink collects every payload delivered by an interceptor.
type recordingSink struct {
	mu       sync.Mutex
	urls     []string
	payloads []*jsontree.Value
}

func (s *recordingSink) sink(ctx context.Context, url string, payload *jsontree.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	s.payloads = append(s.payloads, payload)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// countingBody counts Read calls against the underlying reader.
type countingBody struct {
	r      io.Reader
	reads  int
	closed bool
}

func (b *countingBody) Read(p []byte) (int, error) {
	b.reads++
	return b.r.Read(p)
}

func (b *countingBody) Close() error {
	b.closed = true
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func staticTransport(status int, body *countingBody) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       body,
			Header:     http.Header{},
			Request:    r,
		}, nil
	}
}

func newBody(s string) *countingBody {
	return &countingBody{r: strings.NewReader(s)}
}
