package interceptor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// DefaultMaxCaptureBytes bounds the copy kept of one response body.
const DefaultMaxCaptureBytes = 16 << 20

// Transport is an http.RoundTripper decorator. Responses to matching calls
// get a body that copies bytes as the consumer reads them; once the consumer
// reaches EOF or closes the body, the copy is inspected on its own
// goroutine. Everything else passes through unchanged.
type Transport struct {
	Base            http.RoundTripper
	Interceptor     *Interceptor
	MaxCaptureBytes int64

	wg sync.WaitGroup
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, i *Interceptor) *Transport {
	return &Transport{Base: base, Interceptor: i, MaxCaptureBytes: DefaultMaxCaptureBytes}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip returns exactly what the base transport returned, with the body
// of matching successful responses wrapped.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}

	url := req.URL.String()
	if !t.Interceptor.Matches(url) {
		return resp, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	limit := t.MaxCaptureBytes
	if limit <= 0 {
		limit = DefaultMaxCaptureBytes
	}
	ctx := context.WithoutCancel(req.Context())
	t.wg.Add(1)
	resp.Body = &teeBody{
		rc:    resp.Body,
		limit: limit,
		done: func(body []byte, overflow bool, readErr error) {
			go func() {
				defer t.wg.Done()
				t.inspect(ctx, url, body, overflow, readErr)
			}()
		},
	}
	return resp, nil
}

func (t *Transport) inspect(ctx context.Context, url string, body []byte, overflow bool, readErr error) {
	log := t.Interceptor.logger
	if readErr != nil {
		log.Warn(ctx, "response stream read failed", map[string]interface{}{
			"url":   url,
			"error": readErr.Error(),
		})
	}
	if overflow {
		log.Warn(ctx, "response exceeded capture limit", map[string]interface{}{
			"url": url,
		})
		return
	}
	t.Interceptor.Inspect(ctx, url, body)
}

// Wait blocks until every wrapped body handed out so far has been finished
// and inspected. Bodies that are never read to EOF or closed keep it waiting.
func (t *Transport) Wait() {
	t.wg.Wait()
}

type teeBody struct {
	rc       io.ReadCloser
	buf      bytes.Buffer
	limit    int64
	overflow bool
	once     sync.Once
	done     func(body []byte, overflow bool, readErr error)
}

func (b *teeBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 && !b.overflow {
		if int64(b.buf.Len()+n) > b.limit {
			b.overflow = true
			b.buf = bytes.Buffer{}
		} else {
			b.buf.Write(p[:n])
		}
	}
	switch {
	case err == io.EOF:
		b.finish(nil)
	case err != nil:
		b.finish(err)
	}
	return n, err
}

func (b *teeBody) Close() error {
	err := b.rc.Close()
	b.finish(nil)
	return err
}

func (b *teeBody) finish(readErr error) {
	b.once.Do(func() {
		body := append([]byte(nil), b.buf.Bytes()...)
		b.done(body, b.overflow, readErr)
	})
}
