package hostpage

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/interceptor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

const chatURL = "https://chat.test/backend-api/conversation"

type tapHarness struct {
	tap     *Tap
	tracker *interceptor.Tracker

	mu       sync.Mutex
	payloads []string
	fetched  int
	visited  []string
	loaded   []string
	changed  []string
}

func newTapHarness(t *testing.T, bodies map[proto.NetworkRequestID]string) *tapHarness {
	t.Helper()
	log := logger.NewTestLogger()
	h := &tapHarness{}

	sink := func(ctx context.Context, url string, v *jsontree.Value) {
		h.mu.Lock()
		h.payloads = append(h.payloads, url)
		h.mu.Unlock()
	}
	h.tracker = interceptor.NewTracker(interceptor.New(interceptor.ChatProfile, sink, log))

	h.tap = newTap([]*interceptor.Tracker{h.tracker}, Hooks{
		OnNavigate: func(ctx context.Context, url string) { h.visited = append(h.visited, url) },
		OnLoad:     func(ctx context.Context, url string) { h.loaded = append(h.loaded, url) },
		OnURLChange: func(ctx context.Context, url string) {
			h.mu.Lock()
			h.changed = append(h.changed, url)
			h.mu.Unlock()
		},
	}, log)
	h.tap.fetch = func(ctx context.Context, id proto.NetworkRequestID) ([]byte, error) {
		h.mu.Lock()
		h.fetched++
		h.mu.Unlock()
		body, ok := bodies[id]
		if !ok {
			return nil, errors.New("no body")
		}
		return []byte(body), nil
	}
	h.tap.url = func(ctx context.Context) (string, error) { return "https://chat.test/", nil }
	return h
}

func response(id, url string, status int) *proto.NetworkResponseReceived {
	return &proto.NetworkResponseReceived{
		RequestID: proto.NetworkRequestID(id),
		Response:  &proto.NetworkResponse{URL: url, Status: status},
	}
}

func TestTap_FeedsTrackedResponses(t *testing.T) {
	ctx := context.Background()
	h := newTapHarness(t, map[proto.NetworkRequestID]string{
		"1": `{"search_model_queries":{"queries":["a"]}}`,
		"2": `{"search_model_queries":{"queries":["b"]}}`,
	})

	h.tap.onResponse(response("1", chatURL, 200))
	h.tap.onResponse(response("2", "https://chat.test/static/app.js", 200))
	h.tap.onResponse(response("3", chatURL, 500))
	h.tap.onResponse(&proto.NetworkResponseReceived{RequestID: "4"})
	assert.Equal(t, 1, h.tracker.Pending())

	for _, id := range []string{"1", "2", "3"} {
		h.tap.onFinished(ctx, &proto.NetworkLoadingFinished{RequestID: proto.NetworkRequestID(id)})
	}

	assert.Equal(t, []string{chatURL}, h.payloads)
	assert.Equal(t, 1, h.fetched, "only tracked bodies are fetched")
	assert.Zero(t, h.tracker.Pending())
}

func TestTap_FailedRequestIsForgotten(t *testing.T) {
	h := newTapHarness(t, nil)

	h.tap.onResponse(response("1", chatURL, 200))
	h.tap.onFailed(&proto.NetworkLoadingFailed{RequestID: "1"})
	h.tap.onFinished(context.Background(), &proto.NetworkLoadingFinished{RequestID: "1"})

	assert.Zero(t, h.tracker.Pending())
	assert.Zero(t, h.fetched)
}

func TestTap_MainFrameNavigationResets(t *testing.T) {
	ctx := context.Background()
	h := newTapHarness(t, nil)
	h.tap.onResponse(response("1", chatURL, 200))

	h.tap.onNavigated(ctx, &proto.PageFrameNavigated{Frame: &proto.PageFrame{ID: "child", ParentID: "main", URL: "https://ads.test/"}})
	assert.Equal(t, 1, h.tracker.Pending())
	assert.Empty(t, h.visited)

	h.tap.onNavigated(ctx, &proto.PageFrameNavigated{Frame: &proto.PageFrame{ID: "main", URL: "https://chat.test/c/1"}})
	assert.Zero(t, h.tracker.Pending())
	assert.Equal(t, []string{"https://chat.test/c/1"}, h.visited)

	h.tap.onLoad(ctx)
	assert.Equal(t, []string{"https://chat.test/"}, h.loaded)
}

func TestTap_SameDocumentURLChange(t *testing.T) {
	ctx := context.Background()
	h := newTapHarness(t, nil)
	h.tap.onNavigated(ctx, &proto.PageFrameNavigated{Frame: &proto.PageFrame{ID: "main", URL: "https://www.google.com/search?q=first"}})
	h.tap.onResponse(response("1", chatURL, 200))

	h.tap.onURLChange(ctx, &proto.PageNavigatedWithinDocument{FrameID: "child", URL: "https://ads.test/#x"})
	h.tap.onURLChange(ctx, &proto.PageNavigatedWithinDocument{FrameID: "main", URL: "https://www.google.com/search?q=new&udm=50"})

	assert.Equal(t, []string{"https://www.google.com/search?q=new&udm=50"}, h.changed)
	// Same document, so tracked requests survive.
	assert.Equal(t, 1, h.tracker.Pending())
	assert.Equal(t, []string{"https://www.google.com/search?q=first"}, h.visited)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		res     *proto.NetworkGetResponseBodyResult
		want    string
		wantErr bool
	}{
		{name: "plain", res: &proto.NetworkGetResponseBodyResult{Body: `{"a":1}`}, want: `{"a":1}`},
		{name: "base64", res: &proto.NetworkGetResponseBodyResult{Body: base64.StdEncoding.EncodeToString([]byte("data: x")), Base64Encoded: true}, want: "data: x"},
		{name: "bad base64", res: &proto.NetworkGetResponseBodyResult{Body: "%%%", Base64Encoded: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(tt.res)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
