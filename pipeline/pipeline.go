// Package pipeline connects the interceptors to the bridge: payloads are
// extracted, filtered for repeats and posted as messages.
package pipeline

import (
	"context"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/bridge"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/dedup"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/extractor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/interceptor"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Sender posts a message to the controller side.
type Sender interface {
	Send(msg bridge.Message) bool
}

// Pipeline is the page-side half of the system. One Pipeline lives for one
// page load; Reset starts a new lifetime.
type Pipeline struct {
	extractor *extractor.Extractor
	seen      *dedup.Set
	sender    Sender
	logger    logger.Logger
}

// New creates a pipeline posting through sender.
func New(x *extractor.Extractor, sender Sender, log logger.Logger) *Pipeline {
	return &Pipeline{
		extractor: x,
		seen:      dedup.New(),
		sender:    sender,
		logger:    logger.Component(log, "pipeline"),
	}
}

// Reset forgets every event seen so far.
func (p *Pipeline) Reset() {
	p.seen.Reset()
}

// Seen returns the number of distinct events admitted this lifetime.
func (p *Pipeline) Seen() int {
	return p.seen.Len()
}

// Interceptors builds the chat and search interceptors feeding this
// pipeline.
func (p *Pipeline) Interceptors() (chat, search *interceptor.Interceptor) {
	chat = interceptor.New(interceptor.ChatProfile, p.ChatSink, p.logger)
	search = interceptor.New(interceptor.SearchProfile, p.SearchSink, p.logger)
	return chat, search
}

// ChatSink handles one chat-assistant payload.
func (p *Pipeline) ChatSink(ctx context.Context, url string, payload *jsontree.Value) {
	ev, ok := p.extractor.Extract(ctx, payload)
	if !ok {
		return
	}
	key := ev.CanonicalKey()
	if !p.seen.Admit(key) {
		return
	}

	msg, err := bridge.NewDataMessage(ev)
	if err != nil {
		p.seen.Forget(key)
		p.logger.Warn(ctx, "failed to encode event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !p.sender.Send(msg) {
		p.seen.Forget(key)
		return
	}

	p.logger.Debug(ctx, "event posted", map[string]interface{}{
		"url":     url,
		"queries": len(ev.Queries),
		"cited":   len(ev.SourcesCited),
	})
}

// SearchSink handles one search-engine payload.
func (p *Pipeline) SearchSink(ctx context.Context, url string, payload *jsontree.Value) {
	data, ok := p.extractor.ExtractSearch(ctx, payload, url)
	if !ok {
		return
	}
	key := data.CanonicalKey()
	if !p.seen.Admit(key) {
		return
	}

	msg, err := bridge.NewSearchDataMessage(data)
	if err != nil {
		p.seen.Forget(key)
		p.logger.Warn(ctx, "failed to encode search data", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !p.sender.Send(msg) {
		p.seen.Forget(key)
	}
}
