// Package bridge relays messages from the page side of the pipeline to the
// controller side. Delivery is fire-and-forget and at-most-once, and only
// messages stamped with this window's token are delivered.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

var (
	// ErrWrongType is returned when decoding a payload the message does not carry.
	ErrWrongType = errors.New("wrong message type")

	// ErrForeignSource is returned when a token belongs to another window.
	ErrForeignSource = errors.New("message from another window")
)

const tokenName = "sqr-bridge-source"

// DefaultBuffer is the number of undelivered messages held before sends are dropped.
const DefaultBuffer = 256

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message)

// Bridge owns one window identity and the queue of messages posted for it.
type Bridge struct {
	window string
	codec  *securecookie.SecureCookie
	queue  chan Message
	logger logger.Logger
}

// New creates a Bridge. hashKey authenticates source tokens and blockKey,
// when non-nil, encrypts them (16, 24 or 32 bytes).
func New(hashKey, blockKey []byte, buffer int, log logger.Logger) *Bridge {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(0)

	return &Bridge{
		window: uuid.New().String(),
		codec:  codec,
		queue:  make(chan Message, buffer),
		logger: logger.Component(log, "bridge"),
	}
}

// Window returns this bridge's window identity.
func (b *Bridge) Window() string {
	return b.window
}

// Token returns the source token that page-side senders stamp on messages.
func (b *Bridge) Token() (string, error) {
	token, err := b.codec.Encode(tokenName, b.window)
	if err != nil {
		return "", fmt.Errorf("failed to encode source token: %w", err)
	}
	return token, nil
}

// Verify checks that token was issued for this window.
func (b *Bridge) Verify(token string) error {
	var window string
	if err := b.codec.Decode(tokenName, token, &window); err != nil {
		return fmt.Errorf("invalid source token: %w", err)
	}
	if window != b.window {
		return ErrForeignSource
	}
	return nil
}

// Post enqueues msg without blocking. It reports false when the message was
// dropped because the queue is full.
func (b *Bridge) Post(msg Message) bool {
	select {
	case b.queue <- msg:
		return true
	default:
		b.logger.Warn(context.Background(), "bridge queue full, message dropped", map[string]interface{}{
			"type": string(msg.Type),
		})
		return false
	}
}

// Run delivers queued messages to handle until ctx is done. Messages whose
// source does not verify or whose type is unknown are dropped.
func (b *Bridge) Run(ctx context.Context, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.queue:
			b.deliver(ctx, msg, handle)
		}
	}
}

func (b *Bridge) deliver(ctx context.Context, msg Message, handle Handler) {
	if err := b.Verify(msg.Source); err != nil {
		b.logger.Warn(ctx, "dropping message from unverified source", map[string]interface{}{
			"type":  string(msg.Type),
			"error": err.Error(),
		})
		return
	}
	if !msg.Type.IsValid() {
		b.logger.Warn(ctx, "dropping message of unknown type", map[string]interface{}{
			"type": string(msg.Type),
		})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "message handler panicked", map[string]interface{}{
				"type":  string(msg.Type),
				"panic": fmt.Sprint(r),
			})
		}
	}()
	handle(ctx, msg)
}

// Port is the page-side sending end. It stamps every message with the
// window token it was created with.
type Port struct {
	bridge *Bridge
	token  string
}

// Port creates a sending end for this window.
func (b *Bridge) Port() (*Port, error) {
	token, err := b.Token()
	if err != nil {
		return nil, err
	}
	return &Port{bridge: b, token: token}, nil
}

// Send stamps and posts msg.
func (p *Port) Send(msg Message) bool {
	msg.Source = p.token
	return p.bridge.Post(msg)
}
