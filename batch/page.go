package batch

import (
	"context"
	"time"
)

// Element is a located control on the host page.
type Element interface {
	// ContentEditable reports whether the element is an editable region
	// rather than a form field.
	ContentEditable(ctx context.Context) (bool, error)
	// SetValue assigns the value directly and dispatches an input event.
	SetValue(ctx context.Context, text string) error
	// InsertText focuses the element and inserts text as if typed.
	InsertText(ctx context.Context, text string) error
	Click(ctx context.Context) error
}

// Page is the host page the orchestrator automates.
type Page interface {
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	// Query returns the first element matching selector, or nil.
	Query(ctx context.Context, selector string) (Element, error)
	// QueryButtonWithPath returns the first button containing an SVG path
	// whose d attribute starts with prefix, or nil.
	QueryButtonWithPath(ctx context.Context, prefix string) (Element, error)
	PressEnter(ctx context.Context) error
}

// Config tunes the orchestrator against a particular host page.
type Config struct {
	FreshURL            string
	ConversationPattern string

	InputSelectors     []string
	SubmitSelectors    []string
	SubmitSVGPaths     []string
	StreamingSelectors []string

	InputAttempts      int
	InputDelay         time.Duration
	FreshPageAttempts  int
	NavigationDelay    time.Duration
	ResponseStartDelay time.Duration
	CompletionPoll     time.Duration
	CompletionTimeout  time.Duration
	SettleDelay        time.Duration
}

// DefaultConfig returns settings for the ChatGPT web client.
func DefaultConfig() Config {
	return Config{
		FreshURL:            "https://chatgpt.com/",
		ConversationPattern: `/c/[^/]+`,
		InputSelectors: []string{
			"#prompt-textarea",
			`textarea[data-id="root"]`,
			`div[contenteditable="true"]`,
			"textarea",
		},
		SubmitSelectors: []string{
			`button[data-testid="send-button"]`,
			`button[aria-label="Send prompt"]`,
			`button[aria-label*="Send"]`,
		},
		SubmitSVGPaths: []string{
			"M8.99992 16V6.41407",
			"M15.192 8.906a1.143",
		},
		StreamingSelectors: []string{
			`button[data-testid="stop-button"]`,
			`button[aria-label="Stop streaming"]`,
			".result-streaming",
		},
		InputAttempts:      20,
		InputDelay:         500 * time.Millisecond,
		FreshPageAttempts:  3,
		NavigationDelay:    3 * time.Second,
		ResponseStartDelay: 2 * time.Second,
		CompletionPoll:     time.Second,
		CompletionTimeout:  2 * time.Minute,
		SettleDelay:        2 * time.Second,
	}
}
