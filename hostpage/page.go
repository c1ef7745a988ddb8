package hostpage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
)

const defaultLoadTimeout = 30 * time.Second

const (
	headingsJS = `() => JSON.stringify(Array.from(document.querySelectorAll('h1, h2, h3, [role="heading"]')).map(e => e.textContent || ''))`
	classesJS  = `() => JSON.stringify(Array.from(document.querySelectorAll('[class]')).map(e => e.getAttribute('class') || ''))`

	// React tracks textarea values through the native setter.
	setValueJS = `(v) => {
		const proto = Object.getPrototypeOf(this);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(this, v); } else { this.value = v; }
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`
	editableJS = `() => this.isContentEditable`
)

// Page adapts a browser page for the batch driver and the overview
// detector.
type Page struct {
	page        *rod.Page
	loadTimeout time.Duration
}

func newPage(p *rod.Page, loadTimeout time.Duration) *Page {
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &Page{page: p, loadTimeout: loadTimeout}
}

// Rod returns the underlying page.
func (p *Page) Rod() *rod.Page {
	return p.page
}

func (p *Page) with(ctx context.Context) *rod.Page {
	return p.page.Context(ctx)
}

func (p *Page) waitLoad(ctx context.Context) error {
	if err := p.with(ctx).Timeout(p.loadTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.with(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.with(ctx).Timeout(p.loadTimeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	return nil
}

// Query returns the first element matching selector, or nil.
func (p *Page) Query(ctx context.Context, selector string) (batch.Element, error) {
	ok, el, err := p.with(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &element{el: el, page: p}, nil
}

// QueryButtonWithPath finds a button whose icon path starts with prefix.
func (p *Page) QueryButtonWithPath(ctx context.Context, prefix string) (batch.Element, error) {
	return p.Query(ctx, ButtonWithPathSelector(prefix))
}

func (p *Page) PressEnter(ctx context.Context) error {
	return p.with(ctx).Keyboard.Type(input.Enter)
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	ok, _, err := p.with(ctx).Has(selector)
	return ok, err
}

func (p *Page) HeadingTexts(ctx context.Context) ([]string, error) {
	return p.evalStrings(ctx, headingsJS)
}

func (p *Page) ClassNames(ctx context.Context) ([]string, error) {
	return p.evalStrings(ctx, classesJS)
}

func (p *Page) evalStrings(ctx context.Context, js string) ([]string, error) {
	res, err := p.with(ctx).Eval(js)
	if err != nil {
		return nil, err
	}
	return decodeStrings(res.Value.Str())
}

// Close closes the page.
func (p *Page) Close() error {
	return p.page.Close()
}

type element struct {
	el   *rod.Element
	page *Page
}

func (e *element) with(ctx context.Context) *rod.Element {
	return e.el.Context(ctx)
}

func (e *element) ContentEditable(ctx context.Context) (bool, error) {
	res, err := e.with(ctx).Eval(editableJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *element) SetValue(ctx context.Context, text string) error {
	_, err := e.with(ctx).Eval(setValueJS, text)
	return err
}

func (e *element) InsertText(ctx context.Context, text string) error {
	return e.with(ctx).Input(text)
}

func (e *element) Click(ctx context.Context) error {
	return e.with(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// ButtonWithPathSelector matches a button containing an svg path whose d
// attribute starts with prefix.
func ButtonWithPathSelector(prefix string) string {
	b, _ := json.Marshal(prefix)
	return fmt.Sprintf("button:has(svg path[d^=%s])", b)
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode page result: %w", err)
	}
	return out, nil
}
