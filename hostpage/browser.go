// Package hostpage drives the real browser: it hands pages to the batch
// orchestrator and the overview detector, and taps their network traffic
// into the interceptors.
package hostpage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
)

// Config controls how the browser is started.
type Config struct {
	// ControlURL attaches to an already running browser when set.
	ControlURL string
	Bin        string
	Headless   bool
	// UserDataDir keeps logins between runs.
	UserDataDir string
	LoadTimeout time.Duration
}

// Browser is a connected browser.
type Browser struct {
	cfg      Config
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   logger.Logger
}

// Launch starts or attaches to a browser.
func Launch(ctx context.Context, cfg Config, log logger.Logger) (*Browser, error) {
	log = logger.Component(log, "hostpage")

	controlURL := cfg.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.UserDataDir != "" {
			l = l.UserDataDir(cfg.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Info(ctx, "browser connected", map[string]interface{}{
		"control_url": controlURL,
		"headless":    cfg.Headless,
	})
	return &Browser{cfg: cfg, browser: browser, launcher: l, logger: log}, nil
}

// Open creates a foreground page at url.
func (b *Browser) Open(ctx context.Context, url string) (*Page, error) {
	p, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return newPage(p, b.cfg.LoadTimeout), nil
}

// OpenBackground opens url in a background tab and waits for it to load.
func (b *Browser) OpenBackground(ctx context.Context, url string) (overview.Tab, error) {
	p, err := b.browser.Page(proto.TargetCreateTarget{URL: url, Background: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open background tab: %w", err)
	}
	page := newPage(p, b.cfg.LoadTimeout)
	if err := page.waitLoad(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return page, nil
}

// Close disconnects and, when the browser was launched here, stops it.
func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return err
}
