// Package overview handles the search-engine side: spotting AI overviews
// on result pages and asking Gemini which searches back them.
package overview

import (
	"context"
	"strings"
)

// DOM is the read-only view of a rendered search result page.
type DOM interface {
	// Exists reports whether any element matches selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// HeadingTexts returns the text of h1, h2, h3 and role=heading elements.
	HeadingTexts(ctx context.Context) ([]string, error)
	// ClassNames returns the class attribute of every element that has one.
	ClassNames(ctx context.Context) ([]string, error)
}

// Detector decides whether a page shows AI generated content.
type Detector struct {
	Selectors    []string
	HeadingText  string
	ClassMarkers []string
}

// NewDetector returns the detector used on live result pages.
func NewDetector() *Detector {
	return &Detector{
		Selectors: []string{
			`[data-attrid="SGESourcePanel"]`,
			`[data-sge-overlay]`,
			`[aria-label*="AI overview"]`,
			`[aria-label*="AI Overview"]`,
			`[aria-label*="Generative"]`,
			`[aria-label*="generative"]`,
			`div[jsname="ZjFb9c"]`,
			`div[data-test-id="ai-response"]`,
			`div[role="region"][aria-label*="generated"]`,
			`div[data-sgeb]`,
			`div.TQc1id`,
			`div[jscontroller][jsaction*="sge"]`,
			`div[data-ved*="CAI"]`,
			`.ixp7T`,
			`.LGOjhe`,
			`[data-ai-overview]`,
			`[data-feature-type="ai_overview"]`,
		},
		HeadingText:  "AI Overview",
		ClassMarkers: []string{"ai-overview", "sge", "generative"},
	}
}

// NewBackgroundDetector returns the narrower detector used when checking a
// query in a background tab.
func NewBackgroundDetector() *Detector {
	return &Detector{
		Selectors: []string{
			`[data-attrid="SGESourcePanel"]`,
			`[data-sge-overlay]`,
			`[aria-label*="AI overview"]`,
			`[aria-label*="AI Overview"]`,
			`div[data-sgeb]`,
			`.TQc1id`,
			`.ixp7T`,
			`.LGOjhe`,
		},
		HeadingText: "AI Overview",
	}
}

// Detect reports whether dom shows an AI overview and which check matched.
// Query errors for individual selectors are ignored.
func (d *Detector) Detect(ctx context.Context, dom DOM) (bool, string) {
	for _, sel := range d.Selectors {
		if ok, err := dom.Exists(ctx, sel); err == nil && ok {
			return true, "selector " + sel
		}
	}

	if d.HeadingText != "" {
		if headings, err := dom.HeadingTexts(ctx); err == nil {
			for _, h := range headings {
				if strings.Contains(h, d.HeadingText) {
					return true, "heading text"
				}
			}
		}
	}

	if len(d.ClassMarkers) > 0 {
		if classes, err := dom.ClassNames(ctx); err == nil {
			for _, c := range classes {
				lower := strings.ToLower(c)
				for _, m := range d.ClassMarkers {
					if strings.Contains(lower, m) {
						return true, "class name " + c
					}
				}
			}
		}
	}
	return false, ""
}
