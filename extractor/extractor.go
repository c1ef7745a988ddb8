// Package extractor turns intercepted payloads of unknown shape into
// normalized capture records by walking the whole tree and matching known
// field patterns wherever they occur.
package extractor

import (
	"context"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// Extractor runs the pattern walk. It is stateless apart from its logger
// and safe for concurrent use.
type Extractor struct {
	logger logger.Logger
}

// New creates an Extractor.
func New(log logger.Logger) *Extractor {
	return &Extractor{logger: logger.Component(log, "extractor")}
}

// Extract walks root and returns the normalized event, or false when the
// payload carried nothing recognizable.
func (x *Extractor) Extract(ctx context.Context, root *jsontree.Value) (*capture.Event, bool) {
	w := newWalk()
	w.visit(root)

	for _, miss := range w.misses {
		x.logger.Debug(ctx, "sub-extraction skipped", map[string]interface{}{
			"error": miss.Error(),
		})
	}

	ev := w.finish()
	if ev.Empty() {
		return nil, false
	}
	return ev, true
}

// walk accumulates matcher output for one payload. Scores and turn count
// are first-occurrence-wins; everything else appends.
type walk struct {
	ev       *capture.Event
	citedIDs map[string]bool
	misses   []error
}

func newWalk() *walk {
	return &walk{
		ev:       capture.NewEvent(),
		citedIDs: map[string]bool{},
	}
}

func (w *walk) visit(node *jsontree.Value) {
	if !node.IsContainer() {
		return
	}
	if node.IsObject() {
		w.match(node)
	}
	for _, child := range node.Children() {
		if child.IsContainer() {
			w.visit(child)
		}
	}
}

func (w *walk) match(node *jsontree.Value) {
	w.ev.Queries = append(w.ev.Queries, matchQueries(node)...)

	if w.ev.Scores == nil {
		w.ev.Scores = matchClassifier(node)
	}
	if w.ev.SearchTurns == nil {
		w.ev.SearchTurns = matchTurnCount(node)
	}

	pool, poolCited := matchProductPool(node)
	w.ev.ProductsPool = append(w.ev.ProductsPool, pool...)
	for _, c := range poolCited {
		w.cite(c, true)
	}

	selected, err := matchSelections(node)
	if err != nil {
		w.misses = append(w.misses, err)
	}
	if selected != nil {
		w.ev.ProductsSelected = selected
	}

	w.ev.SourcesRetrieved = append(w.ev.SourcesRetrieved, matchRetrieved(node)...)

	for _, c := range matchCited(node) {
		w.cite(c.source, c.skipIfCitedID)
	}
}

// cite appends a citation. Product citations whose cite id was already
// cited in this walk are dropped so a product is never counted twice.
func (w *walk) cite(c capture.CitedSource, checkID bool) {
	if checkID && c.CiteID != "" {
		if w.citedIDs[c.CiteID] {
			return
		}
	}
	if c.CiteID != "" {
		w.citedIDs[c.CiteID] = true
	}
	w.ev.SourcesCited = append(w.ev.SourcesCited, c)
}

func (w *walk) finish() *capture.Event {
	w.ev.Queries = UniqueStrings(w.ev.Queries)
	w.ev.SourcesRetrieved = UniqueRetrieved(w.ev.SourcesRetrieved)
	w.ev.SourcesCited = UniqueCited(w.ev.SourcesCited)
	w.ev.ProductsPool = UniqueProducts(w.ev.ProductsPool)
	return w.ev
}

// UniqueStrings removes repeats, keeping first appearances in order.
func UniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// UniqueRetrieved removes sources with a repeated URL, first one wins.
func UniqueRetrieved(in []capture.RetrievedSource) []capture.RetrievedSource {
	seen := make(map[string]bool, len(in))
	out := make([]capture.RetrievedSource, 0, len(in))
	for _, s := range in {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}

// UniqueCited removes citations with a repeated URL, first one wins.
func UniqueCited(in []capture.CitedSource) []capture.CitedSource {
	seen := make(map[string]bool, len(in))
	out := make([]capture.CitedSource, 0, len(in))
	for _, s := range in {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}

// UniqueProducts removes products with a repeated cite id, first one wins.
// Products without a cite id are all kept.
func UniqueProducts(in []capture.Product) []capture.Product {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := make([]capture.Product, 0, len(in))
	for _, p := range in {
		if p.CiteID != "" {
			if seen[p.CiteID] {
				continue
			}
			seen[p.CiteID] = true
		}
		out = append(out, p)
	}
	return out
}
