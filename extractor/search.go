package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
)

// SearchSource labels data recovered from the search engine's own traffic.
const SearchSource = "Google Internal API"

var searchQueryFields = []string{"query", "search_query", "q", "searchQuery", "text", "prompt", "question"}

// ExtractSearch applies the search-engine heuristics: any query-like string
// field anywhere in the tree, plus "queries" lists of strings or
// {query|text} records. Candidates that look like URLs, data URIs or
// encoded blobs are dropped.
func (x *Extractor) ExtractSearch(ctx context.Context, root *jsontree.Value, from string) (*capture.SearchData, bool) {
	var found []string
	var visit func(node *jsontree.Value)
	visit = func(node *jsontree.Value) {
		if !node.IsContainer() {
			return
		}
		if node.IsObject() {
			for _, field := range searchQueryFields {
				if s := node.Get(field); s.IsString() && utf8.RuneCountInString(s.Str) > 3 {
					found = append(found, s.Str)
				}
			}
			if list := node.Get("queries"); list.IsArray() {
				for _, q := range list.Items {
					switch {
					case q.IsString():
						found = append(found, q.Str)
					case q.Get("query").Truthy():
						found = append(found, q.Get("query").Text())
					case q.Get("text").Truthy():
						found = append(found, q.Get("text").Text())
					}
				}
			}
		}
		for _, child := range node.Children() {
			visit(child)
		}
	}
	visit(root)

	var queries []string
	for _, q := range UniqueStrings(found) {
		if plausibleSearchQuery(q) {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, false
	}

	x.logger.Debug(ctx, "search queries recovered", map[string]interface{}{
		"count": len(queries),
		"from":  from,
	})
	return &capture.SearchData{
		Queries:         queries,
		Source:          SearchSource,
		InterceptedFrom: from,
	}, true
}

func plausibleSearchQuery(q string) bool {
	return utf8.RuneCountInString(q) > 5 &&
		!strings.HasPrefix(q, "data:") &&
		!strings.HasPrefix(q, "http") &&
		!strings.Contains(q, "base64")
}
