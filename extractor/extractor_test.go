package extractor

import (
	"context"
	"testing"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Queries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "object with queries list",
			raw:  `{"metadata": {"search_model_queries": {"type": "search_model_queries", "queries": ["best running shoes", "running shoes 2025"]}}}`,
			want: []string{"best running shoes", "running shoes 2025"},
		},
		{
			name: "bare list",
			raw:  `{"search_model_queries": ["weather paris", 42, null, "weather paris"]}`,
			want: []string{"weather paris"},
		},
		{
			name: "collected across the tree in document order",
			raw:  `{"a": {"search_model_queries": ["first"]}, "b": [{"search_model_queries": {"queries": ["second", "first"]}}]}`,
			want: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, _ := extract(t, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, ev.Queries)
		})
	}
}

func TestExtract_ClassifierFirstOccurrenceWins(t *testing.T) {
	raw := `{
		"v": {"message": {"metadata": {"sonic_classification_result": {"simple_search_prob": 0.25, "complex_search_prob": 0.7, "no_search_prob": 0.05}}}},
		"later": {"sonic_classification_result": {"simple_search_prob": 0.9, "complex_search_prob": 0.05, "no_search_prob": 0.05}}
	}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	require.NotNil(t, ev.Scores)
	assert.Equal(t, &capture.Scores{SimpleSearch: "25.000", ComplexSearch: "70.000", NoSearch: "5.000"}, ev.Scores)
}

func TestExtract_TurnCount(t *testing.T) {
	ev, ok, _ := extract(t, `{"a": {"search_turns_count": 0}, "b": {"search_turns_count": 3}, "c": {"search_turns_count": 5}}`)
	require.True(t, ok)
	require.NotNil(t, ev.SearchTurns)
	assert.Equal(t, 3, *ev.SearchTurns)
}

func TestExtract_ProductCitedOnceAcrossPoolAndReferences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "carousel reference then entity",
			raw: `{"message": {"content_references": [
				{"type": "products", "products": [{"cite": "turn0product1", "title": "Widget", "url": "https://shop.example/w", "price": "$10", "rating": 4.5, "num_reviews": 120, "merchants": "Shop"}]},
				{"type": "product_entity", "product": {"cite": "turn0product1", "title": "Widget", "url": "https://shop.example/w?ref=entity"}}
			]}}`,
		},
		{
			name: "pool before entity reference",
			raw: `{
				"pool": {"type": "products", "products": [{"cite": "turn0product1", "title": "Widget", "url": "https://shop.example/w"}]},
				"refs": {"content_references": [{"type": "product_entity", "product": {"cite": "turn0product1", "title": "Widget", "url": "https://other.example/w"}}]}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, _ := extract(t, tt.raw)
			require.True(t, ok)

			count := 0
			for _, c := range ev.SourcesCited {
				if c.CiteID == "turn0product1" {
					count++
					assert.True(t, c.IsProduct)
					assert.Equal(t, "product", c.RefType)
				}
			}
			assert.Equal(t, 1, count)
			assert.Len(t, ev.ProductsPool, 1)
		})
	}
}

func TestExtract_ProductPoolDefaults(t *testing.T) {
	ev, ok, _ := extract(t, `{"type": "products", "products": [{"title": "Bare"}, {"cite": "c2", "url": "https://x.test", "merchants": ["A", "B"], "rating": 4, "num_reviews": 10, "price": 12.5}]}`)
	require.True(t, ok)
	require.Len(t, ev.ProductsPool, 2)

	bare := ev.ProductsPool[0]
	assert.Equal(t, "Bare", bare.Title)
	assert.Equal(t, "", bare.URL)
	assert.Equal(t, "", bare.Price)
	assert.Nil(t, bare.Rating)
	assert.Nil(t, bare.NumReviews)

	full := ev.ProductsPool[1]
	assert.Equal(t, "A, B", full.Merchants)
	assert.Equal(t, "12.5", full.Price)
	require.NotNil(t, full.Rating)
	assert.Equal(t, 4.0, *full.Rating)

	assert.Len(t, ev.SourcesCited, 2)
}

func TestExtract_ProductSelections(t *testing.T) {
	raw := `{"content_references": [{"matched_text": "products{\"selections\":[[\"turn0product1\",\"Widget\"],[\"turn0product4\",\"Gadget\"]]}", "type": "products_selection"}]}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	assert.Equal(t, []capture.Selection{
		{ID: "turn0product1", Title: "Widget"},
		{ID: "turn0product4", Title: "Gadget"},
	}, ev.ProductsSelected)
}

func TestExtract_LastSelectionWins(t *testing.T) {
	raw := `{"content_references": [
		{"matched_text": "products{\"selections\":[[\"p1\",\"Draft\"]]}"},
		{"matched_text": "plain text"},
		{"matched_text": "products{\"selections\":[[\"p2\",\"Final\"],[\"p3\",\"Extra\"]]}"}
	]}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	assert.Equal(t, []capture.Selection{
		{ID: "p2", Title: "Final"},
		{ID: "p3", Title: "Extra"},
	}, ev.ProductsSelected)
}

func TestExtract_ProductPoolDedupedByCiteID(t *testing.T) {
	raw := `{"a": {"type": "products", "products": [{"cite": "c1", "title": "First"}, {"title": "Uncited"}]},
		"b": {"type": "products", "products": [{"cite": "c1", "title": "Repeat"}, {"cite": "c2", "title": "Second"}, {"title": "Uncited"}]}}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	titles := make([]string, 0, len(ev.ProductsPool))
	for _, p := range ev.ProductsPool {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"First", "Uncited", "Second", "Uncited"}, titles)
}

func TestExtract_BrokenSelectionDoesNotLoseOtherData(t *testing.T) {
	raw := `{"search_model_queries": ["still here"], "matched_text": "products{\"selections\": [[\"p1\", }"}`

	ev, ok, log := extract(t, raw)
	require.True(t, ok)
	assert.Equal(t, []string{"still here"}, ev.Queries)
	assert.Empty(t, ev.ProductsSelected)
	assert.Len(t, log.Find("sub-extraction skipped"), 1)
}

func TestExtract_RetrievedSources(t *testing.T) {
	raw := `{"search_result_groups": [
		{"domain": "example.com", "entries": [
			{"url": "https://example.com/a", "title": "A", "snippet": "about a", "ref_id": {"ref_type": "news"}},
			{"url": "https://example.com/b"}
		]},
		{"entries": [
			{"url": "https://docs.other.org/x?y=1", "title": "X"},
			{"url": "https://example.com/a", "title": "duplicate"}
		]}
	]}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	assert.Equal(t, []capture.RetrievedSource{
		{Domain: "example.com", URL: "https://example.com/a", Title: "A", Snippet: "about a", RefType: "news"},
		{Domain: "docs.other.org", URL: "https://docs.other.org/x?y=1", Title: "X", RefType: "search"},
	}, ev.SourcesRetrieved)
}

func TestExtract_CitedItemRefTypes(t *testing.T) {
	raw := `{"content_references": [
		{"refs": [{"ref_type": "webpage"}], "items": [
			{"url": "https://a.test/1", "title": "One", "attribution": "A Test"},
			{"url": "https://a.test/2", "title": "Two", "refs": [{"ref_type": "news"}]}
		]},
		{"items": [{"url": "https://b.test", "title": "B"}, {"title": "no url"}]}
	]}`

	ev, ok, _ := extract(t, raw)
	require.True(t, ok)
	require.Len(t, ev.SourcesCited, 3)
	assert.Equal(t, "webpage", ev.SourcesCited[0].RefType)
	assert.Equal(t, "A Test", ev.SourcesCited[0].Attribution)
	assert.Equal(t, "news", ev.SourcesCited[1].RefType)
	assert.Equal(t, "unknown", ev.SourcesCited[2].RefType)
	assert.False(t, ev.SourcesCited[2].IsProduct)
}

func TestExtract_NothingRecognized(t *testing.T) {
	tests := []string{
		`{}`,
		`[]`,
		`"just a string"`,
		`{"message": {"content": {"parts": ["hello"]}, "metadata": {"search_turns_count": 0}}}`,
		`{"search_model_queries": [], "search_result_groups": [{"entries": [{"title": "no url"}]}]}`,
	}

	for _, raw := range tests {
		ev, ok, _ := extract(t, raw)
		assert.False(t, ok, raw)
		assert.Nil(t, ev)
	}
}

func TestExtract_DeduplicationIsIdempotent(t *testing.T) {
	raw := `{
		"search_model_queries": ["a", "b", "a"],
		"search_result_groups": [{"domain": "d", "entries": [{"url": "https://d/1", "title": "1"}, {"url": "https://d/1", "title": "1b"}]}],
		"content_references": [{"items": [{"url": "https://c/1", "title": "c"}, {"url": "https://c/1", "title": "c again"}]}]
	}`
	root, err := jsontree.Parse([]byte(raw))
	require.NoError(t, err)
	x := New(logger.NewTestLogger())

	once, ok := x.Extract(context.Background(), root)
	require.True(t, ok)
	twice, ok := x.Extract(context.Background(), root)
	require.True(t, ok)

	assert.Equal(t, once.Queries, UniqueStrings(append(append([]string{}, once.Queries...), twice.Queries...)))
	assert.Equal(t, once.SourcesRetrieved, UniqueRetrieved(append(append([]capture.RetrievedSource{}, once.SourcesRetrieved...), twice.SourcesRetrieved...)))
	assert.Equal(t, once.SourcesCited, UniqueCited(append(append([]capture.CitedSource{}, once.SourcesCited...), twice.SourcesCited...)))
}
