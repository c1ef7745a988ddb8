package extractor

import (
	"net/url"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
)

// Field names of the chat assistant's payloads.
const (
	fieldQueries        = "search_model_queries"
	fieldClassification = "sonic_classification_result"
	fieldTurns          = "search_turns_count"
	fieldMatchedText    = "matched_text"
	fieldResultGroups   = "search_result_groups"
	fieldReferences     = "content_references"

	selectionMarker = "products"

	refTypeSearch  = "search"
	refTypeProduct = "product"
	refTypeUnknown = "unknown"
)

// Each matcher inspects a single node and never descends; the walker owns
// recursion and the accumulation rules.

func matchQueries(node *jsontree.Value) []string {
	field := node.Get(fieldQueries)
	if !field.Truthy() {
		return nil
	}
	list := field
	if inner := field.Get("queries"); inner.IsArray() {
		list = inner
	}
	if !list.IsArray() {
		return nil
	}

	var out []string
	for _, item := range list.Items {
		if item.IsString() {
			out = append(out, item.Str)
		}
	}
	return out
}

func matchClassifier(node *jsontree.Value) *capture.Scores {
	result := node.Get(fieldClassification)
	if !result.IsObject() {
		return nil
	}
	return capture.NewScores(
		result.Get("simple_search_prob").Num,
		result.Get("complex_search_prob").Num,
		result.Get("no_search_prob").Num,
	)
}

func matchTurnCount(node *jsontree.Value) *int {
	field := node.Get(fieldTurns)
	if !field.IsNumber() || field.Num == 0 {
		return nil
	}
	n := int(field.Num)
	return &n
}

// matchProductPool recognizes {type: "products", products: [...]}.
func matchProductPool(node *jsontree.Value) ([]capture.Product, []capture.CitedSource) {
	if node.Get("type").StringValue() != "products" {
		return nil, nil
	}
	list := node.Get("products")
	if !list.IsArray() {
		return nil, nil
	}

	pool := make([]capture.Product, 0, len(list.Items))
	cited := make([]capture.CitedSource, 0, len(list.Items))
	for _, p := range list.Items {
		pool = append(pool, capture.Product{
			CiteID:     p.Get("cite").Text(),
			Title:      p.Get("title").Text(),
			Price:      p.Get("price").Text(),
			Rating:     optionalNumber(p.Get("rating")),
			NumReviews: optionalNumber(p.Get("num_reviews")),
			URL:        p.Get("url").Text(),
			Merchants:  merchants(p.Get("merchants")),
		})
		cited = append(cited, productCitation(p))
	}
	return pool, cited
}

func matchSelections(node *jsontree.Value) ([]capture.Selection, error) {
	text := node.Get(fieldMatchedText).StringValue()
	if !strings.Contains(text, selectionMarker+"{") || !strings.Contains(text, "selections") {
		return nil, nil
	}

	fragment, err := ParseEmbedded(text, selectionMarker)
	if err != nil {
		return nil, err
	}
	list := fragment.Get("selections")
	if !list.Truthy() {
		return nil, nil
	}
	if !list.IsArray() {
		return nil, &ExtractionMiss{Pattern: "selections", Reason: "selections is not a list"}
	}

	out := make([]capture.Selection, 0, len(list.Items))
	for _, tuple := range list.Items {
		out = append(out, capture.Selection{
			ID:    tuple.Index(0).Text(),
			Title: tuple.Index(1).Text(),
		})
	}
	return out, nil
}

func matchRetrieved(node *jsontree.Value) []capture.RetrievedSource {
	groups := node.Get(fieldResultGroups)
	if !groups.IsArray() {
		return nil
	}

	var out []capture.RetrievedSource
	for _, group := range groups.Items {
		entries := group.Get("entries")
		if !entries.IsArray() {
			continue
		}
		for _, entry := range entries.Items {
			link := entry.Get("url")
			title := entry.Get("title")
			if !link.Truthy() || !title.Truthy() {
				continue
			}

			refType := refTypeSearch
			if rt := entry.Get("ref_id").Get("ref_type"); rt.Truthy() {
				refType = rt.Text()
			}
			domain := group.Get("domain").Text()
			if domain == "" {
				domain = hostname(link.Text())
			}

			out = append(out, capture.RetrievedSource{
				Domain:  domain,
				URL:     link.Text(),
				Title:   title.Text(),
				Snippet: entry.Get("snippet").Text(),
				RefType: refType,
			})
		}
	}
	return out
}

// citedCandidate marks citations subject to the cite id check.
type citedCandidate struct {
	source        capture.CitedSource
	skipIfCitedID bool
}

func matchCited(node *jsontree.Value) []citedCandidate {
	refs := node.Get(fieldReferences)
	if !refs.IsArray() {
		return nil
	}

	var out []citedCandidate
	for _, ref := range refs.Items {
		kind := ref.Get("type").StringValue()
		switch {
		case kind == "products" && ref.Get("products").IsArray():
			for _, p := range ref.Get("products").Items {
				out = append(out, citedCandidate{source: productCitation(p), skipIfCitedID: true})
			}
		case kind == "product_entity" && ref.Get("product").Truthy():
			out = append(out, citedCandidate{source: productCitation(ref.Get("product")), skipIfCitedID: true})
		case ref.Get("items").IsArray():
			for _, item := range ref.Get("items").Items {
				if !item.Get("url").Truthy() || !item.Get("title").Truthy() {
					continue
				}
				out = append(out, citedCandidate{source: capture.CitedSource{
					URL:         item.Get("url").Text(),
					Title:       item.Get("title").Text(),
					Attribution: item.Get("attribution").Text(),
					RefType:     itemRefType(item, ref),
				}})
			}
		}
	}
	return out
}

func itemRefType(item, group *jsontree.Value) string {
	if rt := item.Get("refs").Index(0).Get("ref_type"); rt.Truthy() {
		return rt.Text()
	}
	if rt := group.Get("refs").Index(0).Get("ref_type"); rt.Truthy() {
		return rt.Text()
	}
	return refTypeUnknown
}

func productCitation(p *jsontree.Value) capture.CitedSource {
	return capture.CitedSource{
		URL:         p.Get("url").Text(),
		Title:       p.Get("title").Text(),
		Attribution: merchants(p.Get("merchants")),
		RefType:     refTypeProduct,
		IsProduct:   true,
		Price:       p.Get("price").Text(),
		Rating:      optionalNumber(p.Get("rating")),
		NumReviews:  optionalNumber(p.Get("num_reviews")),
		CiteID:      p.Get("cite").Text(),
	}
}

// merchants accepts either a single merchant string or a list of them.
func merchants(v *jsontree.Value) string {
	if !v.IsArray() {
		return v.Text()
	}
	names := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		if name := item.Text(); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func optionalNumber(v *jsontree.Value) *float64 {
	if !v.IsNumber() || v.Num == 0 {
		return nil
	}
	n := v.Num
	return &n
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
