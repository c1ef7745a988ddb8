// Package capture defines the normalized records produced by the extraction
// pipeline and consumed by the batch orchestrator, history and exports.
package capture

import (
	"encoding/json"
	"strconv"
)

// Scores is one classifier decision expressed as percentages with three
// decimals. The three values are not required to sum to 100.
type Scores struct {
	SimpleSearch  string `json:"simpleSearch"`
	ComplexSearch string `json:"complexSearch"`
	NoSearch      string `json:"noSearch"`
}

// NewScores converts raw probabilities into percentage strings.
func NewScores(simple, complex, none float64) *Scores {
	return &Scores{
		SimpleSearch:  Percent(simple),
		ComplexSearch: Percent(complex),
		NoSearch:      Percent(none),
	}
}

// Percent renders a probability in [0,1] as a percentage with 3 decimals.
func Percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 3, 64)
}

// RetrievedSource is a search candidate fetched by the agent.
type RetrievedSource struct {
	Domain  string `json:"domain"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	RefType string `json:"refType"`
}

// CitedSource is a source the agent used in its answer. Product citations
// carry the pricing fields and the cite id shared with the product pool.
type CitedSource struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Attribution string   `json:"attribution"`
	RefType     string   `json:"refType"`
	IsProduct   bool     `json:"isProduct"`
	Price       string   `json:"price,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	NumReviews  *float64 `json:"numReviews,omitempty"`
	CiteID      string   `json:"cite,omitempty"`
}

// Product is one shopping-carousel candidate.
type Product struct {
	CiteID     string   `json:"cite"`
	Title      string   `json:"title"`
	Price      string   `json:"price"`
	Rating     *float64 `json:"rating"`
	NumReviews *float64 `json:"numReviews"`
	URL        string   `json:"url"`
	Merchants  string   `json:"merchants"`
}

// Selection is a product the agent chose to display, referenced by cite id.
type Selection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Event is one normalized snapshot extracted from a single payload.
type Event struct {
	Queries          []string          `json:"queries"`
	Scores           *Scores           `json:"scores"`
	SearchTurns      *int              `json:"searchTurns"`
	SourcesRetrieved []RetrievedSource `json:"sourcesRetrieved"`
	SourcesCited     []CitedSource     `json:"sourcesCited"`
	ProductsPool     []Product         `json:"productsPool"`
	ProductsSelected []Selection       `json:"productsSelected"`
}

// NewEvent returns an event with empty, non-nil collections so that it
// serializes with [] rather than null.
func NewEvent() *Event {
	return &Event{
		Queries:          []string{},
		SourcesRetrieved: []RetrievedSource{},
		SourcesCited:     []CitedSource{},
		ProductsPool:     []Product{},
		ProductsSelected: []Selection{},
	}
}

// Empty reports whether the event carries no data in any field.
func (e *Event) Empty() bool {
	if e == nil {
		return true
	}
	return len(e.Queries) == 0 &&
		e.Scores == nil &&
		e.SearchTurns == nil &&
		len(e.SourcesRetrieved) == 0 &&
		len(e.SourcesCited) == 0 &&
		len(e.ProductsPool) == 0 &&
		len(e.ProductsSelected) == 0
}

// CanonicalKey is the serialization used to recognize repeated events.
// Field order is fixed by the struct, so equal events give equal keys.
func (e *Event) CanonicalKey() string {
	data, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(data)
}

// CitedURLs lists the URLs of all cited sources in order.
func (e *Event) CitedURLs() []string {
	urls := make([]string, 0, len(e.SourcesCited))
	for _, s := range e.SourcesCited {
		urls = append(urls, s.URL)
	}
	return urls
}
