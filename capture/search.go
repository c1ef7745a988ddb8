package capture

import "time"

// Search-engine display states.
const (
	StatusDetecting = "detecting"
	StatusCalling   = "calling"
)

// Search-engine display modes.
const (
	ModeAIOverview = "ai-overview"
	ModeAIMode     = "ai-mode"
	ModeNoAI       = "no-ai"
)

// Citation is a grounding source returned by the generative service.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// SearchDisplay is the display event for the search-engine flow: either a
// progress update, a result, or an error for one search.
type SearchDisplay struct {
	Queries       []string   `json:"queries"`
	Status        string     `json:"status,omitempty"`
	StatusText    string     `json:"statusText,omitempty"`
	Source        string     `json:"source"`
	Mode          string     `json:"mode,omitempty"`
	Model         string     `json:"model,omitempty"`
	OriginalQuery string     `json:"originalQuery,omitempty"`
	Citations     []Citation `json:"citations,omitempty"`
	Error         string     `json:"error,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Pending reports whether the display is an in-progress status update.
func (d *SearchDisplay) Pending() bool {
	return d.Status == StatusDetecting || d.Status == StatusCalling
}

// SearchData is what the search-engine network heuristics recover from an
// intercepted payload.
type SearchData struct {
	Queries         []string `json:"queries"`
	Source          string   `json:"source"`
	InterceptedFrom string   `json:"interceptedFrom"`
}

// CanonicalKey mirrors Event.CanonicalKey for search-engine data.
func (d *SearchData) CanonicalKey() string {
	key := d.Source + "\x00" + d.InterceptedFrom
	for _, q := range d.Queries {
		key += "\x00" + q
	}
	return key
}
