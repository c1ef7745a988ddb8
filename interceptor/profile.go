package interceptor

// Profile describes which calls of one host are worth inspecting and how
// their bodies are framed.
type Profile struct {
	Name string

	// URLPatterns is the allow-list of URL substrings.
	URLPatterns []string

	// Markers are substrings at least one of which must appear in a body
	// before any parsing is attempted.
	Markers []string

	// StreamPrefix marks the payload lines of an event stream. Empty
	// disables the line-wise fallback.
	StreamPrefix string

	// StreamTerminator marks the end-of-stream line, which is skipped.
	StreamTerminator string
}

// ChatProfile covers the chat assistant's conversation API.
var ChatProfile = Profile{
	Name:        "chat",
	URLPatterns: []string{"/backend-api/", "/conversation"},
	Markers: []string{
		"search_model_queries",
		"sonic_classification_result",
		"content_references",
		"search_result_groups",
	},
	StreamPrefix:     "data: ",
	StreamTerminator: "[DONE]",
}

// SearchProfile covers the search engine's internal endpoints.
var SearchProfile = Profile{
	Name: "search",
	URLPatterns: []string{
		"/search",
		"/generate",
		"/complete",
		"bard",
		"lamda",
		"/v1/",
		"boq_searchfrontendservice",
	},
	Markers: []string{"query", "search"},
}
