package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/jsontree"
)

// ExtractionMiss reports that a recognized pattern was present but its
// content could not be recovered. Only the affected sub-extraction is lost.
type ExtractionMiss struct {
	Pattern string
	Reason  string
	Err     error
}

func (e *ExtractionMiss) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Pattern, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Pattern, e.Reason)
}

func (e *ExtractionMiss) Unwrap() error {
	return e.Err
}

// fragmentPattern matches from the first brace after marker to the last
// closing brace in the text.
func fragmentPattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)` + regexp.QuoteMeta(marker) + `(\{.*\})`)
}

var selectionFragment = fragmentPattern(selectionMarker)

// ParseEmbedded locates the JSON object that follows marker inside text and
// decodes it. The greedy span is tried first; when that does not parse
// (trailing prose containing braces, for instance) the first balanced span
// is tried instead.
func ParseEmbedded(text, marker string) (*jsontree.Value, error) {
	re := selectionFragment
	if marker != selectionMarker {
		re = fragmentPattern(marker)
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, &ExtractionMiss{Pattern: marker, Reason: "no brace-delimited fragment after marker"}
	}

	v, greedyErr := jsontree.Parse([]byte(m[1]))
	if greedyErr == nil {
		return v, nil
	}

	span, ok := balancedSpan(m[1])
	if !ok || span == m[1] {
		return nil, &ExtractionMiss{Pattern: marker, Reason: "fragment is not valid JSON", Err: greedyErr}
	}
	v, err := jsontree.Parse([]byte(span))
	if err != nil {
		return nil, &ExtractionMiss{Pattern: marker, Reason: "fragment is not valid JSON", Err: err}
	}
	return v, nil
}

// balancedSpan returns the prefix of s (which starts with '{') up to the
// brace that closes it, ignoring braces inside JSON strings.
func balancedSpan(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
