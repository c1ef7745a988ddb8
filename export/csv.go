// Package export renders batch, search and history results as CSV and
// publishes them to blob storage.
package export

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/batch"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/overview"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
)

// listSeparator joins multi-valued cells.
const listSeparator = " | "

var (
	batchHeader   = []string{"Prompt", "Search Queries", "Query Count", "Simple Search %", "Complex Search %", "No Search %", "Search Turns", "Sources Retrieved", "Sources Cited", "Cited URLs", "Timestamp"}
	searchHeader  = []string{"Original Query", "Generated Queries", "Has AI Overview", "Mode", "Query Count"}
	historyHeader = []string{"Timestamp", "Source", "Query"}
)

// cell is one CSV field. Text cells are always quoted; numeric and flag
// cells are written bare.
type cell struct {
	value  string
	quoted bool
}

func text(s string) cell { return cell{value: s, quoted: true} }
func bare(s string) cell { return cell{value: s} }
func count(n int) cell   { return bare(strconv.Itoa(n)) }

type table struct {
	buf bytes.Buffer
}

func newTable(header []string) *table {
	t := &table{}
	t.buf.WriteString(strings.Join(header, ","))
	t.buf.WriteByte('\n')
	return t
}

func (t *table) row(cells ...cell) {
	for i, c := range cells {
		if i > 0 {
			t.buf.WriteByte(',')
		}
		if c.quoted {
			t.buf.WriteByte('"')
			t.buf.WriteString(strings.ReplaceAll(c.value, `"`, `""`))
			t.buf.WriteByte('"')
		} else {
			t.buf.WriteString(c.value)
		}
	}
	t.buf.WriteByte('\n')
}

func (t *table) bytes() []byte { return t.buf.Bytes() }

// BatchCSV renders one row per prompt that produced a result. Prompts that
// were never reached are skipped.
func BatchCSV(run *batch.Run) []byte {
	t := newTable(batchHeader)
	if run == nil {
		return t.bytes()
	}

	for _, r := range run.Results {
		if r == nil {
			continue
		}
		var simple, complexPct, none string
		if r.Scores != nil {
			simple, complexPct, none = r.Scores.SimpleSearch, r.Scores.ComplexSearch, r.Scores.NoSearch
		}
		turns := ""
		if r.SearchTurns != nil {
			turns = strconv.Itoa(*r.SearchTurns)
		}

		t.row(
			text(r.Prompt),
			text(strings.Join(r.Queries, listSeparator)),
			count(len(r.Queries)),
			bare(simple),
			bare(complexPct),
			bare(none),
			bare(turns),
			count(len(r.SourcesRetrieved)),
			count(len(r.SourcesCited)),
			text(strings.Join(r.CitedURLs(), listSeparator)),
			text(timestamp(r.Timestamp)),
		)
	}
	return t.bytes()
}

// SearchCSV renders a search batch report.
func SearchCSV(reports []overview.QueryReport) []byte {
	t := newTable(searchHeader)
	for _, r := range reports {
		hasAI := "No"
		if r.HasAIOverview {
			hasAI = "Yes"
		}
		mode := "Regular"
		if r.AIMode {
			mode = "AI Mode"
		}
		t.row(
			text(r.OriginalQuery),
			text(strings.Join(r.SearchQueries, listSeparator)),
			bare(hasAI),
			bare(mode),
			count(len(r.SearchQueries)),
		)
	}
	return t.bytes()
}

// HistoryCSV renders one row per recorded query.
func HistoryCSV(entries []session.HistoryEntry) []byte {
	t := newTable(historyHeader)
	for _, e := range entries {
		for _, q := range e.Queries {
			t.row(text(timestamp(e.Timestamp)), text(e.Source), text(q))
		}
	}
	return t.bytes()
}

func timestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
