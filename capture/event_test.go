package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.000"},
		{1, "100.000"},
		{0.123456, "12.346"},
		{0.5, "50.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.in))
	}
}

func TestEvent_Empty(t *testing.T) {
	turns := 2

	tests := []struct {
		name  string
		event *Event
		want  bool
	}{
		{name: "nil", event: nil, want: true},
		{name: "fresh", event: NewEvent(), want: true},
		{name: "queries", event: &Event{Queries: []string{"q"}}, want: false},
		{name: "scores", event: &Event{Scores: NewScores(0.1, 0.2, 0.7)}, want: false},
		{name: "turns only", event: &Event{SearchTurns: &turns}, want: false},
		{name: "selection only", event: &Event{ProductsSelected: []Selection{{ID: "1"}}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Empty())
		})
	}
}

func TestEvent_CanonicalKeyStable(t *testing.T) {
	a := NewEvent()
	a.Queries = []string{"best laptop 2025"}
	b := NewEvent()
	b.Queries = []string{"best laptop 2025"}

	assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())

	b.Queries = append(b.Queries, "cheap laptop")
	assert.NotEqual(t, a.CanonicalKey(), b.CanonicalKey())
	assert.Contains(t, a.CanonicalKey(), `"sourcesCited":[]`)
}
