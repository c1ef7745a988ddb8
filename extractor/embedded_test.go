package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmbedded(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantFirst string
		wantMiss  bool
	}{
		{
			name:      "fragment runs to end of text",
			text:      `Here you go: products{"selections":[["p1","Lamp"]]}`,
			wantFirst: "p1",
		},
		{
			name:      "trailing braces fall back to the balanced span",
			text:      `products{"selections":[["p2","Desk"]]} and later {note}`,
			wantFirst: "p2",
		},
		{
			name:      "braces inside strings do not close the span",
			text:      `products{"selections":[["p3","Shelf {tall}"]]} {x}`,
			wantFirst: "p3",
		},
		{
			name:     "no fragment",
			text:     `products are listed below`,
			wantMiss: true,
		},
		{
			name:     "unterminated",
			text:     `products{"selections":[["p4"`,
			wantMiss: true,
		},
		{
			name:     "invalid json",
			text:     `products{selections: nope}`,
			wantMiss: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseEmbedded(tt.text, "products")
			if tt.wantMiss {
				var miss *ExtractionMiss
				assert.True(t, errors.As(err, &miss))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, v.Get("selections").Index(0).Index(0).Text())
		})
	}
}

func TestBalancedSpan(t *testing.T) {
	span, ok := balancedSpan(`{"a":{"b":"}"}}tail}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":"}"}}`, span)

	_, ok = balancedSpan(`no brace`)
	assert.False(t, ok)
}
