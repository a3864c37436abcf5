package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

func TestParseDecisionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"not a uuid", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
		{"null byte", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"oversized", strings.Repeat("a", 1000), true},
		{"uppercase", "550E8400-E29B-41D4-A716-446655440000", false},
		{"lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecisionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDecisionID_TextRoundTrip(t *testing.T) {
	id := NewDecisionID()
	b, err := id.MarshalText()
	require.NoError(t, err)

	var parsed DecisionID
	require.NoError(t, parsed.UnmarshalText(b))
	assert.Equal(t, id, parsed)
	assert.False(t, parsed.IsNil())
}

func FuzzParseDecisionID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("'; DROP TABLE decisions;--")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseDecisionID(input)
		if err != nil {
			return
		}
		again, err := ParseDecisionID(id.String())
		if err != nil || again != id {
			t.Errorf("round trip failed for %q", input)
		}
	})
}
