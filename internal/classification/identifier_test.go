package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/panel-ledger/internal/common"
)

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		wantName *string
		wantID   string
	}{
		{"plain name", "Mihai(137922)", strPtr("Mihai"), "137922"},
		{"name with space before id", "Mihai (137922)", strPtr("Mihai"), "137922"},
		{"bracketed token", "[email protected](137592)", strPtr("[email protected]"), "137592"},
		{"id only", "(221001)", nil, "221001"},
		{"last group wins", "sasuke (192)(209261)", strPtr("sasuke (192)"), "209261"},
		{"whitespace collapsed", "  Ioan   Glont (56894) ", strPtr("Ioan Glont"), "56894"},
		{"name starting with digits", "19bada(178277)", strPtr("19bada"), "178277"},
		{"diacritics kept", "Ștefan Țăranu(77)", strPtr("Ștefan Țăranu"), "77"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIdentifier(tt.fragment)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantName, got.Name)
		})
	}
}

func TestExtractIdentifier_NotFound(t *testing.T) {
	for _, fragment := range []string{"", "Mihai", "Mihai(abc)", "[token]", "Mihai()"} {
		t.Run(fragment, func(t *testing.T) {
			_, err := ExtractIdentifier(fragment)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrNoIdentifierFound)
		})
	}
}

func TestIdentifier_DisplayName(t *testing.T) {
	assert.Equal(t, "Mihai", Identifier{Name: strPtr("Mihai"), ID: "1"}.DisplayName())
	assert.Equal(t, "221001", Identifier{ID: "221001"}.DisplayName())
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
