package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePlace(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "London", "London", false},
		{"accents", "São Paulo", "São Paulo", false},
		{"country suffix", "Paris,FR", "Paris,FR", false},
		{"apostrophe", "St. John's", "St. John's", false},
		{"whitespace", "  New   York ", "New York", false},
		{"markup stripped", "<b>Berlin</b>", "Berlin", false},
		{"script removed", "<script>alert(1)</script>Oslo", "Oslo", false},
		{"empty", "", "", true},
		{"only markup", "<i></i>", "", true},
		{"symbols", "Lagos; DROP", "", true},
		{"too long", strings.Repeat("a", MaxPlaceLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlace(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	assert.NoError(t, ValidateCommand("rotate clockwise"))
	assert.Error(t, ValidateCommand("   "))
	assert.Error(t, ValidateCommand(strings.Repeat("x", MaxCommandSize+1)))
	assert.Error(t, ValidateCommand("bad\x00input"))
}

func TestFingerprintDeterministic(t *testing.T) {
	a := map[string]int{"b": 2, "a": 1}
	b := map[string]int{"a": 1, "b": 2}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
	assert.Len(t, Short(fa), 12)
}

func TestHashFieldsOrderIndependent(t *testing.T) {
	assert.Equal(t, HashFields("x", "y"), HashFields("y", "x"))
	assert.NotEqual(t, HashFields("x", "y"), HashFields("x", "z"))
}
