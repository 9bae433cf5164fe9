package cityname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  nyc ", "New York"},
		{"NYC", "New York"},
		{"sf", "San Francisco"},
		{"  miami  ", "Miami"},
		{"bos", "Boston"},
		{"new york", "New York"},
		{"sAN aNTONIO", "San Antonio"},
		{"nycity", "Nycity"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"letters", "Boston", false},
		{"letters and spaces", "Las Vegas", false},
		{"accented letters", "São Paulo", false},
		{"digit", "B0ston", true},
		{"punctuation", "St. Louis", true},
		{"hyphen", "Winston-Salem", true},
		{"empty", "", true},
		{"whitespace only", "   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {
	name, err := Canonicalize("  nyc ")
	require.NoError(t, err)
	assert.Equal(t, "New York", name)

	_, err = Canonicalize("B0ston")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Canonicalize("   ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFromValue(t *testing.T) {
	name, err := FromValue("chi")
	require.NoError(t, err)
	assert.Equal(t, "Chicago", name)

	_, err = FromValue(42.0)
	assert.ErrorIs(t, err, ErrNotText)

	_, err = FromValue(nil)
	assert.ErrorIs(t, err, ErrNotText)
}
