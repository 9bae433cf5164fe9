// Package cityname canonicalizes free-text city input before it is used as a
// lookup key for the weather provider or the record store.
package cityname

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrInvalid is returned for empty names or names containing anything
	// other than letters and spaces.
	ErrInvalid = errors.New("invalid city name")
	// ErrNotText is returned when the input value is not a string.
	ErrNotText = errors.New("city name must be text")
)

var shorthands = map[string]string{
	"nyc": "New York",
	"sf":  "San Francisco",
	"la":  "Los Angeles",
	"dc":  "Washington",
	"phx": "Phoenix",
	"chi": "Chicago",
	"bos": "Boston",
	"dal": "Dallas",
	"phl": "Philadelphia",
	"sea": "Seattle",
	"lv":  "Las Vegas",
	"mia": "Miami",
}

// Normalize trims and case-folds s, expands a known shorthand on an exact
// match, and title-cases the result.
func Normalize(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if full, ok := shorthands[key]; ok {
		key = full
	}
	return titleCase(key)
}

// Validate reports whether s is a plausible city name.
func Validate(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	for _, r := range trimmed {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	return nil
}

// Canonicalize normalizes s and validates the result.
func Canonicalize(s string) (string, error) {
	name := Normalize(s)
	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

// FromValue canonicalizes a loosely typed value, such as a field decoded
// from a JSON body.
func FromValue(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrNotText, v)
	}
	return Canonicalize(s)
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest. A word starts after any non-letter.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
