package ingest

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lox/citywx/internal/models"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// Bounds of float64 values that convert to int64 without overflow.
const (
	minInt64Float = -9.2e18
	maxInt64Float = 9.2e18
)

// blank reports whether a raw cell carries no value.
func blank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none", "n/a", "na":
		return true
	}
	return false
}

// parseTimestamp interprets a raw timestamp. When epoch is set, an integer
// value is read as unix seconds.
func parseTimestamp(raw string, epoch bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if blank(raw) {
		return time.Time{}, false
	}
	if epoch {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return inRange(time.Unix(secs, 0).UTC())
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			if !fitsInt64(f) {
				return time.Time{}, false
			}
			return inRange(time.Unix(int64(f), 0).UTC())
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return inRange(t.UTC().Truncate(time.Second))
		}
	}
	return time.Time{}, false
}

// inRange rejects times the store could not read back.
func inRange(t time.Time) (time.Time, bool) {
	if !models.ObservedAtInRange(t) {
		return time.Time{}, false
	}
	return t, true
}

func fitsInt64(f float64) bool {
	return !math.IsNaN(f) && f >= minInt64Float && f <= maxInt64Float
}

// parseFloat returns the missing marker for absent or blank cells. ok is false
// only when a non-blank cell could not be parsed.
func parseFloat(raw string, present bool) (v sql.NullFloat64, ok bool) {
	if !present || blank(raw) {
		return sql.NullFloat64{}, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}, false
	}
	return sql.NullFloat64{Float64: f, Valid: true}, true
}

// parseInt accepts integral or fractional text ("40", "40.0") and rounds to
// the nearest integer.
func parseInt(raw string, present bool) (v sql.NullInt64, ok bool) {
	f, ok := parseFloat(raw, present)
	if !ok || !f.Valid {
		return sql.NullInt64{}, ok
	}
	if !fitsInt64(f.Float64) {
		return sql.NullInt64{}, false
	}
	return sql.NullInt64{Int64: int64(math.Round(f.Float64)), Valid: true}, true
}

// parseDescription trims and lower-cases free text.
func parseDescription(raw string, present bool) sql.NullString {
	if !present || blank(raw) {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.ToLower(strings.TrimSpace(raw)), Valid: true}
}
