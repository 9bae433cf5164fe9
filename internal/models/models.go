package models

import (
	"database/sql"
	"time"
)

// ObservedAtLayout is the canonical sortable text form of Record.ObservedAt.
const ObservedAtLayout = "2006-01-02 15:04:05"

// Record is one weather observation for one place at one time, normalized
// from whichever source produced it. Optional readings use the sql.Null*
// types: Valid=false means the source did not provide the field, which is
// distinct from a reported zero.
type Record struct {
	ID           int64
	LocationName string
	Temperature  sql.NullFloat64
	FeelsLike    sql.NullFloat64
	Humidity     sql.NullInt64
	Description  sql.NullString
	WindSpeed    sql.NullFloat64
	ObservedAt   time.Time
	Source       string
	QualityFlags []string
	CreatedAt    time.Time
}

// ObservedAtText renders ObservedAt in the canonical UTC form.
func (r Record) ObservedAtText() string {
	return r.ObservedAt.UTC().Format(ObservedAtLayout)
}

// ObservedAtInRange reports whether t survives a round trip through
// ObservedAtLayout, which holds years 1 through 9999 only.
func ObservedAtInRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 1 && y <= 9999
}

// ParseObservedAt parses the canonical UTC form produced by ObservedAtText.
func ParseObservedAt(s string) (time.Time, error) {
	return time.ParseInLocation(ObservedAtLayout, s, time.UTC)
}

// Float returns a present float reading.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Int returns a present integer reading.
func Int(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

// String returns a present text value.
func String(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

// IngestRun is one fetch or bulk import, recorded for auditing.
type IngestRun struct {
	ID            int64
	RunUUID       string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	Source        string // mapper source ID, e.g. "openweather", "imperial_csv"
	Origin        string // city looked up, or the file/URL imported
	HTTPStatus    sql.NullInt64
	RecordsParsed sql.NullInt64
	RecordsStored sql.NullInt64
	ParseErrors   sql.NullInt64
	Success       bool
	ErrorMessage  sql.NullString
}

// Stats summarises the record store.
type Stats struct {
	TotalRecords           int
	UniqueCities           int
	FeelsLikeRecords       int
	CompletenessPercentage float64
}
