package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lox/citywx/internal/ingest"
	"github.com/lox/citywx/internal/models"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
	log   *zap.Logger
}

// New wraps an open database. A nil clock uses the real clock and a nil
// logger discards output.
func New(db *sql.DB, clock clockwork.Clock, log *zap.Logger) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, clock: clock, log: log}
}

const recordColumns = `id, location_name, temperature, feels_like, humidity, description, wind_speed, observed_at, source, quality_flags, created_at`

// AppendRecord stores r and returns it with ID and CreatedAt assigned.
// Records are never updated once appended.
func (s *Store) AppendRecord(r models.Record) (models.Record, error) {
	r.LocationName = strings.TrimSpace(r.LocationName)
	if r.LocationName == "" {
		return r, ingest.ErrMissingLocation
	}
	if r.ObservedAt.IsZero() {
		return r, ingest.ErrUnparseableTimestamp
	}
	if !models.ObservedAtInRange(r.ObservedAt) {
		return r, fmt.Errorf("%w: %s out of range", ingest.ErrUnparseableTimestamp, r.ObservedAt.UTC().Format(time.RFC3339))
	}
	r.CreatedAt = s.clock.Now().UTC().Truncate(0)

	var flags sql.NullString
	if js := ingest.QualityFlagsToJSON(r.QualityFlags); js != "" {
		flags = sql.NullString{String: js, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO records (location_name, temperature, feels_like, humidity, description, wind_speed, observed_at, source, quality_flags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.LocationName, r.Temperature, r.FeelsLike, r.Humidity, r.Description, r.WindSpeed,
		r.ObservedAtText(), r.Source, flags, r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return r, fmt.Errorf("insert record: %w", err)
	}

	r.ID, err = result.LastInsertId()
	if err != nil {
		return r, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.Record, error) {
	var (
		r                   models.Record
		observedAt, created string
		flags               sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.LocationName, &r.Temperature, &r.FeelsLike, &r.Humidity,
		&r.Description, &r.WindSpeed, &observedAt, &r.Source, &flags, &created); err != nil {
		return r, err
	}
	t, err := models.ParseObservedAt(observedAt)
	if err != nil {
		return r, fmt.Errorf("record %d: parse observed_at: %w", r.ID, err)
	}
	r.ObservedAt = t
	if ct, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.CreatedAt = ct
	}
	if flags.Valid {
		r.QualityFlags = ingest.QualityFlagsFromJSON(flags.String)
	}
	return r, nil
}

func (s *Store) queryRecords(query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordsByLocation returns every record for name, matched case-insensitively,
// oldest first.
func (s *Store) RecordsByLocation(name string) ([]models.Record, error) {
	return s.queryRecords(`
		SELECT `+recordColumns+`
		FROM records
		WHERE location_name = ? COLLATE NOCASE
		ORDER BY observed_at ASC, id ASC
	`, strings.TrimSpace(name))
}

// LatestRecord returns the most recently observed record for name.
func (s *Store) LatestRecord(name string) (models.Record, error) {
	row := s.db.QueryRow(`
		SELECT `+recordColumns+`
		FROM records
		WHERE location_name = ? COLLATE NOCASE
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, strings.TrimSpace(name))

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrNotFound
	}
	return r, err
}

// MostRecentLocation returns the location of the most recently observed
// record, or ErrNotFound when the store is empty.
func (s *Store) MostRecentLocation() (string, error) {
	var name string
	err := s.db.QueryRow(`
		SELECT location_name FROM records
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// Locations returns each distinct location once, ignoring case, sorted.
func (s *Store) Locations() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT MIN(location_name) AS name FROM records
		GROUP BY location_name COLLATE NOCASE
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) LocationCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT location_name COLLATE NOCASE) FROM records`).Scan(&n)
	return n, err
}

// Stats summarises the records table. CompletenessPercentage is the share of
// records that carry a feels-like reading.
func (s *Store) Stats() (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT location_name COLLATE NOCASE),
			COUNT(feels_like)
		FROM records
	`).Scan(&st.TotalRecords, &st.UniqueCities, &st.FeelsLikeRecords)
	if err != nil {
		return st, err
	}
	if st.TotalRecords > 0 {
		st.CompletenessPercentage = float64(st.FeelsLikeRecords) / float64(st.TotalRecords) * 100
	}
	return st, nil
}
