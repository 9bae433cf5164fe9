package store

import (
	"database/sql"
	"errors"

	"github.com/lox/citywx/internal/models"
)

// StartIngestRun records the start of a fetch or import and returns the run
// with its ID assigned.
func (s *Store) StartIngestRun(runUUID, source, origin string) (*models.IngestRun, error) {
	run := &models.IngestRun{
		RunUUID:   runUUID,
		StartedAt: s.clock.Now().UTC(),
		Source:    source,
		Origin:    origin,
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (run_uuid, started_at, source, origin, success)
		VALUES (?, ?, ?, ?, FALSE)
	`, run.RunUUID, run.StartedAt, run.Source, run.Origin)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *models.IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: s.clock.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			records_parsed = ?,
			records_stored = ?,
			parse_errors = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.RecordsParsed,
		run.RecordsStored, run.ParseErrors, run.Success, run.ErrorMessage, run.ID)
	return err
}

const ingestRunColumns = `id, run_uuid, started_at, finished_at, source, origin,
	http_status, records_parsed, records_stored, parse_errors, success, error_message`

func scanIngestRun(sc scanner) (models.IngestRun, error) {
	var r models.IngestRun
	err := sc.Scan(&r.ID, &r.RunUUID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Origin,
		&r.HTTPStatus, &r.RecordsParsed, &r.RecordsStored, &r.ParseErrors, &r.Success, &r.ErrorMessage)
	return r, err
}

// GetIngestRun returns the run with the given correlation ID.
func (s *Store) GetIngestRun(runUUID string) (models.IngestRun, error) {
	r, err := scanIngestRun(s.db.QueryRow(`SELECT `+ingestRunColumns+` FROM ingest_runs WHERE run_uuid = ?`, runUUID))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// RecentIngestRuns returns the latest runs, newest first.
func (s *Store) RecentIngestRuns(limit int) ([]models.IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT `+ingestRunColumns+`
		FROM ingest_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.IngestRun
	for rows.Next() {
		r, err := scanIngestRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
