package weather

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lox/citywx/internal/cityname"
	"github.com/lox/citywx/internal/ingest"
	"github.com/lox/citywx/internal/metrics"
)

// maxReportedRejects caps the per-line errors kept in an ImportSummary.
const maxReportedRejects = 20

// LineError is a row dropped during import.
type LineError struct {
	Line int
	Err  error
}

type ImportSummary struct {
	RunUUID  string
	Source   string
	Parsed   int
	Stored   int
	Rejected int
	Rejects  []LineError
}

// Import normalizes and stores every row of r read in the named source's
// layout. Rejected rows are counted and skipped. A read error stops the
// import and is returned along with the partial summary.
func (s *Service) Import(ctx context.Context, sourceID string, r io.Reader, origin string) (ImportSummary, error) {
	imp, err := s.registry.Importer(sourceID)
	if err != nil {
		return ImportSummary{}, err
	}

	run, err := s.store.StartIngestRun(s.newRunID(), imp.SourceID(), origin)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("start ingest run: %w", err)
	}
	log := s.log.With(zap.String("run", run.RunUUID), zap.String("source", imp.SourceID()), zap.String("origin", origin))
	log.Info("import: reading rows")

	sum := ImportSummary{RunUUID: run.RunUUID, Source: imp.SourceID()}
	var fatal error
	for res := range imp.Rows(r) {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}
		if res.Err != nil && !ingest.IsRowError(res.Err) {
			fatal = fmt.Errorf("line %d: %w", res.Line, res.Err)
			break
		}

		rec := res.Record
		rowErr := res.Err
		if rowErr == nil {
			rec.LocationName = cityname.Normalize(rec.LocationName)
			if err := cityname.Validate(rec.LocationName); err != nil {
				rowErr = &ingest.RejectError{Source: imp.SourceID(), Reason: err}
			}
		}
		if rowErr != nil {
			sum.Rejected++
			if len(sum.Rejects) < maxReportedRejects {
				sum.Rejects = append(sum.Rejects, LineError{Line: res.Line, Err: rowErr})
			}
			metrics.RecordsRejected.WithLabelValues(imp.SourceID(), rejectReason(rowErr)).Inc()
			log.Debug("import: rejected row", zap.Int("line", res.Line), zap.Error(rowErr))
			continue
		}

		sum.Parsed++
		if _, err := s.store.AppendRecord(rec); err != nil {
			fatal = fmt.Errorf("line %d: store record: %w", res.Line, err)
			break
		}
		sum.Stored++
		metrics.RecordsIngested.WithLabelValues(imp.SourceID()).Inc()
	}

	run.RecordsParsed = sql.NullInt64{Int64: int64(sum.Parsed + sum.Rejected), Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: int64(sum.Stored), Valid: true}
	run.ParseErrors = sql.NullInt64{Int64: int64(sum.Rejected), Valid: true}
	run.Success = fatal == nil
	if fatal != nil {
		run.ErrorMessage = sql.NullString{String: fatal.Error(), Valid: true}
	}
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Error("import: complete ingest run", zap.Error(err))
	}

	log.Info("import: stored rows",
		zap.Int("stored", sum.Stored),
		zap.Int("rejected", sum.Rejected),
		zap.Bool("success", run.Success))
	return sum, fatal
}
