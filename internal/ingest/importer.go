package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/lox/citywx/internal/models"
)

// ErrNotCSV is returned for sources that cannot be read as CSV.
var ErrNotCSV = errors.New("source has no CSV layout")

// ImportResult is one row of a bulk import: either a Record or the reason the
// row was dropped.
type ImportResult struct {
	Line   int
	Record models.Record
	Err    error
}

// Importer reads CSV input in one source's column layout.
type Importer struct {
	src Source
}

func NewImporter(src Source) *Importer {
	return &Importer{src: src}
}

// Importer returns an importer for the named source.
func (r *Registry) Importer(sourceID string) (*Importer, error) {
	src, err := r.Lookup(sourceID)
	if err != nil {
		return nil, err
	}
	if !src.Header && len(src.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotCSV, src.ID)
	}
	return NewImporter(src), nil
}

func (imp *Importer) SourceID() string { return imp.src.ID }

// Rows lazily yields one result per data row of in. Rejected and malformed
// rows are yielded with Err set and reading continues; an I/O error is
// yielded once and ends the sequence.
func (imp *Importer) Rows(in io.Reader) iter.Seq[ImportResult] {
	return func(yield func(ImportResult) bool) {
		cr := csv.NewReader(in)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true

		columns := imp.src.Columns
		if imp.src.Header {
			header, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(ImportResult{Line: 1, Err: err})
				return
			}
			columns = cleanHeader(header)
		}

		for {
			fields, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					if !yield(ImportResult{Line: pe.Line, Err: err}) {
						return
					}
					continue
				}
				yield(ImportResult{Err: err})
				return
			}

			line, _ := cr.FieldPos(0)
			row := make(MapRow, len(columns))
			for i, name := range columns {
				if i < len(fields) {
					row[name] = fields[i]
				}
			}

			rec, err := imp.src.Map(row)
			if !yield(ImportResult{Line: line, Record: rec, Err: err}) {
				return
			}
		}
	}
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// IsRowError reports whether err affects a single row only: a rejected
// mapping or a malformed CSV line. Other import errors end the import.
func IsRowError(err error) bool {
	var rej *RejectError
	var pe *csv.ParseError
	return errors.As(err, &rej) || errors.As(err, &pe)
}
