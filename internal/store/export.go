package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportHeader is the column order written by ExportCSV. It matches the
// reference_csv import layout so an export can be imported again.
var ExportHeader = []string{"id", "name", "temp", "feels_like", "humidity", "description", "speed", "dt"}

// ExportCSV writes every record, ordered by id, and returns the number of
// rows written. Missing readings are written as empty cells.
func (s *Store) ExportCSV(w io.Writer) (int, error) {
	records, err := s.queryRecords(`SELECT ` + recordColumns + ` FROM records ORDER BY id ASC`)
	if err != nil {
		return 0, fmt.Errorf("query records: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.LocationName,
			"", "", "", "", "",
			r.ObservedAtText(),
		}
		if r.Temperature.Valid {
			row[2] = strconv.FormatFloat(r.Temperature.Float64, 'f', -1, 64)
		}
		if r.FeelsLike.Valid {
			row[3] = strconv.FormatFloat(r.FeelsLike.Float64, 'f', -1, 64)
		}
		if r.Humidity.Valid {
			row[4] = strconv.FormatInt(r.Humidity.Int64, 10)
		}
		if r.Description.Valid {
			row[5] = r.Description.String
		}
		if r.WindSpeed.Valid {
			row[6] = strconv.FormatFloat(r.WindSpeed.Float64, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(records), nil
}
