// Package rank picks the record that best represents a location's current
// conditions when several candidates exist.
//
// Completeness is the primary key and recency only breaks ties, so a full
// record from a few days ago beats a sparse one from this morning.
package rank

import (
	"errors"
	"sort"
	"strings"

	"github.com/lox/citywx/internal/models"
)

// ErrNoCandidates is returned by Best for an empty candidate set.
var ErrNoCandidates = errors.New("no candidate records")

// ScoredFields lists the optional fields that count toward the score, in
// display order. ObservedAt is always present and is not scored.
var ScoredFields = []string{"temperature", "feels_like", "humidity", "description", "wind_speed"}

// MaxScore is the score of a record with every scored field present.
var MaxScore = len(ScoredFields)

// Scored pairs a record with its completeness score.
type Scored struct {
	Record models.Record
	Score  int
}

// Score counts the present scored fields of r. Blank descriptions do not
// count.
func Score(r models.Record) int {
	score := 0
	if r.Temperature.Valid {
		score++
	}
	if r.FeelsLike.Valid {
		score++
	}
	if r.Humidity.Valid {
		score++
	}
	if r.Description.Valid && strings.TrimSpace(r.Description.String) != "" {
		score++
	}
	if r.WindSpeed.Valid {
		score++
	}
	return score
}

// Rank orders candidates by score, then observation time, newest first.
// Records equal on both are ordered by descending ID so the later append
// wins. The input slice is not modified.
func Rank(records []models.Record) []Scored {
	out := make([]Scored, len(records))
	for i, r := range records {
		out[i] = Scored{Record: r, Score: Score(r)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Record.ObservedAt.Equal(b.Record.ObservedAt) {
			return a.Record.ObservedAt.After(b.Record.ObservedAt)
		}
		return a.Record.ID > b.Record.ID
	})
	return out
}

// Best returns the top-ranked record.
func Best(records []models.Record) (models.Record, error) {
	if len(records) == 0 {
		return models.Record{}, ErrNoCandidates
	}
	return Rank(records)[0].Record, nil
}
