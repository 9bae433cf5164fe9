package weather

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lox/citywx/internal/cityname"
)

// ErrSameCity is returned when both sides of a comparison name one city.
var ErrSameCity = errors.New("cannot compare a city with itself")

// humidityNoticeGap is the smallest humidity difference, in percentage
// points, worth mentioning in a summary.
const humidityNoticeGap = 5

// Field markers for a side-by-side comparison.
const (
	MarkerHigher = "higher"
	MarkerLower  = "lower"
	MarkerEqual  = "equal"
)

// FieldComparison marks how city A's reading relates to city B's. Marker is
// empty when either side is missing the field.
type FieldComparison struct {
	Field  string
	Marker string
}

type Comparison struct {
	A       Conditions
	B       Conditions
	Fields  []FieldComparison
	Summary []string
}

// SimilarSummary is used when no difference is worth reporting.
const SimilarSummary = "Both cities have similar weather conditions."

// Compare returns the best records for two cities and a plain-language
// summary of how they differ.
func (s *Service) Compare(cityA, cityB string) (Comparison, error) {
	nameA, err := cityname.Canonicalize(cityA)
	if err != nil {
		return Comparison{}, err
	}
	nameB, err := cityname.Canonicalize(cityB)
	if err != nil {
		return Comparison{}, err
	}
	if strings.EqualFold(nameA, nameB) {
		return Comparison{}, fmt.Errorf("%w: %s", ErrSameCity, nameA)
	}

	a, err := s.Current(nameA)
	if err != nil {
		return Comparison{}, err
	}
	b, err := s.Current(nameB)
	if err != nil {
		return Comparison{}, err
	}
	return compareConditions(a, b, s.tempUnit(), s.windUnit()), nil
}

func (s *Service) tempUnit() string {
	if s.fahrenheit {
		return "°F"
	}
	return "°C"
}

func (s *Service) windUnit() string {
	if s.fahrenheit {
		return "mph"
	}
	return "m/s"
}

func compareConditions(a, b Conditions, tempUnit, windUnit string) Comparison {
	ra, rb := a.Record, b.Record
	cmp := Comparison{A: a, B: b}

	type reading struct {
		field string
		a, b  float64
		ok    bool
	}
	readings := []reading{
		{"temperature", ra.Temperature.Float64, rb.Temperature.Float64, ra.Temperature.Valid && rb.Temperature.Valid},
		{"feels_like", ra.FeelsLike.Float64, rb.FeelsLike.Float64, ra.FeelsLike.Valid && rb.FeelsLike.Valid},
		{"humidity", float64(ra.Humidity.Int64), float64(rb.Humidity.Int64), ra.Humidity.Valid && rb.Humidity.Valid},
		{"wind_speed", ra.WindSpeed.Float64, rb.WindSpeed.Float64, ra.WindSpeed.Valid && rb.WindSpeed.Valid},
	}
	for _, r := range readings {
		fc := FieldComparison{Field: r.field}
		if r.ok {
			switch {
			case r.a > r.b:
				fc.Marker = MarkerHigher
			case r.a < r.b:
				fc.Marker = MarkerLower
			default:
				fc.Marker = MarkerEqual
			}
		}
		cmp.Fields = append(cmp.Fields, fc)
	}

	larger := func(x, y float64) string {
		if x > y {
			return a.City
		}
		return b.City
	}

	if ra.Temperature.Valid && rb.Temperature.Valid {
		x, y := ra.Temperature.Float64, rb.Temperature.Float64
		cmp.Summary = append(cmp.Summary, fmt.Sprintf("%s is warmer by %.1f%s", larger(x, y), math.Abs(x-y), tempUnit))
	}
	if ra.WindSpeed.Valid && rb.WindSpeed.Valid {
		x, y := ra.WindSpeed.Float64, rb.WindSpeed.Float64
		cmp.Summary = append(cmp.Summary, fmt.Sprintf("%s has stronger winds by %.1f %s", larger(x, y), math.Abs(x-y), windUnit))
	}
	if ra.Humidity.Valid && rb.Humidity.Valid {
		x, y := ra.Humidity.Int64, rb.Humidity.Int64
		gap := x - y
		if gap < 0 {
			gap = -gap
		}
		if gap > humidityNoticeGap {
			cmp.Summary = append(cmp.Summary, fmt.Sprintf("%s is more humid by %d%%", larger(float64(x), float64(y)), gap))
		}
	}
	if len(cmp.Summary) == 0 {
		cmp.Summary = []string{SimilarSummary}
	}
	return cmp
}
