// Package alerts derives weather alerts from a single record using fixed
// threshold tables for Fahrenheit and Celsius readings.
package alerts

import (
	"fmt"

	"github.com/lox/citywx/internal/models"
)

// Category groups rules that share an input field.
type Category string

const (
	CategoryTemperature Category = "temperature"
	CategoryWind        Category = "wind"
)

// Alert names.
const (
	ExtremeHeatWarning = "extreme heat warning"
	HeatAdvisory       = "heat advisory"
	ExtremeColdWarning = "extreme cold warning"
	WindChillAdvisory  = "wind chill advisory"
	HighWindAdvisory   = "high wind advisory"
	WindWatch          = "wind watch"
)

// Status summarises a Result.
type Status string

const (
	StatusAllClear         Status = "all_clear"
	StatusActive           Status = "active"
	StatusInsufficientData Status = "insufficient_data"
)

// Alert is one fired rule.
type Alert struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Unit      string   `json:"unit"`
	// Above is true for rules that fire at or above Threshold.
	Above bool `json:"-"`
}

// Message renders the alert for display, e.g.
// "Feels like 106.0°F (105°F+ threshold)".
func (a Alert) Message() string {
	label := "Feels like"
	if a.Category == CategoryWind {
		label = "Wind speed"
	}
	bound := "+"
	if !a.Above {
		bound = " or below"
	}
	return fmt.Sprintf("%s %.1f%s (%s%s%s threshold)", label, a.Value, a.Unit, formatThreshold(a.Threshold), a.Unit, bound)
}

func formatThreshold(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

// Result is the outcome of evaluating one record.
type Result struct {
	Alerts  []Alert    `json:"alerts"`
	Skipped []Category `json:"skipped,omitempty"`
}

// Names returns the fired alert names in table order.
func (r Result) Names() []string {
	names := make([]string, len(r.Alerts))
	for i, a := range r.Alerts {
		names[i] = a.Name
	}
	return names
}

// Status reports active when any alert fired. With no alerts it is
// insufficient_data if a category was skipped, otherwise all_clear.
func (r Result) Status() Status {
	switch {
	case len(r.Alerts) > 0:
		return StatusActive
	case len(r.Skipped) > 0:
		return StatusInsufficientData
	default:
		return StatusAllClear
	}
}

// SkippedCategory reports whether c could not be evaluated.
func (r Result) SkippedCategory(c Category) bool {
	for _, s := range r.Skipped {
		if s == c {
			return true
		}
	}
	return false
}

type rule struct {
	name      string
	threshold float64
	above     bool
}

func (r rule) fires(v float64) bool {
	if r.above {
		return v >= r.threshold
	}
	return v <= r.threshold
}

type table struct {
	unit     string
	windUnit string
	heat     []rule
	cold     []rule
	wind     []rule
}

// Within each band the more severe rule comes first and at most one rule per
// band fires, so adjacent bands never double up.
var (
	fahrenheitTable = table{
		unit:     "°F",
		windUnit: " mph",
		heat:     []rule{{ExtremeHeatWarning, 105, true}, {HeatAdvisory, 100, true}},
		cold:     []rule{{ExtremeColdWarning, 20, false}, {WindChillAdvisory, 32, false}},
		wind:     []rule{{HighWindAdvisory, 30, true}, {WindWatch, 20, true}},
	}
	celsiusTable = table{
		unit:     "°C",
		windUnit: " m/s",
		heat:     []rule{{ExtremeHeatWarning, 40.6, true}, {HeatAdvisory, 37.8, true}},
		cold:     []rule{{ExtremeColdWarning, -6.7, false}, {WindChillAdvisory, 0, false}},
		wind:     []rule{{HighWindAdvisory, 30, true}, {WindWatch, 20, true}},
	}
)

func firstMatch(rules []rule, v float64, c Category, unit string) (Alert, bool) {
	for _, r := range rules {
		if r.fires(v) {
			return Alert{Name: r.name, Category: c, Value: v, Threshold: r.threshold, Unit: unit, Above: r.above}, true
		}
	}
	return Alert{}, false
}

// Evaluate applies the threshold table for the unit system to rec. A missing
// feels-like or wind speed skips that category rather than clearing it.
func Evaluate(rec models.Record, fahrenheit bool) Result {
	t := celsiusTable
	if fahrenheit {
		t = fahrenheitTable
	}

	res := Result{Alerts: []Alert{}}
	if rec.FeelsLike.Valid {
		v := rec.FeelsLike.Float64
		if a, ok := firstMatch(t.heat, v, CategoryTemperature, t.unit); ok {
			res.Alerts = append(res.Alerts, a)
		}
		if a, ok := firstMatch(t.cold, v, CategoryTemperature, t.unit); ok {
			res.Alerts = append(res.Alerts, a)
		}
	} else {
		res.Skipped = append(res.Skipped, CategoryTemperature)
	}

	if rec.WindSpeed.Valid {
		if a, ok := firstMatch(t.wind, rec.WindSpeed.Float64, CategoryWind, t.windUnit); ok {
			res.Alerts = append(res.Alerts, a)
		}
	} else {
		res.Skipped = append(res.Skipped, CategoryWind)
	}
	return res
}
