package ingest

import (
	"strings"

	"github.com/lox/citywx/internal/models"
)

// Source IDs known to DefaultRegistry.
const (
	SourceOpenWeather  = "openweather"
	SourceImperialCSV  = "imperial_csv"
	SourceExtendedCSV  = "extended_csv"
	SourceTitledCSV    = "titled_csv"
	SourceHistoryCSV   = "history_csv"
	SourceReferenceCSV = "reference_csv"
)

// Layout names the native field for each canonical field. An empty name means
// the source never reports that field.
type Layout struct {
	ID          string
	Header      bool
	Columns     []string
	Location    string
	Temperature string
	FeelsLike   string
	Humidity    string
	Description string
	WindSpeed   string
	ObservedAt  string
	// EpochTime reads integer timestamps as unix seconds.
	EpochTime bool
}

// Source builds the registry entry for the layout.
func (l Layout) Source() Source {
	return Source{ID: l.ID, Header: l.Header, Columns: l.Columns, Map: l.Map}
}

func (l Layout) field(row Row, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	return row.Field(name)
}

// Map converts row into a Record.
func (l Layout) Map(row Row) (models.Record, error) {
	location, _ := l.field(row, l.Location)
	location = strings.TrimSpace(location)
	if blank(location) {
		return models.Record{}, &RejectError{Source: l.ID, Reason: ErrMissingLocation}
	}

	rawTime, _ := l.field(row, l.ObservedAt)
	observedAt, ok := parseTimestamp(rawTime, l.EpochTime)
	if !ok {
		return models.Record{}, &RejectError{Source: l.ID, Reason: ErrUnparseableTimestamp, Detail: rawTime}
	}

	rec := models.Record{
		LocationName: location,
		ObservedAt:   observedAt,
		Source:       l.ID,
	}

	var flags []string
	raw, present := l.field(row, l.Temperature)
	if rec.Temperature, ok = parseFloat(raw, present); !ok {
		flags = append(flags, FlagUnparseableTemp)
	}
	raw, present = l.field(row, l.FeelsLike)
	if rec.FeelsLike, ok = parseFloat(raw, present); !ok {
		flags = append(flags, FlagUnparseableFeelsLike)
	}
	raw, present = l.field(row, l.Humidity)
	if rec.Humidity, ok = parseInt(raw, present); !ok {
		flags = append(flags, FlagUnparseableHumidity)
	}
	raw, present = l.field(row, l.WindSpeed)
	if rec.WindSpeed, ok = parseFloat(raw, present); !ok {
		flags = append(flags, FlagUnparseableWindSpeed)
	}
	raw, present = l.field(row, l.Description)
	rec.Description = parseDescription(raw, present)

	rec.QualityFlags = append(flags, ValidateRecord(&rec)...)
	if len(rec.QualityFlags) == 0 {
		rec.QualityFlags = nil
	}
	return rec, nil
}

var (
	// OpenWeatherLayout reads the provider's current weather payload.
	OpenWeatherLayout = Layout{
		ID:          SourceOpenWeather,
		Location:    "name",
		Temperature: "main.temp",
		FeelsLike:   "main.feels_like",
		Humidity:    "main.humidity",
		Description: "weather.0.description",
		WindSpeed:   "wind.speed",
		ObservedAt:  "dt",
		EpochTime:   true,
	}

	ImperialCSVLayout = Layout{
		ID:          SourceImperialCSV,
		Header:      true,
		Location:    "city",
		Temperature: "temp_f",
		Humidity:    "humidity_pct",
		Description: "description",
		WindSpeed:   "wind_speed_mph",
		ObservedAt:  "datetime",
	}

	ExtendedCSVLayout = Layout{
		ID:          SourceExtendedCSV,
		Header:      true,
		Location:    "city",
		Temperature: "temperature",
		FeelsLike:   "feels_like",
		Humidity:    "humidity",
		Description: "weather_description",
		WindSpeed:   "wind_speed",
		ObservedAt:  "timestamp",
	}

	TitledCSVLayout = Layout{
		ID:          SourceTitledCSV,
		Header:      true,
		Location:    "City",
		Temperature: "Temperature (F)",
		Description: "Description",
		ObservedAt:  "Timestamp",
	}

	HistoryCSVLayout = Layout{
		ID:          SourceHistoryCSV,
		Columns:     []string{"dt", "name", "temp", "description"},
		Location:    "name",
		Temperature: "temp",
		Description: "description",
		ObservedAt:  "dt",
	}

	// ReferenceCSVLayout uses the canonical column names, as written by
	// store.ExportCSV.
	ReferenceCSVLayout = Layout{
		ID:          SourceReferenceCSV,
		Header:      true,
		Location:    "name",
		Temperature: "temp",
		FeelsLike:   "feels_like",
		Humidity:    "humidity",
		Description: "description",
		WindSpeed:   "speed",
		ObservedAt:  "dt",
	}
)

// DefaultRegistry returns a registry with every built-in source.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, l := range []Layout{
		OpenWeatherLayout,
		ImperialCSVLayout,
		ExtendedCSVLayout,
		TitledCSVLayout,
		HistoryCSVLayout,
		ReferenceCSVLayout,
	} {
		r.Register(l.Source())
	}
	return r
}
