package ingest

import (
	"encoding/json"

	"github.com/lox/citywx/internal/models"
)

const (
	FlagTempOutOfRange       = "temp_out_of_range"
	FlagFeelsLikeOutOfRange  = "feels_like_out_of_range"
	FlagHumidityInvalid      = "humidity_invalid"
	FlagWindSpeedNegative    = "wind_speed_negative"
	FlagUnparseableTemp      = "unparseable_temp"
	FlagUnparseableFeelsLike = "unparseable_feels_like"
	FlagUnparseableHumidity  = "unparseable_humidity"
	FlagUnparseableWindSpeed = "unparseable_wind_speed"
)

// Plausible temperature band wide enough for either unit system.
const (
	minPlausibleTemp = -130.0
	maxPlausibleTemp = 140.0
)

// ValidateRecord returns plausibility flags for present readings. Flags are
// informational; a flagged record is still stored.
func ValidateRecord(r *models.Record) []string {
	var flags []string

	if r.Temperature.Valid {
		if r.Temperature.Float64 < minPlausibleTemp || r.Temperature.Float64 > maxPlausibleTemp {
			flags = append(flags, FlagTempOutOfRange)
		}
	}

	if r.FeelsLike.Valid {
		if r.FeelsLike.Float64 < minPlausibleTemp || r.FeelsLike.Float64 > maxPlausibleTemp {
			flags = append(flags, FlagFeelsLikeOutOfRange)
		}
	}

	if r.Humidity.Valid {
		if r.Humidity.Int64 < 0 || r.Humidity.Int64 > 100 {
			flags = append(flags, FlagHumidityInvalid)
		}
	}

	if r.WindSpeed.Valid && r.WindSpeed.Float64 < 0 {
		flags = append(flags, FlagWindSpeedNegative)
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}

func QualityFlagsFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var flags []string
	if err := json.Unmarshal([]byte(s), &flags); err != nil {
		return nil
	}
	return flags
}
