// Package config holds settings shared by every citywx command. Values come
// from flags, then the environment, then a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	UnitFahrenheit = "fahrenheit"
	UnitCelsius    = "celsius"
)

// Settings are the global flags. They are embedded in the kong CLI struct.
type Settings struct {
	DB              string        `name:"db" env:"CITYWX_DB" default:"data/citywx.db" help:"Path to SQLite database."`
	APIKey          string        `name:"api-key" env:"OPENWEATHER_API_KEY" help:"OpenWeatherMap API key."`
	TemperatureUnit string        `name:"unit" env:"TEMPERATURE_UNIT" default:"fahrenheit" help:"Unit system for fetched readings and alert thresholds (fahrenheit or celsius)."`
	HTTPTimeout     time.Duration `name:"http-timeout" env:"CITYWX_HTTP_TIMEOUT" default:"30s" help:"Timeout for provider requests."`
	Debug           bool          `help:"Enable debug logging."`
}

// Validate checks values kong cannot check on its own.
func (s *Settings) Validate() error {
	switch strings.ToLower(strings.TrimSpace(s.TemperatureUnit)) {
	case UnitFahrenheit, UnitCelsius:
	default:
		return fmt.Errorf("TEMPERATURE_UNIT must be %s or %s, got %q", UnitFahrenheit, UnitCelsius, s.TemperatureUnit)
	}
	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", s.HTTPTimeout)
	}
	return nil
}

// Fahrenheit reports whether the Fahrenheit threshold table applies.
func (s *Settings) Fahrenheit() bool {
	return strings.ToLower(strings.TrimSpace(s.TemperatureUnit)) == UnitFahrenheit
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewLogger builds the process logger.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
