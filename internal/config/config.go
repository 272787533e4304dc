package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all engine settings, populated from environment variables.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	HTTPAddr        string        `env:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Detection settings.
	GridResolution     float64 `env:"GRID_RESOLUTION_DEG" envDefault:"0.016666666666666666"`
	GridRoundDecimals  int     `env:"GRID_ROUND_DECIMALS" envDefault:"10"`
	DayNightZenith     float64 `env:"DAY_NIGHT_ZENITH_DEG" envDefault:"101"`
	SWIRThreshold      float64 `env:"SWIR_THRESHOLD" envDefault:"0.1"`
	BackgroundFraction float64 `env:"BACKGROUND_FRACTION" envDefault:"0.6"`
	BackgroundWindows  []int   `env:"BACKGROUND_WINDOWS" envDefault:"2,4,6,8,10,12"`
	BackgroundWorkers  int     `env:"BACKGROUND_WORKERS" envDefault:"4"`
	MWIRWavelength     float64 `env:"MWIR_WAVELENGTH_UM" envDefault:"3.7"`
	MatchTolerance     float64 `env:"MATCH_TOLERANCE_DEG" envDefault:"0"`
	CalibrationFile    string  `env:"CALIBRATION_FILE"`

	// Inputs and outputs.
	RegistryPath   string   `env:"REGISTRY_PATH"`
	OutputDir      string   `env:"OUTPUT_DIR" envDefault:"."`
	KafkaBrokers   []string `env:"KAFKA_BROKERS"`
	KafkaSinkTopic string   `env:"KAFKA_SINK_TOPIC" envDefault:"flare-detections"`

	// Mapbox reverse geocoding of matched flare sites.
	MapboxToken     string        `env:"MAPBOX_TOKEN"`
	MapboxTimeout   time.Duration `env:"MAPBOX_TIMEOUT" envDefault:"5s"`
	MapboxCacheSize int           `env:"MAPBOX_CACHE_SIZE" envDefault:"1000"`

	// MapboxEnabled follows MAPBOX_ENABLED when set, otherwise whether a
	// token is present.
	MapboxEnabled bool
}

// Load reads an optional .env file and then the environment, applying
// defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.LogFormat)
	}
	if c.GridResolution <= 0 {
		return errors.New("invalid GRID_RESOLUTION_DEG: must be positive")
	}
	if c.GridRoundDecimals < 0 {
		return errors.New("invalid GRID_ROUND_DECIMALS: must not be negative")
	}
	if c.BackgroundFraction < 0 || c.BackgroundFraction >= 1 {
		return errors.New("invalid BACKGROUND_FRACTION: must be in [0, 1)")
	}
	if len(c.BackgroundWindows) == 0 || c.BackgroundWindows[0] <= 0 || !slices.IsSorted(c.BackgroundWindows) {
		return errors.New("invalid BACKGROUND_WINDOWS: must be positive and ascending")
	}
	if c.BackgroundWorkers <= 0 {
		return errors.New("invalid BACKGROUND_WORKERS: must be positive")
	}
	if c.MWIRWavelength <= 0 {
		return errors.New("invalid MWIR_WAVELENGTH_UM: must be positive")
	}
	if c.MatchTolerance < 0 {
		return errors.New("invalid MATCH_TOLERANCE_DEG: must not be negative")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("invalid MAPBOX_TIMEOUT")
	}
	if c.MapboxCacheSize <= 0 {
		c.MapboxCacheSize = 1000
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// MatchToleranceDeg resolves the matcher tolerance; zero means half the grid
// resolution.
func (c *Config) MatchToleranceDeg() float64 {
	if c.MatchTolerance > 0 {
		return c.MatchTolerance
	}
	return c.GridResolution / 2
}
