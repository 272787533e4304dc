package pipeline

import (
	"github.com/couchcryptid/flare-attribution-engine/internal/background"
	"github.com/couchcryptid/flare-attribution-engine/internal/config"
	"github.com/couchcryptid/flare-attribution-engine/internal/geo"
	"github.com/couchcryptid/flare-attribution-engine/internal/mask"
	"github.com/couchcryptid/flare-attribution-engine/internal/registry"
)

// Settings are the detection constants shared by every orbit of a run.
type Settings struct {
	Binner     geo.Binner
	Thresholds mask.Thresholds
	Background background.Params
	// Workers bounds the background fan-out per orbit.
	Workers int
	// MatchTolerance is the registry match distance in degrees.
	MatchTolerance float64
}

// DefaultSettings are the ATSR processing constants on an arc-minute grid.
func DefaultSettings() Settings {
	return Settings{
		Binner:         geo.NewBinner(geo.ArcMinuteResolution, 10),
		Thresholds:     mask.DefaultThresholds,
		Background:     background.DefaultParams(),
		Workers:        4,
		MatchTolerance: registry.Tolerance(geo.ArcMinuteResolution, 0),
	}
}

// NewSettings builds Settings from the environment configuration.
func NewSettings(cfg *config.Config) Settings {
	return Settings{
		Binner: geo.NewBinner(cfg.GridResolution, cfg.GridRoundDecimals),
		Thresholds: mask.Thresholds{
			DayNightZenith: cfg.DayNightZenith,
			SWIR:           cfg.SWIRThreshold,
		},
		Background: background.Params{
			Windows:    cfg.BackgroundWindows,
			Fraction:   cfg.BackgroundFraction,
			Wavelength: cfg.MWIRWavelength,
		},
		Workers:        cfg.BackgroundWorkers,
		MatchTolerance: cfg.MatchToleranceDeg(),
	}
}
