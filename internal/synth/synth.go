// Package synth builds deterministic synthetic swaths with injected flares
// for smoke runs and tests.
package synth

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Flare is a hot pixel injected into a scene.
type Flare struct {
	ID     int64
	Line   int
	Sample int
	// SWIR is the injected reflectance (percent).
	SWIR float64
	// BT is the injected MWIR brightness temperature (kelvin).
	BT float64
}

// Box is an inclusive pixel rectangle.
type Box struct {
	Line0, Sample0, Line1, Sample1 int
}

func (b Box) contains(l, s int) bool {
	return l >= b.Line0 && l <= b.Line1 && s >= b.Sample0 && s <= b.Sample1
}

// Scene describes a synthetic night-time swath on a regular lat/lon lattice.
type Scene struct {
	Sensor    domain.Sensor
	Time      time.Time
	Lines     int
	Samples   int
	OriginLat float64
	OriginLon float64
	// Step is the lattice spacing in degrees.
	Step         float64
	SolarElev    float64
	BackgroundBT float64
	Clouds       []Box
	// Missing marks pixels whose geolocation and radiometry are NaN.
	Missing []Box
	Flares  []Flare
}

// DefaultScene is a 64×64 night scene at 1 km spacing over the Niger delta.
func DefaultScene() Scene {
	return Scene{
		Sensor:       domain.SensorATS,
		Time:         time.Date(2003, 6, 12, 21, 35, 0, 0, time.UTC),
		Lines:        64,
		Samples:      64,
		OriginLat:    4.5,
		OriginLon:    6.5,
		Step:         0.01,
		SolarElev:    -35,
		BackgroundBT: 285,
		Flares: []Flare{
			{ID: 101, Line: 20, Sample: 20, SWIR: 4.5, BT: 330},
			{ID: 102, Line: 40, Sample: 45, SWIR: 1.2, BT: 305},
		},
	}
}

// Position returns the geolocation of a pixel.
func (s Scene) Position(line, sample int) (lat, lon float64) {
	return s.OriginLat + float64(line)*s.Step, s.OriginLon + float64(sample)*s.Step
}

var productPrefix = map[domain.Sensor]string{
	domain.SensorATS: "ATS_TOA_1PUUPA",
	domain.SensorAT2: "AT2_TOA_1PURAL",
	domain.SensorAT1: "AT1_TOA_1PURAL",
}

var productSuffix = map[domain.Sensor]string{
	domain.SensorATS: ".N1",
	domain.SensorAT2: ".E2",
	domain.SensorAT1: ".E1",
}

// ProductName is an ATSR-style product file name for the scene.
func (s Scene) ProductName() string {
	prefix, ok := productPrefix[s.Sensor]
	if !ok {
		prefix = "SYN_TOA_1PSYNT"
	}
	return fmt.Sprintf("%s%s_000000000000_00000_00000_0000%s",
		prefix, s.Time.UTC().Format("20060102_150405"), productSuffix[s.Sensor])
}

// Swath renders the scene.
func (s Scene) Swath() *domain.Swath {
	bands := map[domain.BandName]domain.Band{}
	for _, name := range domain.RequiredBands {
		bands[name] = domain.NewGrid[float64](s.Lines, s.Samples)
	}
	hot := make(map[[2]int]Flare, len(s.Flares))
	for _, f := range s.Flares {
		hot[[2]int{f.Line, f.Sample}] = f
	}

	for l := range s.Lines {
		for p := range s.Samples {
			lat, lon := s.Position(l, p)
			swir, bt, flag := 0.02, s.BackgroundBT, 0.0
			if f, ok := hot[[2]int{l, p}]; ok {
				swir, bt = f.SWIR, f.BT
			}
			if inAny(s.Clouds, l, p) {
				flag, bt = 4, s.BackgroundBT-40
			}
			if inAny(s.Missing, l, p) {
				lat, lon, swir, bt = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			}
			bands[domain.BandLatitude].Set(l, p, lat)
			bands[domain.BandLongitude].Set(l, p, lon)
			bands[domain.BandSWIR].Set(l, p, swir)
			bands[domain.BandMWIR].Set(l, p, bt)
			bands[domain.BandSolarElev].Set(l, p, s.SolarElev)
			bands[domain.BandViewElev].Set(l, p, 90-float64(p)*0.05)
			bands[domain.BandCloudFlags].Set(l, p, flag)
		}
	}

	return &domain.Swath{
		ID:      s.ProductName(),
		Sensor:  s.Sensor,
		Time:    s.Time,
		Lines:   s.Lines,
		Samples: s.Samples,
		Bands:   bands,
	}
}

// Registry returns one registry entry per injected flare, located at its
// pixel and active from start to stop.
func (s Scene) Registry(start, stop time.Time) []domain.Flare {
	out := make([]domain.Flare, 0, len(s.Flares))
	for _, f := range s.Flares {
		lat, lon := s.Position(f.Line, f.Sample)
		out = append(out, domain.Flare{ID: f.ID, Lat: lat, Lon: lon, Start: start, Stop: stop})
	}
	return out
}

func inAny(boxes []Box, l, s int) bool {
	for _, b := range boxes {
		if b.contains(l, s) {
			return true
		}
	}
	return false
}
