// Package mask derives boolean pixel masks from swath band arrays.
package mask

import (
	"math"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Thresholds are the sensor-independent detection constants.
type Thresholds struct {
	// DayNightZenith is the solar zenith angle (degrees) at and above which a
	// pixel counts as night.
	DayNightZenith float64
	// SWIR is the reflectance above which a pixel is a potential hotspot.
	SWIR float64
}

// DefaultThresholds matches the ATSR processing constants.
var DefaultThresholds = Thresholds{DayNightZenith: 101, SWIR: 0.1}

// Masks holds every mask derived for one swath.
type Masks struct {
	Night            domain.Mask
	CloudFree        domain.Mask
	PotentialHotspot domain.Mask
	// Hotspot is PotentialHotspot restricted to night.
	Hotspot domain.Mask
	// Sample marks night pixels that are cloud-free or potential hotspots.
	Sample domain.Mask
}

// Build derives all masks for s. A missing or misshapen band is a
// *domain.DataError.
func Build(s *domain.Swath, th Thresholds) (Masks, error) {
	elev, err := s.Band(domain.BandSolarElev)
	if err != nil {
		return Masks{}, err
	}
	flags, err := s.Band(domain.BandCloudFlags)
	if err != nil {
		return Masks{}, err
	}
	swir, err := s.Band(domain.BandSWIR)
	if err != nil {
		return Masks{}, err
	}

	m := Masks{
		Night:            Night(elev, th.DayNightZenith),
		CloudFree:        CloudFree(flags),
		PotentialHotspot: Hotspots(swir, th.SWIR),
	}
	m.Hotspot = And(m.Night, m.PotentialHotspot)
	m.Sample = And(m.Night, Or(m.CloudFree, m.PotentialHotspot))
	return m, nil
}

// SolarZenith converts a solar elevation (degrees) to a zenith angle via
// arccos(sin(elevation)).
func SolarZenith(elevation float64) float64 {
	return math.Acos(math.Sin(elevation*math.Pi/180)) * 180 / math.Pi
}

// Night is true where the solar zenith is at least threshold degrees.
func Night(elevation domain.Band, threshold float64) domain.Mask {
	return apply(elevation, func(v float64) bool { return SolarZenith(v) >= threshold })
}

// CloudFree is true where the flag code is 0 (water) or 1 (land).
func CloudFree(flags domain.Band) domain.Mask {
	return apply(flags, func(v float64) bool { return v <= 1 })
}

// Hotspots is true where SWIR reflectance exceeds threshold. NaN is never a
// hotspot.
func Hotspots(swir domain.Band, threshold float64) domain.Mask {
	return apply(swir, func(v float64) bool { return !math.IsNaN(v) && v > threshold })
}

// And combines two same-shaped masks.
func And(a, b domain.Mask) domain.Mask {
	out := domain.NewGrid[bool](a.Lines, a.Samples)
	for i := range out.Values {
		out.Values[i] = a.Values[i] && b.Values[i]
	}
	return out
}

// Or combines two same-shaped masks.
func Or(a, b domain.Mask) domain.Mask {
	out := domain.NewGrid[bool](a.Lines, a.Samples)
	for i := range out.Values {
		out.Values[i] = a.Values[i] || b.Values[i]
	}
	return out
}

// Count returns the number of true pixels.
func Count(m domain.Mask) int {
	n := 0
	for _, v := range m.Values {
		if v {
			n++
		}
	}
	return n
}

func apply(b domain.Band, pred func(float64) bool) domain.Mask {
	out := domain.NewGrid[bool](b.Lines, b.Samples)
	for i, v := range b.Values {
		out.Values[i] = pred(v)
	}
	return out
}
