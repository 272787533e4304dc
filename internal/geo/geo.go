// Package geo bins geographic coordinates onto fixed angular grids.
package geo

import (
	"math"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// ArcMinuteResolution is one arc-minute in degrees.
const ArcMinuteResolution = 1.0 / 60

// ArcMinute bins x (degrees, finite) to the nearest arc-minute and returns
// sign*(degrees*100 + minutes). A minute that rounds to 60 carries into the
// next whole degree.
func ArcMinute(x float64) int {
	sign := 1
	if x < 0 {
		sign = -1
	}
	a := math.Abs(x)
	deg := math.Floor(a)
	minute := math.RoundToEven((a - deg) * 60)
	if minute >= 60 {
		deg++
		minute = 0
	}
	return sign * (int(deg)*100 + int(minute))
}

// CellCenter converts an arc-minute key back to degrees.
func CellCenter(key int) float64 {
	sign := 1.0
	if key < 0 {
		sign = -1
		key = -key
	}
	return sign * (float64(key/100) + float64(key%100)/60)
}

// maxExact is the magnitude above which a float64 has no fractional digits.
const maxExact = 1 << 52

// Round snaps x to the nearest multiple of step (ties to even) and then to
// the given number of decimals to suppress floating-point noise.
func Round(x, step float64, decimals int) float64 {
	v := step * math.RoundToEven(x/step)
	p := math.Pow10(decimals)
	if scaled := v * p; math.Abs(scaled) < maxExact {
		return math.RoundToEven(scaled) / p
	}
	return v
}

// Binner applies both grid granularities with fixed settings.
type Binner struct {
	Resolution float64
	Decimals   int
}

// NewBinner returns a Binner at the given resolution. A non-positive
// resolution falls back to one arc-minute.
func NewBinner(resolution float64, decimals int) Binner {
	if resolution <= 0 {
		resolution = ArcMinuteResolution
	}
	return Binner{Resolution: resolution, Decimals: decimals}
}

// Cell returns the arc-minute cell containing (lat, lon).
func (b Binner) Cell(lat, lon float64) domain.CellKey {
	return domain.CellKey{Lat: ArcMinute(lat), Lon: ArcMinute(lon)}
}

// Round snaps (lat, lon) to the resolution grid.
func (b Binner) Round(lat, lon float64) (float64, float64) {
	return Round(lat, b.Resolution, b.Decimals), Round(lon, b.Resolution, b.Decimals)
}

// Center returns the coordinates of an arc-minute cell.
func Center(k domain.CellKey) (lat, lon float64) {
	return CellCenter(k.Lat), CellCenter(k.Lon)
}
