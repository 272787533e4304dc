// Package radiometry converts sensor signal to physical radiance and Fire
// Radiative Power.
package radiometry

import (
	"math"
	"time"
)

// Radiation constants for the inverse Planck function.
const (
	c1 = 1.19e-16 // W m-2 sr-1
	c2 = 1.44e-2  // m K
)

// DefaultMWIRWavelength is the ATSR MWIR channel centre in microns.
const DefaultMWIRWavelength = 3.7

// SunEarthDistance is the first-order orbital-eccentricity correction for the
// day of year of t.
func SunEarthDistance(t time.Time) float64 {
	doy := float64(t.YearDay())
	return 1 + 0.01672*math.Sin(2*math.Pi*(doy-93.5)/365)
}

// RadianceFromReflectance converts percent reflectance to radiance
// (W m-2 sr-1 um-1).
func RadianceFromReflectance(reflectance, solarIrradiance, sunEarth float64) float64 {
	return reflectance / 100 * solarIrradiance * sunEarth * sunEarth / math.Pi
}

// RadianceFromBT inverts the Planck function at wavelength (microns) for a
// brightness temperature in kelvin. Non-positive or missing temperatures and
// negative results are NaN.
func RadianceFromBT(wavelength, temp float64) float64 {
	if math.IsNaN(temp) || temp <= 0 {
		return math.NaN()
	}
	wvl := wavelength * 1e-6
	d := math.Pow(wvl, 5) * (math.Exp(c2/(wvl*temp)) - 1)
	rad := c1 / d * 1e-6
	if math.IsNaN(rad) || rad < 0 {
		return math.NaN()
	}
	return rad
}

// FRP returns Fire Radiative Power in megawatts for a radiance and a pixel
// area in square metres. Invalid inputs give NaN, never zero.
func FRP(radiance, pixelSize, coefficient float64) float64 {
	if !valid(radiance) || !valid(pixelSize) {
		return math.NaN()
	}
	return pixelSize * coefficient * radiance / 1e6
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
