package radiometry

import (
	"math"
	"time"
)

// Converter applies one sensor's calibration on one observation date.
type Converter struct {
	cal        Calibration
	sunEarth   float64
	wavelength float64
}

// NewConverter binds cal to the observation time t. wavelength is the MWIR
// wavelength in microns; zero selects DefaultMWIRWavelength.
func NewConverter(cal Calibration, t time.Time, wavelength float64) *Converter {
	if wavelength <= 0 {
		wavelength = DefaultMWIRWavelength
	}
	return &Converter{cal: cal, sunEarth: SunEarthDistance(t), wavelength: wavelength}
}

// SunEarthDistance is the distance factor for the bound date.
func (c *Converter) SunEarthDistance() float64 { return c.sunEarth }

// FRPCoefficient is the sensor's FRP coefficient.
func (c *Converter) FRPCoefficient() float64 { return c.cal.FRPCoefficient }

// Wavelength is the MWIR wavelength in microns.
func (c *Converter) Wavelength() float64 { return c.wavelength }

// SWIRRadiance converts a SWIR reflectance to radiance.
func (c *Converter) SWIRRadiance(reflectance float64) float64 {
	return RadianceFromReflectance(reflectance, c.cal.SolarIrradiance, c.sunEarth)
}

// MWIRRadiance converts an MWIR brightness temperature to radiance.
func (c *Converter) MWIRRadiance(bt float64) float64 {
	return RadianceFromBT(c.wavelength, bt)
}

// PixelSize returns the footprint of a cross-track sample in m². Samples
// outside the table are NaN.
func (c *Converter) PixelSize(sample int) float64 {
	if sample < 0 || sample >= len(c.cal.PixelSizes) {
		return math.NaN()
	}
	return c.cal.PixelSizes[sample] * 1e6
}

// FRP returns Fire Radiative Power (MW) for a radiance observed at sample.
func (c *Converter) FRP(radiance float64, sample int) float64 {
	return FRP(radiance, c.PixelSize(sample), c.cal.FRPCoefficient)
}
