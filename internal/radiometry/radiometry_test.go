package radiometry

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

func TestSunEarthDistance(t *testing.T) {
	t.Run("unity near day 93.5", func(t *testing.T) {
		d := SunEarthDistance(time.Date(2001, 4, 3, 12, 0, 0, 0, time.UTC)) // doy 93
		assert.InDelta(t, 1.0, d, 2e-4)
	})

	t.Run("bounded by eccentricity", func(t *testing.T) {
		start := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
		for day := range 365 {
			d := SunEarthDistance(start.AddDate(0, 0, day))
			assert.GreaterOrEqual(t, d, 1-0.01672)
			assert.LessOrEqual(t, d, 1+0.01672)
		}
	})
}

func TestRadianceFromReflectance(t *testing.T) {
	got := RadianceFromReflectance(100, math.Pi, 1)
	assert.InDelta(t, 1.0, got, 1e-12)

	got = RadianceFromReflectance(50, 254.752, 1.01)
	assert.InDelta(t, 0.5*254.752*1.01*1.01/math.Pi, got, 1e-12)
}

func TestRadianceFromBT(t *testing.T) {
	t.Run("matches planck", func(t *testing.T) {
		wvl := 3.7e-6
		want := c1 / (math.Pow(wvl, 5) * (math.Exp(c2/(wvl*300)) - 1)) * 1e-6
		assert.InDelta(t, want, RadianceFromBT(3.7, 300), 1e-12)
	})

	t.Run("monotonic in temperature", func(t *testing.T) {
		prev := 0.0
		for temp := 200.0; temp <= 1500; temp += 50 {
			r := RadianceFromBT(3.7, temp)
			assert.Greater(t, r, prev)
			prev = r
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		for _, temp := range []float64{0, -5, math.NaN()} {
			assert.True(t, math.IsNaN(RadianceFromBT(3.7, temp)), "temp=%v", temp)
		}
	})
}

func TestFRP(t *testing.T) {
	t.Run("valid radiance is non-negative", func(t *testing.T) {
		for _, rad := range []float64{0, 0.01, 3, 250} {
			frp := FRP(rad, 1e6, 22.63)
			assert.GreaterOrEqual(t, frp, 0.0)
		}
		assert.InDelta(t, 22.63*2, FRP(2, 1e6, 22.63), 1e-9)
	})

	t.Run("invalid propagates", func(t *testing.T) {
		assert.True(t, math.IsNaN(FRP(math.NaN(), 1e6, 22.63)))
		assert.True(t, math.IsNaN(FRP(-1, 1e6, 22.63)))
		assert.True(t, math.IsNaN(FRP(1, math.NaN(), 22.63)))
		assert.True(t, math.IsNaN(FRP(RadianceFromBT(3.7, -10), 1e6, 22.63)))
	})
}

func TestDefaultPixelSizeTable(t *testing.T) {
	table := DefaultPixelSizeTable()
	require.Len(t, table, 512)
	assert.InDelta(t, 1.0, table[255], 1e-5)
	assert.InDelta(t, table[0], table[511], 1e-12)
	assert.Greater(t, table[0], table[255])
	for i := 1; i < 256; i++ {
		assert.LessOrEqual(t, table[i], table[i-1])
	}
}

func TestConverter(t *testing.T) {
	cal := DefaultCalibrations()[domain.SensorATS]
	ts := time.Date(2003, 6, 12, 19, 35, 0, 0, time.UTC)
	c := NewConverter(cal, ts, 0)

	assert.Equal(t, DefaultMWIRWavelength, c.Wavelength())
	assert.Equal(t, SunEarthDistance(ts), c.SunEarthDistance())
	assert.Equal(t, 22.63, c.FRPCoefficient())
	assert.InDelta(t, cal.PixelSizes[10]*1e6, c.PixelSize(10), 1e-6)
	assert.True(t, math.IsNaN(c.PixelSize(-1)))
	assert.True(t, math.IsNaN(c.PixelSize(512)))
	assert.True(t, math.IsNaN(c.FRP(1, 600)))

	rad := c.SWIRRadiance(1.5)
	assert.InDelta(t, RadianceFromReflectance(1.5, 254.752, c.SunEarthDistance()), rad, 1e-12)
	assert.InDelta(t, c.PixelSize(100)*22.63*rad/1e6, c.FRP(rad, 100), 1e-9)
	assert.True(t, math.IsNaN(c.MWIRRadiance(0)))
}

func TestCalibrations(t *testing.T) {
	t.Run("unknown sensor", func(t *testing.T) {
		_, err := DefaultCalibrations().For("xyz")
		require.Error(t, err)
		assert.True(t, domain.IsDataError(err))
	})

	t.Run("override keeps unset fields", func(t *testing.T) {
		base := DefaultCalibrations()
		got, err := LoadCalibrations(strings.NewReader(`{"ats":{"frp_coeff":30}}`), base)
		require.NoError(t, err)
		assert.Equal(t, 30.0, got[domain.SensorATS].FRPCoefficient)
		assert.Equal(t, 254.752, got[domain.SensorATS].SolarIrradiance)
		assert.Equal(t, 22.63, base[domain.SensorATS].FRPCoefficient, "base must not change")
	})

	t.Run("new sensor must be complete", func(t *testing.T) {
		_, err := LoadCalibrations(strings.NewReader(`{"mod":{"frp_coeff":30}}`), DefaultCalibrations())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mod")
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := LoadCalibrations(strings.NewReader(`{`), nil)
		require.Error(t, err)
	})
}
