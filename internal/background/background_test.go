package background

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/radiometry"
)

// clearScene is an n×n swath that is cloud-free at 300 K with a single
// hotspot at the centre.
func clearScene(n int) (Inputs, Cluster) {
	in := Inputs{
		CloudFree: domain.NewGrid[bool](n, n),
		Hotspot:   domain.NewGrid[bool](n, n),
		BT:        domain.NewGrid[float64](n, n),
	}
	for i := range in.BT.Values {
		in.CloudFree.Values[i] = true
		in.BT.Values[i] = 300
	}
	c := Cluster{Line: n / 2, Sample: n / 2}
	in.Hotspot.Set(c.Line, c.Sample, true)
	return in, c
}

// cloudWithin marks every pixel within Chebyshev distance r of c as cloudy.
func cloudWithin(in Inputs, c Cluster, r int) {
	for l := c.Line - r; l <= c.Line+r; l++ {
		for s := c.Sample - r; s <= c.Sample+r; s++ {
			in.CloudFree.Set(l, s, false)
		}
	}
}

func TestEstimate_SmallestWindow(t *testing.T) {
	in, c := clearScene(41)
	est := Estimate(c, in, DefaultParams())

	assert.True(t, est.Valid)
	assert.Equal(t, 2, est.WindowUsed)
	assert.InDelta(t, radiometry.RadianceFromBT(3.7, 300), est.Radiance, 1e-12)
	assert.InDelta(t, 1.0/25, est.HotspotFrac, 1e-12)
	assert.Zero(t, est.CloudFrac)
	assert.Zero(t, est.InvalidFrac)
}

func TestEstimate_GrowsPastCloud(t *testing.T) {
	in, c := clearScene(41)
	cloudWithin(in, c, 4)
	// half-width 6: 88 of 169 eligible (0.52); half-width 8: 208 of 289 (0.72)
	est := Estimate(c, in, DefaultParams())

	assert.True(t, est.Valid)
	assert.Equal(t, 8, est.WindowUsed)
	assert.InDelta(t, 81.0/289, est.CloudFrac, 1e-12)
}

func TestEstimate_MeanOverEligibleOnly(t *testing.T) {
	in, c := clearScene(41)
	// a cloudy hot pixel and an invalid one inside the first window must not
	// enter the mean
	in.CloudFree.Set(c.Line+1, c.Sample, false)
	in.BT.Set(c.Line+1, c.Sample, 1000)
	in.BT.Set(c.Line-1, c.Sample, math.NaN())
	in.BT.Set(c.Line, c.Sample+1, 310)

	est := Estimate(c, in, DefaultParams())
	require.True(t, est.Valid)
	want := (21*radiometry.RadianceFromBT(3.7, 300) + radiometry.RadianceFromBT(3.7, 310)) / 22
	assert.InDelta(t, want, est.Radiance, 1e-12)
	assert.InDelta(t, 1.0/25, est.InvalidFrac, 1e-12)
}

func TestEstimate_Failure(t *testing.T) {
	in, c := clearScene(41)
	for i := range in.CloudFree.Values {
		in.CloudFree.Values[i] = false
	}
	est := Estimate(c, in, DefaultParams())

	assert.False(t, est.Valid)
	assert.Equal(t, domain.BackgroundFailed, est.Radiance)
	assert.Equal(t, 12, est.WindowUsed)
	assert.Equal(t, 1.0, est.CloudFrac)
	assert.InDelta(t, 1.0/625, est.HotspotFrac, 1e-12)
	assert.Zero(t, est.InvalidFrac)
}

func TestEstimate_ThresholdIsStrict(t *testing.T) {
	// a 5×5 swath clips every window to the same 25 pixels, 15 of them eligible
	in, c := clearScene(5)
	in.Hotspot.Set(c.Line, c.Sample, false)
	for i := range 10 {
		in.CloudFree.Values[i] = false
	}
	est := Estimate(c, in, DefaultParams())

	assert.False(t, est.Valid)
	assert.Equal(t, -1.0, est.Radiance)
	assert.Equal(t, 12, est.WindowUsed)
	assert.InDelta(t, 0.4, est.CloudFrac, 1e-12)
}

func TestEstimate_ClipsAtEdges(t *testing.T) {
	in, _ := clearScene(20)
	c := Cluster{Line: 0, Sample: 19}
	in.Hotspot.Set(0, 19, true)
	est := Estimate(c, in, DefaultParams())

	assert.True(t, est.Valid)
	assert.Equal(t, 2, est.WindowUsed)
	assert.InDelta(t, 1.0/9, est.HotspotFrac, 1e-12)
}

func TestClip_SymmetricSpan(t *testing.T) {
	tests := []struct {
		name string
		c    Cluster
		half int
		want window
		size int
	}{
		{"interior spans 2h+1", Cluster{Line: 20, Sample: 20}, 2, window{l0: 18, l1: 22, s0: 18, s1: 22}, 25},
		{"top-left corner", Cluster{Line: 0, Sample: 0}, 4, window{l0: 0, l1: 4, s0: 0, s1: 4}, 25},
		{"bottom-right corner", Cluster{Line: 40, Sample: 40}, 12, window{l0: 28, l1: 40, s0: 28, s1: 40}, 169},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clip(tt.c, tt.half, 41, 41)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.size, got.size())
		})
	}
}

func TestEstimate_NoWindows(t *testing.T) {
	in, c := clearScene(9)
	est := Estimate(c, in, Params{Fraction: 0.6, Wavelength: 3.7})
	assert.False(t, est.Valid)
	assert.Equal(t, domain.BackgroundFailed, est.Radiance)
	assert.Zero(t, est.WindowUsed)
}

func TestEstimate_DiagnosticsBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	n := 30
	in := Inputs{
		CloudFree: domain.NewGrid[bool](n, n),
		Hotspot:   domain.NewGrid[bool](n, n),
		BT:        domain.NewGrid[float64](n, n),
	}
	for i := range in.BT.Values {
		cf := r.Float64() < 0.5
		in.CloudFree.Values[i] = cf
		// hotspots only on cloud-free pixels so the two masks are disjoint
		in.Hotspot.Values[i] = cf && r.Float64() < 0.3
		in.BT.Values[i] = r.Float64()*400 - 50
	}
	for range 200 {
		c := Cluster{Line: r.IntN(n), Sample: r.IntN(n)}
		est := Estimate(c, in, DefaultParams())
		for _, f := range []float64{est.CloudFrac, est.HotspotFrac, est.InvalidFrac} {
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
		assert.LessOrEqual(t, est.CloudFrac+est.HotspotFrac, 1.0+1e-12)
		if !est.Valid {
			assert.Equal(t, domain.BackgroundFailed, est.Radiance)
		}
	}
}

func TestEstimateAll(t *testing.T) {
	in, c := clearScene(41)
	cloudWithin(in, Cluster{Line: 5, Sample: 5}, 4)
	clusters := []Cluster{c, {Line: 5, Sample: 5}, {Line: 40, Sample: 0}}

	t.Run("matches sequential", func(t *testing.T) {
		got, err := EstimateAll(context.Background(), clusters, in, DefaultParams(), 2)
		require.NoError(t, err)
		require.Len(t, got, len(clusters))
		for i, cl := range clusters {
			assert.Equal(t, Estimate(cl, in, DefaultParams()), got[i])
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := EstimateAll(ctx, clusters, in, DefaultParams(), 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClusters(t *testing.T) {
	a := domain.CellKey{Lat: 1000, Lon: 2000}
	b := domain.CellKey{Lat: 900, Lon: 2000}
	keys := []domain.CellKey{a, a, b, a}
	lines := []int{4, 7, 1, 5}
	samples := []int{9, 2, 3, 8}

	got := Clusters(keys, lines, samples)
	assert.Equal(t, []Cluster{
		{Key: b, Line: 1, Sample: 3},
		{Key: a, Line: 7, Sample: 9},
	}, got)
}
