// Package background estimates the non-flare MWIR radiance around hotspot
// clusters with an adaptive window search.
package background

import (
	"context"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/radiometry"
)

// Cluster is the representative pixel of one grid cell's hotspots.
type Cluster struct {
	Key    domain.CellKey
	Line   int
	Sample int
}

// Params controls the window search.
type Params struct {
	// Windows are the candidate half-widths in pixels, tried in order.
	Windows []int
	// Fraction is the eligible share a window must exceed.
	Fraction float64
	// Wavelength is the MWIR wavelength in microns.
	Wavelength float64
}

// DefaultParams are the ATSR processing constants.
func DefaultParams() Params {
	return Params{
		Windows:    []int{2, 4, 6, 8, 10, 12},
		Fraction:   0.6,
		Wavelength: radiometry.DefaultMWIRWavelength,
	}
}

// Inputs are the full-swath arrays shared read-only by every cluster.
type Inputs struct {
	CloudFree domain.Mask
	Hotspot   domain.Mask
	BT        domain.Band
}

type window struct {
	l0, l1, s0, s1 int // inclusive
}

func (w window) size() int { return (w.l1 - w.l0 + 1) * (w.s1 - w.s0 + 1) }

func clip(c Cluster, half, lines, samples int) window {
	return window{
		l0: max(c.Line-half, 0),
		l1: min(c.Line+half, lines-1),
		s0: max(c.Sample-half, 0),
		s1: min(c.Sample+half, samples-1),
	}
}

// Estimate searches the candidate windows smallest first and accepts the
// first whose eligible fraction (cloud-free, not hotspot, positive
// temperature) exceeds p.Fraction. The background is the mean MWIR radiance of
// the eligible pixels. When no window qualifies the result has Valid false
// and Radiance domain.BackgroundFailed. Diagnostics always describe the last
// window attempted.
//
// A window of half-width h spans 2h+1 pixels per axis, centred on the cluster
// and clipped at the swath edges. Extraction tools that slice [x-h, x+h) use a
// 2h-pixel window, so diagnostics from the two differ slightly near the
// acceptance threshold.
func Estimate(c Cluster, in Inputs, p Params) domain.BackgroundEstimate {
	est := domain.BackgroundEstimate{Radiance: domain.BackgroundFailed}
	var eligible []float64
	for _, half := range p.Windows {
		w := clip(c, half, in.BT.Lines, in.BT.Samples)
		n := w.size()
		if w.l0 > w.l1 || w.s0 > w.s1 || n == 0 {
			continue
		}

		eligible = eligible[:0]
		var cloudy, hot, invalid int
		for l := w.l0; l <= w.l1; l++ {
			for s := w.s0; s <= w.s1; s++ {
				cf, hs, bt := in.CloudFree.At(l, s), in.Hotspot.At(l, s), in.BT.At(l, s)
				if !cf {
					cloudy++
				}
				if hs {
					hot++
				}
				if !(bt > 0) {
					invalid++
				}
				if cf && !hs && bt > 0 {
					eligible = append(eligible, bt)
				}
			}
		}

		size := float64(n)
		est.WindowUsed = half
		est.CloudFrac = float64(cloudy) / size
		est.HotspotFrac = float64(hot) / size
		est.InvalidFrac = float64(invalid) / size

		if float64(len(eligible))/size > p.Fraction {
			for i, bt := range eligible {
				eligible[i] = radiometry.RadianceFromBT(p.Wavelength, bt)
			}
			est.Radiance = floats.Sum(eligible) / float64(len(eligible))
			est.Valid = !math.IsNaN(est.Radiance)
			if !est.Valid {
				est.Radiance = domain.BackgroundFailed
			}
			return est
		}
	}
	return est
}

// EstimateAll runs Estimate for every cluster on at most workers goroutines.
// Results are index-aligned with clusters.
func EstimateAll(ctx context.Context, clusters []Cluster, in Inputs, p Params, workers int) ([]domain.BackgroundEstimate, error) {
	out := make([]domain.BackgroundEstimate, len(clusters))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, c := range clusters {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Estimate(c, in, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Clusters reduces hotspot pixels to one representative per cell: the
// maximum line and the maximum sample among the cell's pixels. Output is
// ordered by key.
func Clusters(keys []domain.CellKey, lines, samples []int) []Cluster {
	byKey := make(map[domain.CellKey]int)
	var out []Cluster
	for i, k := range keys {
		j, ok := byKey[k]
		if !ok {
			byKey[k] = len(out)
			out = append(out, Cluster{Key: k, Line: lines[i], Sample: samples[i]})
			continue
		}
		out[j].Line = max(out[j].Line, lines[i])
		out[j].Sample = max(out[j].Sample, samples[i])
	}
	slices.SortFunc(out, func(a, b Cluster) int {
		switch {
		case a.Key.Less(b.Key):
			return -1
		case b.Key.Less(a.Key):
			return 1
		}
		return 0
	})
	return out
}
