package registry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type cell struct{ lat, lon float64 }

func (c cell) Coordinates() (float64, float64) { return c.lat, c.lon }

func flare7() domain.Flare {
	return domain.Flare{ID: 7, Lat: 10, Lon: 20, Start: day(2001, 1, 1), Stop: day(2001, 12, 31)}
}

func TestMatchActive_SingleFlare(t *testing.T) {
	snap := NewSnapshot([]domain.Flare{flare7()})
	cands := []domain.HotspotCell{{Lat: 10.0002, Lon: 20.0002, FRP: 4.2}}

	got := MatchActive(snap, day(2001, 6, 15), cands, Tolerance(1.0/60, 0))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].FlareID)
	assert.Equal(t, 4.2, got[0].Candidate.FRP)
	assert.Equal(t, 10.0002, got[0].Candidate.Lat, "match carries the candidate's coordinates")
	assert.InDelta(t, 0.0002*1.41421356, got[0].Distance, 1e-9)
}

func TestMatch_DistanceBoundary(t *testing.T) {
	f := []domain.Flare{{ID: 1, Lat: 10, Lon: 20}}
	tol := Tolerance(0.25, 0)
	require.Equal(t, 0.125, tol)

	tests := []struct {
		name string
		c    cell
		want int
	}{
		{"exactly at tolerance", cell{10.125, 20}, 1},
		{"diagonal inside", cell{10.08, 20.08}, 1},
		{"just outside", cell{10.1251, 20}, 0},
		{"diagonal outside", cell{10.1, 20.1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Match(f, []cell{tt.c}, tol), tt.want)
		})
	}
}

func TestMatch_NonFiniteFlareNeverMatches(t *testing.T) {
	flares := []domain.Flare{
		{ID: 42, Lat: math.NaN(), Lon: math.NaN()},
		{ID: 43, Lat: 50, Lon: math.Inf(1)},
		{ID: 44, Lat: 50, Lon: 60},
	}
	got := Match(flares, []cell{{50, 60}}, 1.0/120)
	require.Len(t, got, 1)
	assert.Equal(t, int64(44), got[0].FlareID)
	assert.False(t, math.IsNaN(got[0].Distance))
}

func TestMatchActive_TimeBoundary(t *testing.T) {
	snap := NewSnapshot([]domain.Flare{flare7()})
	cands := []cell{{10, 20}}
	tol := Tolerance(1.0/60, 0)

	assert.Len(t, MatchActive(snap, day(2001, 1, 1), cands, tol), 1)
	assert.Len(t, MatchActive(snap, day(2001, 12, 31), cands, tol), 1)
	assert.Empty(t, MatchActive(snap, day(2000, 12, 31), cands, tol))
	assert.Empty(t, MatchActive(snap, day(2002, 1, 1), cands, tol))
}

func TestMatch_Empty(t *testing.T) {
	assert.Empty(t, Match[cell](nil, []cell{{1, 1}}, 1))
	assert.Empty(t, Match([]domain.Flare{flare7()}, []cell{}, 1))
	assert.Empty(t, MatchActive(NewSnapshot(nil), day(2001, 6, 15), []cell{{10, 20}}, 1))
}

func TestMatch_NoDeduplication(t *testing.T) {
	flares := []domain.Flare{
		{ID: 1, Lat: 10.001, Lon: 20},
		{ID: 2, Lat: 9.999, Lon: 20},
	}
	got := Match(flares, []cell{{10, 20}, {30, 40}}, 0.01)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].FlareID)
	assert.Equal(t, int64(2), got[1].FlareID)
	assert.Equal(t, got[0].Candidate, got[1].Candidate)
}

func TestMatch_NearestAgreesWithBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	cands := make([]cell, 500)
	for i := range cands {
		cands[i] = cell{r.Float64() * 10, r.Float64() * 10}
	}
	var flares []domain.Flare
	for i := range 200 {
		flares = append(flares, domain.Flare{ID: int64(i), Lat: r.Float64() * 10, Lon: r.Float64() * 10})
	}

	got := Match(flares, cands, 100)
	require.Len(t, got, len(flares))
	for i, m := range got {
		best := cands[0]
		bestD := sq(flares[i], best)
		for _, c := range cands[1:] {
			if d := sq(flares[i], c); d < bestD {
				best, bestD = c, d
			}
		}
		assert.Equal(t, best, m.Candidate, "flare %d", m.FlareID)
	}
}

func sq(f domain.Flare, c cell) float64 {
	dlat, dlon := f.Lat-c.lat, f.Lon-c.lon
	return dlat*dlat + dlon*dlon
}

func TestTolerance(t *testing.T) {
	assert.Equal(t, 0.5, Tolerance(1, 0))
	assert.Equal(t, 0.2, Tolerance(1, 0.2))
	assert.Equal(t, 0.5, Tolerance(1, -3))
}

func TestConsolidate(t *testing.T) {
	rows := []domain.Flare{
		{ID: 9, Lat: 1, Lon: 2, Start: day(2002, 1, 1), Stop: day(2002, 2, 1)},
		{ID: 3, Lat: 5, Lon: 5, Start: day(2001, 1, 1), Stop: day(2001, 1, 1)},
		{ID: 9, Lat: 3, Lon: 4, Start: day(2001, 5, 1), Stop: day(2001, 6, 1)},
	}
	got := Consolidate(rows)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, domain.Flare{ID: 9, Lat: 2, Lon: 3, Start: day(2001, 5, 1), Stop: day(2002, 2, 1)}, got[1])
}

func TestSnapshot(t *testing.T) {
	snap := NewSnapshot([]domain.Flare{
		flare7(),
		{ID: 8, Lat: -10.5, Lon: 20.25, Start: day(2001, 1, 1), Stop: day(2001, 3, 1)},
	})
	assert.Equal(t, 2, snap.Len())
	assert.Len(t, snap.Active(day(2001, 2, 1)), 2)
	assert.Len(t, snap.Active(day(2001, 6, 1)), 1)

	cells := snap.ActiveCells(day(2001, 2, 1))
	assert.Contains(t, cells, domain.CellKey{Lat: 1000, Lon: 2000})
	assert.Contains(t, cells, domain.CellKey{Lat: -1030, Lon: 2015})

	all := snap.Flares()
	all[0].ID = 99
	assert.Equal(t, int64(7), snap.Flares()[0].ID)
}

type stubSource struct {
	rows []domain.Flare
	err  error
}

func (s stubSource) Flares(context.Context) ([]domain.Flare, error) { return s.rows, s.err }

func TestLoad(t *testing.T) {
	t.Run("consolidates", func(t *testing.T) {
		snap, err := Load(context.Background(), stubSource{rows: []domain.Flare{flare7(), flare7()}})
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Len())
	})

	t.Run("empty is not an error", func(t *testing.T) {
		snap, err := Load(context.Background(), stubSource{})
		require.NoError(t, err)
		assert.Zero(t, snap.Len())
	})

	t.Run("non-finite position", func(t *testing.T) {
		bad := flare7()
		bad.ID, bad.Lat, bad.Lon = 8, math.NaN(), math.NaN()
		_, err := Load(context.Background(), stubSource{rows: []domain.Flare{flare7(), bad}})
		require.Error(t, err)
		assert.True(t, domain.IsDataError(err))
		assert.Contains(t, err.Error(), "flare 8")
	})

	t.Run("source error", func(t *testing.T) {
		_, err := Load(context.Background(), stubSource{err: errors.New("disk gone")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load registry")
	})
}
