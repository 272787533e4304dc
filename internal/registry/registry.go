// Package registry holds the persistent flare catalogue and matches it
// against orbit candidates.
package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/geo"
)

// Source reads raw registry rows. Rows may repeat a flare id once per
// observation.
type Source interface {
	Flares(ctx context.Context) ([]domain.Flare, error)
}

// Snapshot is a read-only, consolidated view of the registry. It is safe for
// concurrent use.
type Snapshot struct {
	flares []domain.Flare
}

// NewSnapshot consolidates rows into a snapshot.
func NewSnapshot(rows []domain.Flare) *Snapshot {
	return &Snapshot{flares: Consolidate(rows)}
}

// Load reads src, validates every row and consolidates it. An empty registry
// is not an error.
func Load(ctx context.Context, src Source) (*Snapshot, error) {
	rows, err := src.Flares(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if err := Validate(rows); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return NewSnapshot(rows), nil
}

// Validate rejects rows without finite coordinates.
func Validate(rows []domain.Flare) error {
	for i, f := range rows {
		if !f.Located() {
			return &domain.DataError{Reason: fmt.Sprintf("registry row %d: flare %d has non-finite position (%v, %v)", i, f.ID, f.Lat, f.Lon)}
		}
	}
	return nil
}

// Len is the number of distinct flares.
func (s *Snapshot) Len() int { return len(s.flares) }

// Flares returns a copy of every flare ordered by id.
func (s *Snapshot) Flares() []domain.Flare { return slices.Clone(s.flares) }

// Active returns the flares whose burn interval covers t, inclusive at both
// ends, ordered by id.
func (s *Snapshot) Active(t time.Time) []domain.Flare {
	var out []domain.Flare
	for _, f := range s.flares {
		if f.Active(t) {
			out = append(out, f)
		}
	}
	return out
}

// ActiveCells returns the arc-minute cells of the flares active at t.
func (s *Snapshot) ActiveCells(t time.Time) map[domain.CellKey]struct{} {
	out := make(map[domain.CellKey]struct{})
	for _, f := range s.Active(t) {
		out[domain.CellKey{Lat: geo.ArcMinute(f.Lat), Lon: geo.ArcMinute(f.Lon)}] = struct{}{}
	}
	return out
}

// Consolidate collapses repeated observations of a flare id into one entry
// with the mean position, earliest start and latest stop.
func Consolidate(rows []domain.Flare) []domain.Flare {
	type acc struct {
		flare    domain.Flare
		lat, lon float64
		n        int
	}
	byID := make(map[int64]*acc)
	for _, r := range rows {
		a, ok := byID[r.ID]
		if !ok {
			byID[r.ID] = &acc{flare: r, lat: r.Lat, lon: r.Lon, n: 1}
			continue
		}
		a.lat += r.Lat
		a.lon += r.Lon
		a.n++
		if r.Start.Before(a.flare.Start) {
			a.flare.Start = r.Start
		}
		if r.Stop.After(a.flare.Stop) {
			a.flare.Stop = r.Stop
		}
	}
	out := make([]domain.Flare, 0, len(byID))
	for _, a := range byID {
		f := a.flare
		f.Lat = a.lat / float64(a.n)
		f.Lon = a.lon / float64(a.n)
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b domain.Flare) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
