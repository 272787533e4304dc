package registry

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Tolerance returns the match distance in degrees. A non-positive tolerance
// selects half the grid resolution.
func Tolerance(resolution, tolerance float64) float64 {
	if tolerance > 0 {
		return tolerance
	}
	return resolution / 2
}

// Match pairs every flare with its nearest candidate and keeps the pairs
// whose distance is at most tolerance. Several flares may share a candidate.
// Flares without finite coordinates never match. Results follow the order of
// flares.
func Match[C domain.Locatable](flares []domain.Flare, candidates []C, tolerance float64) []domain.Match[C] {
	if len(flares) == 0 || len(candidates) == 0 {
		return nil
	}
	pts := make(points, len(candidates))
	for i, c := range candidates {
		lat, lon := c.Coordinates()
		pts[i] = point{lat: lat, lon: lon, idx: i}
	}
	tree := kdtree.New(pts, false)

	limit := tolerance * tolerance
	var out []domain.Match[C]
	for _, f := range flares {
		if !f.Located() {
			continue
		}
		got, d2 := tree.Nearest(point{lat: f.Lat, lon: f.Lon})
		if got == nil || !(d2 <= limit) {
			continue
		}
		out = append(out, domain.Match[C]{
			FlareID:   f.ID,
			Distance:  math.Sqrt(d2),
			Candidate: candidates[got.(point).idx],
		})
	}
	return out
}

// MatchActive filters the snapshot to flares active at t and matches them.
func MatchActive[C domain.Locatable](s *Snapshot, t time.Time, candidates []C, tolerance float64) []domain.Match[C] {
	return Match(s.Active(t), candidates, tolerance)
}

// point is a candidate position in the k-d tree. idx survives the in-place
// reordering done by kdtree.New.
type point struct {
	lat, lon float64
	idx      int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	if d == 0 {
		return p.lat - q.lat
	}
	return p.lon - q.lon
}

func (p point) Dims() int { return 2 }

// Distance is the squared planar distance in degrees².
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dlat, dlon := p.lat-q.lat, p.lon-q.lon
	return dlat*dlat + dlon*dlon
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median partitioning.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	if p.dim == 0 {
		return p.points[i].lat < p.points[j].lat
	}
	return p.points[i].lon < p.points[j].lon
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
