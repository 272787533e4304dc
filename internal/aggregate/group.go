package aggregate

import (
	"slices"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Group is the rows that share one grid cell.
type Group[R any] struct {
	Key  domain.CellKey
	Rows []R
}

// GroupBy partitions rows by key. Groups are ordered by key and rows keep
// their input order.
func GroupBy[R any](rows []R, key func(R) domain.CellKey) []Group[R] {
	idx := make(map[domain.CellKey]int)
	var groups []Group[R]
	for _, r := range rows {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, Group[R]{Key: k})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	slices.SortFunc(groups, func(a, b Group[R]) int {
		switch {
		case a.Key.Less(b.Key):
			return -1
		case b.Key.Less(a.Key):
			return 1
		}
		return 0
	})
	return groups
}

// Rule reduces one column of R into a field of C.
type Rule[R, C any] struct {
	Column  string
	Reducer Reducer
	Value   func(*R) float64
	Set     func(*C, float64)
}

// Apply runs every rule over rows and stores the results in cell.
func Apply[R, C any](rows []R, cell *C, rules []Rule[R, C]) {
	values := make([]float64, len(rows))
	for _, rule := range rules {
		for i := range rows {
			values[i] = rule.Value(&rows[i])
		}
		rule.Set(cell, rule.Reducer.Reduce(values))
	}
}
