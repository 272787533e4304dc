// Package aggregate groups pixel detections by grid cell and reduces them
// with per-column strategies.
package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Reducer collapses one column of a cell's rows to a single value. NaN inputs
// are skipped; a column with no valid input reduces to NaN.
type Reducer int

const (
	Sum Reducer = iota
	Mean
	// MajorityVote returns the most frequent non-negative integer code, ties
	// going to the lowest code.
	MajorityVote
	// PriorityLabel returns TypeFlare if any row carries it, else TypeCloudFree.
	PriorityLabel
)

func (r Reducer) String() string {
	switch r {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case MajorityVote:
		return "majority_vote"
	case PriorityLabel:
		return "priority_label"
	}
	return fmt.Sprintf("reducer(%d)", int(r))
}

// Reduce applies the strategy to values.
func (r Reducer) Reduce(values []float64) float64 {
	valid := finite(values)
	if len(valid) == 0 {
		return math.NaN()
	}
	switch r {
	case Sum:
		return floats.Sum(valid)
	case Mean:
		return floats.Sum(valid) / float64(len(valid))
	case MajorityVote:
		return majority(valid)
	case PriorityLabel:
		for _, v := range valid {
			if v == float64(domain.TypeFlare) {
				return float64(domain.TypeFlare)
			}
		}
		return float64(domain.TypeCloudFree)
	}
	panic(fmt.Sprintf("aggregate: unknown reducer %d", int(r)))
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func majority(values []float64) float64 {
	var counts []int
	for _, v := range values {
		code := int(v)
		if code < 0 {
			continue
		}
		if code >= len(counts) {
			counts = append(counts, make([]int, code-len(counts)+1)...)
		}
		counts[code]++
	}
	if len(counts) == 0 {
		return math.NaN()
	}
	best := 0
	for code, n := range counts {
		if n > counts[best] {
			best = code
		}
	}
	return float64(best)
}
