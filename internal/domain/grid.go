package domain

// Grid is a dense row-major 2-D array with a line/sample shape.
type Grid[T any] struct {
	Lines   int
	Samples int
	Values  []T
}

// Band is a numeric band array. Missing values are NaN.
type Band = Grid[float64]

// Mask is a boolean pixel mask.
type Mask = Grid[bool]

// NewGrid allocates a zeroed grid of the given shape.
func NewGrid[T any](lines, samples int) Grid[T] {
	return Grid[T]{Lines: lines, Samples: samples, Values: make([]T, lines*samples)}
}

// At returns the value at (line, sample).
func (g Grid[T]) At(line, sample int) T {
	return g.Values[line*g.Samples+sample]
}

// Set stores v at (line, sample).
func (g Grid[T]) Set(line, sample int, v T) {
	g.Values[line*g.Samples+sample] = v
}

// Len is the number of pixels.
func (g Grid[T]) Len() int { return g.Lines * g.Samples }

// Valid reports whether the backing slice matches the declared shape.
func (g Grid[T]) Valid() bool {
	return g.Lines >= 0 && g.Samples >= 0 && len(g.Values) == g.Lines*g.Samples
}

// SameShape reports whether two grids have identical dimensions.
func SameShape[A, B any](a Grid[A], b Grid[B]) bool {
	return a.Lines == b.Lines && a.Samples == b.Samples
}

// Where returns the (line, sample) positions at which m is true, in row-major order.
func Where(m Mask) (lines, samples []int) {
	for i, v := range m.Values {
		if v {
			lines = append(lines, i/m.Samples)
			samples = append(samples, i%m.Samples)
		}
	}
	return lines, samples
}
