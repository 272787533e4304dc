package parquet

import (
	"context"
	"path/filepath"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/rows"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
)

// Output file suffixes, appended to the product stem.
const (
	SuffixFlares     = "_flares"
	SuffixSampling   = "_sampling"
	SuffixMatches    = "_matches"
	SuffixCollocated = "_collocated"
)

// ResultWriter writes one parquet file per output table per orbit. It
// implements pipeline.ResultWriter and pipeline.CollocatedWriter.
type ResultWriter struct {
	dir string
}

// NewResultWriter writes under dir.
func NewResultWriter(dir string) *ResultWriter {
	return &ResultWriter{dir: dir}
}

// Path returns the output file for an orbit and table suffix.
func (w *ResultWriter) Path(orbit, suffix string) string {
	return filepath.Join(w.dir, domain.ProductStem(orbit)+suffix+Extension)
}

// WriteOrbit writes the hotspot, sample and match tables.
func (w *ResultWriter) WriteOrbit(_ context.Context, res *pipeline.OrbitResult) error {
	if err := WriteFile(w.Path(res.ID, SuffixFlares), rows.Hotspots(res)); err != nil {
		return err
	}
	if err := WriteFile(w.Path(res.ID, SuffixSampling), rows.Samples(res)); err != nil {
		return err
	}
	return WriteFile(w.Path(res.ID, SuffixMatches), rows.Matches(res))
}

// WriteCollocated writes the collocated table under the primary orbit's stem.
func (w *ResultWriter) WriteCollocated(_ context.Context, res *pipeline.CollocatedResult) error {
	return WriteFile(w.Path(res.Primary.ID, SuffixCollocated), rows.CollocatedFlares(res))
}
