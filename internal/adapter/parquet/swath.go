package parquet

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/rows"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// SwathReader decodes swaths stored as one row per pixel. It implements
// pipeline.SwathReader. The sensor and acquisition time come from the
// product name.
type SwathReader struct{}

// ReadSwath reads the sidecar of the product at path.
func (SwathReader) ReadSwath(ctx context.Context, path string) (*domain.Swath, error) {
	product := strings.TrimSuffix(path, Extension)
	sensor, t, err := domain.ParseProductID(product)
	if err != nil {
		return nil, err
	}
	pixels, err := ReadFile[rows.Pixel](ctx, SidecarPath(path))
	if err != nil {
		return nil, err
	}
	lines, samples, bands, err := rows.Swath(pixels)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", SidecarPath(path), err)
	}
	return &domain.Swath{
		ID:      domain.ProductStem(product),
		Sensor:  sensor,
		Time:    t,
		Lines:   lines,
		Samples: samples,
		Bands:   bands,
	}, nil
}

// WriteSwath stores s as the sidecar of the product at path.
func WriteSwath(path string, s *domain.Swath) error {
	pixels, err := rows.Pixels(s)
	if err != nil {
		return fmt.Errorf("flatten swath: %w", err)
	}
	return WriteFile(SidecarPath(path), pixels)
}
