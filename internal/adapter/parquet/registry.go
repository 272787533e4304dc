package parquet

import (
	"context"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/rows"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// RegistrySource reads registry rows from a parquet file. It implements
// registry.Source.
type RegistrySource struct {
	Path string
}

func (s RegistrySource) Flares(ctx context.Context) ([]domain.Flare, error) {
	rs, err := ReadFile[rows.Flare](ctx, s.Path)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Flare, len(rs))
	for i, r := range rs {
		out[i] = r.ToFlare()
	}
	return out, nil
}

// WriteRegistry stores flares at path.
func WriteRegistry(path string, flares []domain.Flare) error {
	rs := make([]rows.Flare, len(flares))
	for i, f := range flares {
		rs[i] = rows.FromFlare(f)
	}
	return WriteFile(path, rs)
}
