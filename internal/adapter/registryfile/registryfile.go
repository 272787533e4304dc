// Package registryfile picks a registry source from a file extension.
package registryfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/csvregistry"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/parquet"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/sqlite"
	"github.com/couchcryptid/flare-attribution-engine/internal/registry"
)

// Load reads and consolidates the registry at path. Supported formats are
// .csv, .parquet and SQLite (.db, .sqlite).
func Load(ctx context.Context, path string) (*registry.Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return registry.Load(ctx, csvregistry.Source{Path: path})
	case parquet.Extension:
		return registry.Load(ctx, parquet.RegistrySource{Path: path})
	case ".db", ".sqlite", ".sqlite3":
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load registry: %w", err)
		}
		defer store.Close()
		return registry.Load(ctx, store)
	}
	return nil, fmt.Errorf("load registry: unsupported format %q", filepath.Ext(path))
}
