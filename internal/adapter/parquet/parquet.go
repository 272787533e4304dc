// Package parquet reads decoded swaths and registries from parquet files and
// writes per-orbit results.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	parquetgo "github.com/parquet-go/parquet-go"
)

// Extension is the suffix of every parquet file handled here.
const Extension = ".parquet"

const readBatch = 4096

// ReadFile reads every row of a parquet file.
func ReadFile[T any](ctx context.Context, path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquetgo.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquetgo.NewGenericReader[T](pf)
	defer reader.Close()

	out := make([]T, 0, reader.NumRows())
	buf := make([]T, readBatch)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			return out, nil
		}
	}
}

// WriteFile writes rows to path, replacing any existing file only once the
// new one is complete.
func WriteFile[T any](path string, rows []T) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := parquetgo.NewGenericWriter[T](tmp)
	if _, err = w.Write(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close writer %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// SidecarPath returns the decoded-swath file for a product path. Paths that
// already end in .parquet are returned unchanged.
func SidecarPath(product string) string {
	if strings.HasSuffix(product, Extension) {
		return product
	}
	return product + Extension
}
