package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/csvregistry"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/parquet"
	"github.com/couchcryptid/flare-attribution-engine/internal/config"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
	"github.com/couchcryptid/flare-attribution-engine/internal/synth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("OUTPUT_DIR", t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func writeRegistry(t *testing.T, scene synth.Scene) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, csvregistry.Write(&buf, scene.Registry(
		time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2003, 12, 31, 0, 0, 0, 0, time.UTC),
	)))
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestNew_RequiresRegistry(t *testing.T) {
	cfg := testConfig(t)
	_, err := New(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGISTRY_PATH")
}

func TestNew_BadCalibrationFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalibrationFile = filepath.Join(t.TempDir(), "missing.json")
	_, err := New(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calibration")
}

func TestNew_RunsBatch(t *testing.T) {
	scene := synth.DefaultScene()
	cfg := testConfig(t)
	cfg.RegistryPath = writeRegistry(t, scene)

	product := filepath.Join(t.TempDir(), scene.ProductName())
	require.NoError(t, parquet.WriteSwath(product, scene.Swath()))

	a, err := New(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	a.Start()
	defer a.Close()

	sum := a.Batch.Run(context.Background(), []string{product})
	require.Equal(t, 1, sum.Processed, "%+v", sum.Failures)
	assert.Equal(t, 0, ExitCode(sum))

	stem := domain.ProductStem(scene.ProductName())
	for _, suffix := range []string{parquet.SuffixFlares, parquet.SuffixSampling, parquet.SuffixMatches} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, stem+suffix+parquet.Extension))
	}
	assert.Len(t, a.CollocatedWriters(), 1)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(pipeline.Summary{}))
	assert.Equal(t, 0, ExitCode(pipeline.Summary{Processed: 1, Failed: 3}))
	assert.Equal(t, 1, ExitCode(pipeline.Summary{Failed: 1}))
}
