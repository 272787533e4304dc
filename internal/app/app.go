// Package app wires configuration, adapters and the pipeline for the
// command-line entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/flare-attribution-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flare-attribution-engine/internal/adapter/kafka"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/mapbox"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/parquet"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/registryfile"
	"github.com/couchcryptid/flare-attribution-engine/internal/config"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
	"github.com/couchcryptid/flare-attribution-engine/internal/radiometry"
)

// App holds the wired components of one process.
type App struct {
	Batch *pipeline.Batch

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	parquet *parquet.ResultWriter
	kafka   *kafkaadapter.Writer
	server  *httpadapter.Server
}

// New loads calibrations and the registry and builds the batch driver with
// its writers. Optional collaborators (Kafka, Mapbox, HTTP) are enabled by
// their configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	cals, err := loadCalibrations(cfg.CalibrationFile)
	if err != nil {
		return nil, err
	}
	if cfg.RegistryPath == "" {
		return nil, errors.New("REGISTRY_PATH is required")
	}
	snap, err := registryfile.Load(ctx, cfg.RegistryPath)
	if err != nil {
		return nil, err
	}
	logger.Info("registry loaded", "path", cfg.RegistryPath, "flares", snap.Len())

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		parquet: parquet.NewResultWriter(cfg.OutputDir),
	}
	writers := []pipeline.ResultWriter{a.parquet}
	if len(cfg.KafkaBrokers) > 0 {
		a.kafka = kafkaadapter.NewWriter(cfg, logger, metrics)
		writers = append(writers, a.kafka)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	engine := pipeline.NewEngine(pipeline.NewSettings(cfg), cals, snap, logger, metrics)
	a.Batch = pipeline.NewBatch(engine, parquet.SwathReader{}, writers, logger, metrics, clockwork.NewRealClock())

	// Reverse geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		a.Batch.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	if cfg.HTTPAddr != "" {
		a.server = httpadapter.NewServer(cfg.HTTPAddr, a.Batch, a.Batch, logger)
	}
	return a, nil
}

// CollocatedWriters returns the writers for collocated rows.
func (a *App) CollocatedWriters() []pipeline.CollocatedWriter {
	out := []pipeline.CollocatedWriter{a.parquet}
	if a.kafka != nil {
		out = append(out, a.kafka)
	}
	return out
}

// Start launches the HTTP server when one is configured.
func (a *App) Start() {
	if a.server == nil {
		return
	}
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()
}

// Close drains the HTTP server and closes the Kafka producer.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
}

func loadCalibrations(path string) (radiometry.Calibrations, error) {
	cals := radiometry.DefaultCalibrations()
	if path == "" {
		return cals, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calibration file: %w", err)
	}
	defer f.Close()
	return radiometry.LoadCalibrations(f, cals)
}

// ExitCode maps a run summary to a process exit status. A run fails only
// when orbits were given and none succeeded.
func ExitCode(sum pipeline.Summary) int {
	if sum.Processed == 0 && sum.Failed > 0 {
		return 1
	}
	return 0
}
