// Command ggf-extract detects gas-flare hotspots in decoded orbit swaths,
// attributes them to the flare registry and writes per-orbit parquet tables.
//
// Usage:
//
//	REGISTRY_PATH=registry.csv OUTPUT_DIR=out \
//	  ggf-extract data/ATS_TOA_1PUUPA20030612_213500_*.N1 ...
//
// Each argument is a product path; its decoded swath is read from the
// .parquet sidecar next to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flare-attribution-engine/internal/app"
	"github.com/couchcryptid/flare-attribution-engine/internal/config"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <orbit>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	a.Start()

	sum := a.Batch.Run(ctx, flag.Args())
	a.Close()
	os.Exit(app.ExitCode(sum))
}
