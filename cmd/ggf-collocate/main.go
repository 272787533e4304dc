// Command ggf-collocate pairs AATSR orbits with the ATSR-2 orbits acquired
// alongside them and writes the flares matched by both sensors.
//
// Usage:
//
//	REGISTRY_PATH=registry.csv OUTPUT_DIR=out \
//	  ggf-collocate data/aatsr-v3/ats_toa_1p/ATS_TOA_1PUUPA20030612_213500_*.N1 ...
//
// Companions are looked up in the parallel atsr2-v3/at2_toa_1p tree.
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
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <aatsr-orbit>...\n", os.Args[0])
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

	collocator := pipeline.NewCollocator(a.Batch, a.CollocatedWriters(), logger, metrics)
	sum := collocator.Run(ctx, flag.Args())
	a.Close()
	os.Exit(app.ExitCode(sum))
}
