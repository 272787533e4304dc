// Command genswath writes a synthetic orbit and a matching flare registry so
// the extraction and collocation commands can be run without real ATSR data.
//
// Usage:
//
//	go run ./cmd/genswath -out data/mock -registry csv
//	go run ./cmd/genswath -out data/mock -registry sqlite -pair
//
// With -pair the AATSR orbit and an ATSR-2 companion are laid out in the
// aatsr-v3/ats_toa_1p and atsr2-v3/at2_toa_1p trees that ggf-collocate
// expects. The companion sees only the second flare.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/csvregistry"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/parquet"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/sqlite"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/synth"
)

var (
	burnStart = time.Date(2002, time.January, 1, 0, 0, 0, 0, time.UTC)
	burnStop  = time.Date(2008, time.December, 31, 0, 0, 0, 0, time.UTC)
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory")
	format := flag.String("registry", "csv", "registry format: csv, parquet or sqlite")
	pair := flag.Bool("pair", false, "also write an ATSR-2 companion in the collocation layout")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	scene := synth.DefaultScene()

	primaryDir := *out
	if *pair {
		primaryDir = filepath.Join(*out, "aatsr-v3", "ats_toa_1p")
	}
	product, err := writeOrbit(primaryDir, scene)
	if err != nil {
		return err
	}
	log.Printf("wrote orbit: %s", product)

	if *pair {
		companion := scene
		companion.Sensor = domain.SensorAT2
		companion.Flares = companion.Flares[1:]
		product, err := writeOrbit(filepath.Join(*out, "atsr2-v3", "at2_toa_1p"), companion)
		if err != nil {
			return err
		}
		log.Printf("wrote companion: %s", product)
	}

	path, err := writeRegistry(*out, *format, scene.Registry(burnStart, burnStop))
	if err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	log.Printf("wrote registry: %s (%d flares)", path, len(scene.Flares))
	return nil
}

// writeOrbit writes an empty placeholder product, which the collocation
// glob looks for, and the decoded swath sidecar next to it.
func writeOrbit(dir string, scene synth.Scene) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	product := filepath.Join(dir, scene.ProductName())
	if err := os.WriteFile(product, nil, 0o644); err != nil {
		return "", fmt.Errorf("write product placeholder: %w", err)
	}
	if err := parquet.WriteSwath(parquet.SidecarPath(product), scene.Swath()); err != nil {
		return "", fmt.Errorf("write swath: %w", err)
	}
	return product, nil
}

func writeRegistry(dir, format string, flares []domain.Flare) (string, error) {
	switch format {
	case "csv":
		path := filepath.Join(dir, "registry.csv")
		f, err := os.Create(path)
		if err != nil {
			return "", err
		}
		if err := csvregistry.Write(f, flares); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	case "parquet":
		path := filepath.Join(dir, "registry"+parquet.Extension)
		return path, parquet.WriteRegistry(path, flares)
	case "sqlite":
		path := filepath.Join(dir, "registry.db")
		store, err := sqlite.Open(path)
		if err != nil {
			return "", err
		}
		defer store.Close()
		return path, store.InsertFlares(context.Background(), flares)
	}
	return "", fmt.Errorf("unknown registry format %q", format)
}
