// Command validate checks the parquet tables written by ggf-extract for
// internal consistency: value ranges, match distances, registry activity,
// and that every hotspot match points at a written hotspot cell.
//
// Usage:
//
//	go run ./cmd/validate -dir out -registry data/mock/registry.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/parquet"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/registryfile"
	"github.com/couchcryptid/flare-attribution-engine/internal/adapter/rows"
	"github.com/couchcryptid/flare-attribution-engine/internal/registry"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// orbitTables holds the three per-orbit tables.
type orbitTables struct {
	orbit    string
	hotspots []rows.Hotspot
	samples  []rows.Sample
	matches  []rows.Match
}

func main() {
	dir := flag.String("dir", "", "directory containing ggf-extract output")
	registryPath := flag.String("registry", "", "flare registry (.csv, .parquet or .db)")
	tolerance := flag.Float64("tolerance", 1.0/120, "match tolerance in degrees")
	flag.Parse()

	if *dir == "" || *registryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), *dir, *registryPath, *tolerance); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, dir, registryPath string, tolerance float64) int {
	fmt.Println("=== Flare Output Validation ===")
	fmt.Println()

	snap, err := registryfile.Load(ctx, registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load registry: %v\n", err)
		return 1
	}

	orbits, err := loadOrbits(ctx, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load outputs: %v\n", err)
		return 1
	}
	if len(orbits) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no %s%s files in %s\n", parquet.SuffixFlares, parquet.Extension, dir)
		return 1
	}

	phases := []*phase{
		validateHotspots(orbits),
		validateSamples(orbits),
		validateMatches(orbits, snap, tolerance),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	var nh, ns, nm int
	for _, o := range orbits {
		nh += len(o.hotspots)
		ns += len(o.samples)
		nm += len(o.matches)
	}
	fmt.Println()
	fmt.Printf("Orbits: %d, hotspot cells: %d, sample cells: %d, matches: %d, registry flares: %d\n",
		len(orbits), nh, ns, nm, snap.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadOrbits(ctx context.Context, dir string) ([]orbitTables, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+parquet.SuffixFlares+parquet.Extension))
	if err != nil {
		return nil, err
	}
	out := make([]orbitTables, 0, len(paths))
	for _, p := range paths {
		stem := strings.TrimSuffix(p, parquet.SuffixFlares+parquet.Extension)
		t := orbitTables{orbit: filepath.Base(stem)}
		if t.hotspots, err = parquet.ReadFile[rows.Hotspot](ctx, p); err != nil {
			return nil, err
		}
		if t.samples, err = parquet.ReadFile[rows.Sample](ctx, stem+parquet.SuffixSampling+parquet.Extension); err != nil {
			return nil, err
		}
		if t.matches, err = parquet.ReadFile[rows.Match](ctx, stem+parquet.SuffixMatches+parquet.Extension); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ── Phases ──

func validateHotspots(orbits []orbitTables) *phase {
	p := &phase{name: "Phase 1: Hotspot cells"}
	for _, o := range orbits {
		for i, h := range o.hotspots {
			where := fmt.Sprintf("%s row %d", o.orbit, i)
			if h.Type < 0 || h.Type > 2 {
				p.errorf("%s: type %d out of range", where, h.Type)
			}
			if h.Pixels <= 0 {
				p.errorf("%s: pixel count %d", where, h.Pixels)
			}
			if h.FRP != nil && *h.FRP < 0 {
				p.errorf("%s: negative frp %g", where, *h.FRP)
			}
			checkFraction(p, where, "cloud_bg_pc", h.CloudBgPc)
			checkFraction(p, where, "hotspot_bg_pc", h.HotspotBgPc)
			checkFraction(p, where, "inval_pixels_bg_pc", h.InvalPixelsBgPc)
			if h.Orbit != o.orbit {
				p.errorf("%s: orbit column %q", where, h.Orbit)
			}
		}
	}
	return p
}

func checkFraction(p *phase, where, col string, v *float64) {
	if v != nil && (*v < 0 || *v > 1) {
		p.errorf("%s: %s %g outside [0, 1]", where, col, *v)
	}
}

func validateSamples(orbits []orbitTables) *phase {
	p := &phase{name: "Phase 2: Sample cells"}
	for _, o := range orbits {
		for i, s := range o.samples {
			where := fmt.Sprintf("%s row %d", o.orbit, i)
			if s.Types != 1 && s.Types != 2 {
				p.errorf("%s: types %d, want 1 or 2", where, s.Types)
			}
			if s.Pixels <= 0 {
				p.errorf("%s: pixel count %d", where, s.Pixels)
			}
		}
	}
	return p
}

func validateMatches(orbits []orbitTables, snap *registry.Snapshot, tolerance float64) *phase {
	p := &phase{name: "Phase 3: Registry matches"}
	for _, o := range orbits {
		cells := make(map[[2]int32]struct{}, len(o.hotspots))
		for _, h := range o.hotspots {
			cells[[2]int32{h.LatsArcmin, h.LonsArcmin}] = struct{}{}
		}

		for i, m := range o.matches {
			where := fmt.Sprintf("%s match %d (flare %d)", o.orbit, i, m.FlareID)
			if m.Distance > tolerance {
				p.errorf("%s: distance %g exceeds tolerance %g", where, m.Distance, tolerance)
			}
			day := time.Date(int(m.Year), time.Month(m.Month), int(m.Day), 0, 0, 0, 0, time.UTC)
			if !isActive(snap, m.FlareID, day) {
				p.errorf("%s: flare not active on %s", where, day.Format(time.DateOnly))
			}
			switch m.Kind {
			case rows.KindHotspot:
				if _, ok := cells[[2]int32{m.LatsArcmin, m.LonsArcmin}]; !ok {
					p.errorf("%s: no hotspot cell at (%d, %d)", where, m.LatsArcmin, m.LonsArcmin)
				}
			case rows.KindSample:
			default:
				p.errorf("%s: unknown kind %q", where, m.Kind)
			}
		}
	}
	return p
}

func isActive(snap *registry.Snapshot, id int64, day time.Time) bool {
	for _, f := range snap.Active(day) {
		if f.ID == id {
			return true
		}
	}
	return false
}
