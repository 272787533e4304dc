// Package csvregistry reads and writes the flare registry as CSV with a
// flare_id,lats,lons,dt_start,dt_stop header. Columns may appear in any order
// and extra columns are ignored.
package csvregistry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Columns is the header written by Write.
var Columns = []string{"flare_id", "lats", "lons", "dt_start", "dt_stop"}

// timeLayouts are tried in order when parsing dt_start and dt_stop.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Source reads a registry CSV file. It implements registry.Source.
type Source struct {
	Path string
}

func (s Source) Flares(ctx context.Context) ([]domain.Flare, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(ctx, f)
}

// Read parses registry rows from r.
func Read(ctx context.Context, r io.Reader) ([]domain.Flare, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var out []domain.Flare
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		f, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, f)
	}
}

func parseRow(rec []string, idx map[string]int) (domain.Flare, error) {
	var (
		f   domain.Flare
		err error
	)
	if f.ID, err = strconv.ParseInt(rec[idx["flare_id"]], 10, 64); err != nil {
		return f, fmt.Errorf("flare_id: %w", err)
	}
	if f.Lat, err = parseCoord(rec[idx["lats"]]); err != nil {
		return f, fmt.Errorf("lats: %w", err)
	}
	if f.Lon, err = parseCoord(rec[idx["lons"]]); err != nil {
		return f, fmt.Errorf("lons: %w", err)
	}
	if f.Start, err = parseTime(rec[idx["dt_start"]]); err != nil {
		return f, fmt.Errorf("dt_start: %w", err)
	}
	if f.Stop, err = parseTime(rec[idx["dt_stop"]]); err != nil {
		return f, fmt.Errorf("dt_stop: %w", err)
	}
	return f, nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// Write stores flares with the Columns header.
func Write(w io.Writer, flares []domain.Flare) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, f := range flares {
		rec := []string{
			strconv.FormatInt(f.ID, 10),
			strconv.FormatFloat(f.Lat, 'f', -1, 64),
			strconv.FormatFloat(f.Lon, 'f', -1, 64),
			f.Start.UTC().Format(time.RFC3339),
			f.Stop.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
