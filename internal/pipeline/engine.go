package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/aggregate"
	"github.com/couchcryptid/flare-attribution-engine/internal/background"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/mask"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
	"github.com/couchcryptid/flare-attribution-engine/internal/radiometry"
	"github.com/couchcryptid/flare-attribution-engine/internal/registry"
)

// OrbitResult is everything derived from one swath.
type OrbitResult struct {
	ID            string
	Meta          domain.OrbitMeta
	Detections    []domain.DetectionRecord
	Hotspots      []domain.HotspotCell
	Samples       []domain.SampleCell
	Matches       []domain.Match[domain.HotspotCell]
	SampleMatches []domain.Match[domain.SampleCell]
	RunID         string
	ProcessedAt   time.Time
}

// Engine runs the detection stages for one orbit at a time. It holds no
// per-orbit state and is safe for concurrent use.
type Engine struct {
	settings     Settings
	calibrations radiometry.Calibrations
	registry     *registry.Snapshot
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewEngine creates an Engine bound to a registry snapshot.
func NewEngine(settings Settings, cals radiometry.Calibrations, reg *registry.Snapshot, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if reg == nil {
		reg = registry.NewSnapshot(nil)
	}
	return &Engine{
		settings:     settings,
		calibrations: cals,
		registry:     reg,
		logger:       logger,
		metrics:      metrics,
	}
}

// ProcessOrbit masks, detects, estimates backgrounds, labels, aggregates and
// matches one swath. Structural problems with the swath are returned as
// *domain.DataError.
func (e *Engine) ProcessOrbit(ctx context.Context, s *domain.Swath) (*OrbitResult, error) {
	if err := s.Validate(domain.RequiredBands...); err != nil {
		return nil, err
	}
	cal, err := e.calibrations.For(s.Sensor)
	if err != nil {
		return nil, err
	}
	conv := radiometry.NewConverter(cal, s.Time, e.settings.Background.Wavelength)

	masks, err := mask.Build(s, e.settings.Thresholds)
	if err != nil {
		return nil, err
	}
	bands := make(map[domain.BandName]domain.Band, len(domain.RequiredBands))
	for _, name := range domain.RequiredBands {
		bands[name], _ = s.Band(name) // validated above
	}

	meta := s.Meta()
	records := e.detect(masks, bands, conv)

	keys := make([]domain.CellKey, len(records))
	lines := make([]int, len(records))
	samples := make([]int, len(records))
	for i, r := range records {
		keys[i], lines[i], samples[i] = r.Key, r.Line, r.Sample
	}
	clusters := background.Clusters(keys, lines, samples)
	estimates, err := background.EstimateAll(ctx, clusters, background.Inputs{
		CloudFree: masks.CloudFree,
		Hotspot:   masks.Hotspot,
		BT:        bands[domain.BandMWIR],
	}, e.settings.Background, e.settings.Workers)
	if err != nil {
		return nil, fmt.Errorf("estimate background: %w", err)
	}

	byKey := make(map[domain.CellKey]domain.BackgroundEstimate, len(clusters))
	failed := 0
	for i, c := range clusters {
		byKey[c.Key] = estimates[i]
		if !estimates[i].Valid {
			failed++
		}
	}
	active := e.registry.ActiveCells(meta.Date())
	for i := range records {
		r := &records[i]
		r.Background = byKey[r.Key]
		r.Type = label(r.Background, active, r.Key)
	}

	hotspots := aggregate.Hotspots(records, meta, aggregate.PhysicsMeta{
		SunEarthDistance: conv.SunEarthDistance(),
		FRPCoefficient:   conv.FRPCoefficient(),
	})
	sampleCells := aggregate.Samples(e.samplePixels(masks, bands), meta)

	tol := e.settings.MatchTolerance
	res := &OrbitResult{
		ID:            s.ID,
		Meta:          meta,
		Detections:    records,
		Hotspots:      hotspots,
		Samples:       sampleCells,
		Matches:       registry.MatchActive(e.registry, meta.Date(), hotspots, tol),
		SampleMatches: registry.MatchActive(e.registry, meta.Date(), sampleCells, tol),
	}

	e.metrics.HotspotPixels.Add(float64(len(records)))
	e.metrics.BackgroundFailures.Add(float64(failed))
	e.metrics.Cells.WithLabelValues("hotspot").Add(float64(len(hotspots)))
	e.metrics.Cells.WithLabelValues("sample").Add(float64(len(sampleCells)))
	e.metrics.Matches.WithLabelValues("hotspot").Add(float64(len(res.Matches)))
	e.metrics.Matches.WithLabelValues("sample").Add(float64(len(res.SampleMatches)))

	e.logger.Debug("orbit processed",
		"orbit", s.ID,
		"sensor", s.Sensor,
		"hotspot_pixels", len(records),
		"hotspot_cells", len(hotspots),
		"sample_cells", len(sampleCells),
		"background_failures", failed,
		"matches", len(res.Matches),
	)
	return res, nil
}

// detect builds one record per night hotspot pixel with a valid position.
func (e *Engine) detect(masks mask.Masks, bands map[domain.BandName]domain.Band, conv *radiometry.Converter) []domain.DetectionRecord {
	lat, lon := bands[domain.BandLatitude], bands[domain.BandLongitude]
	swir, bt := bands[domain.BandSWIR], bands[domain.BandMWIR]
	solar, view := bands[domain.BandSolarElev], bands[domain.BandViewElev]

	lines, samples := domain.Where(masks.Hotspot)
	out := make([]domain.DetectionRecord, 0, len(lines))
	for i, l := range lines {
		p := samples[i]
		la, lo := lat.At(l, p), lon.At(l, p)
		if math.IsNaN(la) || math.IsNaN(lo) {
			continue
		}
		rla, rlo := e.settings.Binner.Round(la, lo)
		refl := swir.At(l, p)
		rad := conv.SWIRRadiance(refl)
		out = append(out, domain.DetectionRecord{
			Key:             e.settings.Binner.Cell(la, lo),
			Line:            l,
			Sample:          p,
			Lat:             rla,
			Lon:             rlo,
			FRP:             conv.FRP(rad, p),
			SWIRRadiance:    rad,
			SWIRReflectance: refl,
			MWIRRadiance:    conv.MWIRRadiance(bt.At(l, p)),
			SolarElev:       solar.At(l, p),
			ViewElev:        view.At(l, p),
			PixelSize:       conv.PixelSize(p),
		})
	}
	return out
}

// samplePixels labels every night pixel that was cloud-free or burning.
func (e *Engine) samplePixels(masks mask.Masks, bands map[domain.BandName]domain.Band) []domain.SamplePixel {
	lat, lon := bands[domain.BandLatitude], bands[domain.BandLongitude]
	lines, samples := domain.Where(masks.Sample)
	out := make([]domain.SamplePixel, 0, len(lines))
	for i, l := range lines {
		p := samples[i]
		la, lo := lat.At(l, p), lon.At(l, p)
		if math.IsNaN(la) || math.IsNaN(lo) {
			continue
		}
		typ := domain.TypeCloudFree
		if masks.Hotspot.At(l, p) {
			typ = domain.TypeFlare
		}
		rla, rlo := e.settings.Binner.Round(la, lo)
		out = append(out, domain.SamplePixel{Key: e.settings.Binner.Cell(la, lo), Lat: rla, Lon: rlo, Type: typ})
	}
	return out
}

func label(bg domain.BackgroundEstimate, active map[domain.CellKey]struct{}, key domain.CellKey) domain.PixelType {
	if !bg.Valid {
		return domain.TypeInvalidBackground
	}
	if _, ok := active[key]; ok {
		return domain.TypeFlare
	}
	return domain.TypeNonFlare
}
