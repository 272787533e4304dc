package aggregate

import (
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

type (
	hotspotRule = Rule[domain.DetectionRecord, domain.HotspotCell]
	sampleRule  = Rule[domain.SamplePixel, domain.SampleCell]
)

// HotspotRules are the column reductions for hotspot cells.
var HotspotRules = []hotspotRule{
	{"frp", Sum, func(r *domain.DetectionRecord) float64 { return r.FRP }, func(c *domain.HotspotCell, v float64) { c.FRP = v }},
	{"swir_radiances", Mean, func(r *domain.DetectionRecord) float64 { return r.SWIRRadiance }, func(c *domain.HotspotCell, v float64) { c.SWIRRadiance = v }},
	{"swir_reflectances", Mean, func(r *domain.DetectionRecord) float64 { return r.SWIRReflectance }, func(c *domain.HotspotCell, v float64) { c.SWIRReflectance = v }},
	{"mwir_radiances", Mean, func(r *domain.DetectionRecord) float64 { return r.MWIRRadiance }, func(c *domain.HotspotCell, v float64) { c.MWIRRadiance = v }},
	{"mwir_bg", Mean, func(r *domain.DetectionRecord) float64 { return r.Background.Radiance }, func(c *domain.HotspotCell, v float64) { c.MWIRBackground = v }},
	{"pixel_size", Sum, func(r *domain.DetectionRecord) float64 { return r.PixelSize }, func(c *domain.HotspotCell, v float64) { c.PixelSize = v }},
	{"lats", Mean, func(r *domain.DetectionRecord) float64 { return r.Lat }, func(c *domain.HotspotCell, v float64) { c.Lat = v }},
	{"lons", Mean, func(r *domain.DetectionRecord) float64 { return r.Lon }, func(c *domain.HotspotCell, v float64) { c.Lon = v }},
	{"cloud_bg_pc", Mean, func(r *domain.DetectionRecord) float64 { return r.Background.CloudFrac }, func(c *domain.HotspotCell, v float64) { c.CloudBackgroundFrac = v }},
	{"hotspot_bg_pc", Mean, func(r *domain.DetectionRecord) float64 { return r.Background.HotspotFrac }, func(c *domain.HotspotCell, v float64) { c.HotspotBackgroundFrac = v }},
	{"inval_pixels_bg_pc", Mean, func(r *domain.DetectionRecord) float64 { return r.Background.InvalidFrac }, func(c *domain.HotspotCell, v float64) { c.InvalidBackgroundFrac = v }},
	{"bg_size_used", Mean, func(r *domain.DetectionRecord) float64 { return float64(r.Background.WindowUsed) }, func(c *domain.HotspotCell, v float64) { c.BackgroundWindow = v }},
	{"type", MajorityVote, func(r *domain.DetectionRecord) float64 { return float64(r.Type) }, func(c *domain.HotspotCell, v float64) { c.Type = domain.PixelType(v) }},
}

// SampleRules are the column reductions for sample cells.
var SampleRules = []sampleRule{
	{"types", PriorityLabel, func(r *domain.SamplePixel) float64 { return float64(r.Type) }, func(c *domain.SampleCell, v float64) { c.Type = domain.PixelType(v) }},
	{"lats", Mean, func(r *domain.SamplePixel) float64 { return r.Lat }, func(c *domain.SampleCell, v float64) { c.Lat = v }},
	{"lons", Mean, func(r *domain.SamplePixel) float64 { return r.Lon }, func(c *domain.SampleCell, v float64) { c.Lon = v }},
}

// PhysicsMeta is the calibration context stamped on hotspot cells.
type PhysicsMeta struct {
	SunEarthDistance float64
	FRPCoefficient   float64
}

// Hotspots reduces detections to one cell per arc-minute key.
func Hotspots(records []domain.DetectionRecord, meta domain.OrbitMeta, phys PhysicsMeta) []domain.HotspotCell {
	groups := GroupBy(records, func(r domain.DetectionRecord) domain.CellKey { return r.Key })
	out := make([]domain.HotspotCell, len(groups))
	for i, g := range groups {
		cell := &out[i]
		cell.Key = g.Key
		cell.Pixels = len(g.Rows)
		cell.OrbitMeta = meta
		cell.SunEarthDistance = phys.SunEarthDistance
		cell.FRPCoefficient = phys.FRPCoefficient
		Apply(g.Rows, cell, HotspotRules)
	}
	return out
}

// Samples reduces sample pixels to one cell per arc-minute key.
func Samples(pixels []domain.SamplePixel, meta domain.OrbitMeta) []domain.SampleCell {
	groups := GroupBy(pixels, func(p domain.SamplePixel) domain.CellKey { return p.Key })
	out := make([]domain.SampleCell, len(groups))
	for i, g := range groups {
		cell := &out[i]
		cell.Key = g.Key
		cell.Pixels = len(g.Rows)
		cell.OrbitMeta = meta
		Apply(g.Rows, cell, SampleRules)
	}
	return out
}
