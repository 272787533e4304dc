// Package rows defines the flat record shapes written to parquet files and
// published to Kafka. Invalid measurements are nil rather than NaN.
package rows

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/pipeline"
)

// Match kinds.
const (
	KindHotspot = "hotspot"
	KindSample  = "sample"
)

// Hotspot is one aggregated hotspot cell.
type Hotspot struct {
	Orbit            string   `parquet:"orbit" json:"orbit"`
	RunID            string   `parquet:"run_id" json:"run_id"`
	ProcessedAt      int64    `parquet:"processed_at" json:"processed_at"`
	LatsArcmin       int32    `parquet:"lats_arcmin" json:"lats_arcmin"`
	LonsArcmin       int32    `parquet:"lons_arcmin" json:"lons_arcmin"`
	Lats             *float64 `parquet:"lats" json:"lats"`
	Lons             *float64 `parquet:"lons" json:"lons"`
	FRP              *float64 `parquet:"frp" json:"frp"`
	SWIRRadiances    *float64 `parquet:"swir_radiances" json:"swir_radiances"`
	SWIRReflectances *float64 `parquet:"swir_reflectances" json:"swir_reflectances"`
	MWIRRadiances    *float64 `parquet:"mwir_radiances" json:"mwir_radiances"`
	MWIRBg           *float64 `parquet:"mwir_bg" json:"mwir_bg"`
	PixelSize        *float64 `parquet:"pixel_size" json:"pixel_size"`
	CloudBgPc        *float64 `parquet:"cloud_bg_pc" json:"cloud_bg_pc"`
	HotspotBgPc      *float64 `parquet:"hotspot_bg_pc" json:"hotspot_bg_pc"`
	InvalPixelsBgPc  *float64 `parquet:"inval_pixels_bg_pc" json:"inval_pixels_bg_pc"`
	BgSizeUsed       *float64 `parquet:"bg_size_used" json:"bg_size_used"`
	Type             int32    `parquet:"type" json:"type"`
	Pixels           int32    `parquet:"pixels" json:"pixels"`
	Year             int32    `parquet:"year" json:"year"`
	Month            int32    `parquet:"month" json:"month"`
	Day              int32    `parquet:"day" json:"day"`
	HHMM             int32    `parquet:"hhmm" json:"hhmm"`
	Sensor           string   `parquet:"sensor" json:"sensor"`
	SeDist           float64  `parquet:"se_dist" json:"se_dist"`
	FRPCoeff         float64  `parquet:"frp_coeff" json:"frp_coeff"`
}

// Sample is one aggregated sample cell.
type Sample struct {
	Orbit       string  `parquet:"orbit" json:"orbit"`
	RunID       string  `parquet:"run_id" json:"run_id"`
	ProcessedAt int64   `parquet:"processed_at" json:"processed_at"`
	LatsArcmin  int32   `parquet:"lats_arcmin" json:"lats_arcmin"`
	LonsArcmin  int32   `parquet:"lons_arcmin" json:"lons_arcmin"`
	Lats        float64 `parquet:"lats" json:"lats"`
	Lons        float64 `parquet:"lons" json:"lons"`
	Types       int32   `parquet:"types" json:"types"`
	Pixels      int32   `parquet:"pixels" json:"pixels"`
	Year        int32   `parquet:"year" json:"year"`
	Month       int32   `parquet:"month" json:"month"`
	Day         int32   `parquet:"day" json:"day"`
	HHMM        int32   `parquet:"hhmm" json:"hhmm"`
	Sensor      string  `parquet:"sensor" json:"sensor"`
}

// Match is a registry flare paired with a hotspot or sample cell.
type Match struct {
	Orbit            string   `parquet:"orbit" json:"orbit"`
	RunID            string   `parquet:"run_id" json:"run_id"`
	ProcessedAt      int64    `parquet:"processed_at" json:"processed_at"`
	Kind             string   `parquet:"kind" json:"kind"`
	FlareID          int64    `parquet:"flare_id" json:"flare_id"`
	Distance         float64  `parquet:"distance" json:"distance"`
	LatsArcmin       int32    `parquet:"lats_arcmin" json:"lats_arcmin"`
	LonsArcmin       int32    `parquet:"lons_arcmin" json:"lons_arcmin"`
	Lats             float64  `parquet:"lats" json:"lats"`
	Lons             float64  `parquet:"lons" json:"lons"`
	Type             int32    `parquet:"type" json:"type"`
	FRP              *float64 `parquet:"frp" json:"frp"`
	// Physical quantities of a matched hotspot cell; nil on sample matches.
	SWIRRadiances    *float64 `parquet:"swir_radiances" json:"swir_radiances"`
	SWIRReflectances *float64 `parquet:"swir_reflectances" json:"swir_reflectances"`
	MWIRRadiances    *float64 `parquet:"mwir_radiances" json:"mwir_radiances"`
	MWIRBg           *float64 `parquet:"mwir_bg" json:"mwir_bg"`
	PixelSize        *float64 `parquet:"pixel_size" json:"pixel_size"`
	BgSizeUsed       *float64 `parquet:"bg_size_used" json:"bg_size_used"`
	PlaceName        string   `parquet:"place_name" json:"place_name,omitempty"`
	Country          string   `parquet:"country" json:"country,omitempty"`
	GeoSource        string   `parquet:"geo_source" json:"geo_source,omitempty"`
	Year             int32    `parquet:"year" json:"year"`
	Month            int32    `parquet:"month" json:"month"`
	Day              int32    `parquet:"day" json:"day"`
	HHMM             int32    `parquet:"hhmm" json:"hhmm"`
	Sensor           string   `parquet:"sensor" json:"sensor"`
}

// Collocated is a flare matched by both sensors of an orbit pair.
type Collocated struct {
	RunID             string   `parquet:"run_id" json:"run_id"`
	ProcessedAt       int64    `parquet:"processed_at" json:"processed_at"`
	FlareID           int64    `parquet:"flare_id" json:"flare_id"`
	PrimaryOrbit      string   `parquet:"primary_orbit" json:"primary_orbit"`
	CompanionOrbit    string   `parquet:"companion_orbit" json:"companion_orbit"`
	PrimarySensor     string   `parquet:"primary_sensor" json:"primary_sensor"`
	CompanionSensor   string   `parquet:"companion_sensor" json:"companion_sensor"`
	PrimaryLats       float64  `parquet:"primary_lats" json:"primary_lats"`
	PrimaryLons       float64  `parquet:"primary_lons" json:"primary_lons"`
	CompanionLats     float64  `parquet:"companion_lats" json:"companion_lats"`
	CompanionLons     float64  `parquet:"companion_lons" json:"companion_lons"`
	PrimaryFRP        *float64 `parquet:"primary_frp" json:"primary_frp"`
	CompanionFRP      *float64 `parquet:"companion_frp" json:"companion_frp"`
	PrimaryDistance   float64  `parquet:"primary_distance" json:"primary_distance"`
	CompanionDistance float64  `parquet:"companion_distance" json:"companion_distance"`
	PrimaryType       int32    `parquet:"primary_type" json:"primary_type"`
	CompanionType     int32    `parquet:"companion_type" json:"companion_type"`
}

// Flare is one registry observation row.
type Flare struct {
	FlareID int64   `parquet:"flare_id" json:"flare_id"`
	Lats    float64 `parquet:"lats" json:"lats"`
	Lons    float64 `parquet:"lons" json:"lons"`
	DtStart int64   `parquet:"dt_start" json:"dt_start"`
	DtStop  int64   `parquet:"dt_stop" json:"dt_stop"`
}

// Pixel is one pixel of a decoded swath.
type Pixel struct {
	Line       int32    `parquet:"line"`
	Sample     int32    `parquet:"sample"`
	Latitude   *float64 `parquet:"latitude"`
	Longitude  *float64 `parquet:"longitude"`
	Reflec1600 *float64 `parquet:"reflec_nadir_1600"`
	Btemp0370  *float64 `parquet:"btemp_nadir_0370"`
	SunElev    *float64 `parquet:"sun_elev_nadir"`
	ViewElev   *float64 `parquet:"view_elev_nadir"`
	CloudFlags int32    `parquet:"cloud_flags_nadir"`
}

// Nullable maps NaN and infinities to nil.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Value maps nil back to NaN.
func Value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Time converts Unix milliseconds to a UTC time.
func Time(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Hotspots flattens an orbit's hotspot cells.
func Hotspots(res *pipeline.OrbitResult) []Hotspot {
	out := make([]Hotspot, len(res.Hotspots))
	for i, c := range res.Hotspots {
		out[i] = Hotspot{
			Orbit:            res.ID,
			RunID:            res.RunID,
			ProcessedAt:      Millis(res.ProcessedAt),
			LatsArcmin:       int32(c.Key.Lat),
			LonsArcmin:       int32(c.Key.Lon),
			Lats:             Nullable(c.Lat),
			Lons:             Nullable(c.Lon),
			FRP:              Nullable(c.FRP),
			SWIRRadiances:    Nullable(c.SWIRRadiance),
			SWIRReflectances: Nullable(c.SWIRReflectance),
			MWIRRadiances:    Nullable(c.MWIRRadiance),
			MWIRBg:           Nullable(c.MWIRBackground),
			PixelSize:        Nullable(c.PixelSize),
			CloudBgPc:        Nullable(c.CloudBackgroundFrac),
			HotspotBgPc:      Nullable(c.HotspotBackgroundFrac),
			InvalPixelsBgPc:  Nullable(c.InvalidBackgroundFrac),
			BgSizeUsed:       Nullable(c.BackgroundWindow),
			Type:             int32(c.Type),
			Pixels:           int32(c.Pixels),
			Year:             int32(c.Year),
			Month:            int32(c.Month),
			Day:              int32(c.Day),
			HHMM:             int32(c.HHMM),
			Sensor:           string(c.Sensor),
			SeDist:           c.SunEarthDistance,
			FRPCoeff:         c.FRPCoefficient,
		}
	}
	return out
}

// Samples flattens an orbit's sample cells.
func Samples(res *pipeline.OrbitResult) []Sample {
	out := make([]Sample, len(res.Samples))
	for i, c := range res.Samples {
		out[i] = Sample{
			Orbit:       res.ID,
			RunID:       res.RunID,
			ProcessedAt: Millis(res.ProcessedAt),
			LatsArcmin:  int32(c.Key.Lat),
			LonsArcmin:  int32(c.Key.Lon),
			Lats:        c.Lat,
			Lons:        c.Lon,
			Types:       int32(c.Type),
			Pixels:      int32(c.Pixels),
			Year:        int32(c.Year),
			Month:       int32(c.Month),
			Day:         int32(c.Day),
			HHMM:        int32(c.HHMM),
			Sensor:      string(c.Sensor),
		}
	}
	return out
}

// Matches flattens both hotspot and sample matches of an orbit.
func Matches(res *pipeline.OrbitResult) []Match {
	out := make([]Match, 0, len(res.Matches)+len(res.SampleMatches))
	for _, m := range res.Matches {
		c := m.Candidate
		out = append(out, Match{
			Kind:             KindHotspot,
			FlareID:          m.FlareID,
			Distance:         m.Distance,
			LatsArcmin:       int32(c.Key.Lat),
			LonsArcmin:       int32(c.Key.Lon),
			Lats:             c.Lat,
			Lons:             c.Lon,
			Type:             int32(c.Type),
			FRP:              Nullable(c.FRP),
			SWIRRadiances:    Nullable(c.SWIRRadiance),
			SWIRReflectances: Nullable(c.SWIRReflectance),
			MWIRRadiances:    Nullable(c.MWIRRadiance),
			MWIRBg:           Nullable(c.MWIRBackground),
			PixelSize:        Nullable(c.PixelSize),
			BgSizeUsed:       Nullable(c.BackgroundWindow),
			PlaceName:        m.Site.PlaceName,
			Country:          m.Site.Country,
			GeoSource:        m.Site.Source,
		}.stamp(res, c.OrbitMeta))
	}
	for _, m := range res.SampleMatches {
		c := m.Candidate
		out = append(out, Match{
			Kind:       KindSample,
			FlareID:    m.FlareID,
			Distance:   m.Distance,
			LatsArcmin: int32(c.Key.Lat),
			LonsArcmin: int32(c.Key.Lon),
			Lats:       c.Lat,
			Lons:       c.Lon,
			Type:       int32(c.Type),
			PlaceName:  m.Site.PlaceName,
			Country:    m.Site.Country,
			GeoSource:  m.Site.Source,
		}.stamp(res, c.OrbitMeta))
	}
	return out
}

func (m Match) stamp(res *pipeline.OrbitResult, meta domain.OrbitMeta) Match {
	m.Orbit = res.ID
	m.RunID = res.RunID
	m.ProcessedAt = Millis(res.ProcessedAt)
	m.Year = int32(meta.Year)
	m.Month = int32(meta.Month)
	m.Day = int32(meta.Day)
	m.HHMM = int32(meta.HHMM)
	m.Sensor = string(meta.Sensor)
	return m
}

// CollocatedFlares flattens an orbit pair.
func CollocatedFlares(res *pipeline.CollocatedResult) []Collocated {
	out := make([]Collocated, len(res.Flares))
	for i, f := range res.Flares {
		p, c := f.Primary.Candidate, f.Companion.Candidate
		out[i] = Collocated{
			RunID:             res.RunID,
			ProcessedAt:       Millis(res.ProcessedAt),
			FlareID:           f.FlareID,
			PrimaryOrbit:      res.Primary.ID,
			CompanionOrbit:    res.Companion.ID,
			PrimarySensor:     string(p.Sensor),
			CompanionSensor:   string(c.Sensor),
			PrimaryLats:       p.Lat,
			PrimaryLons:       p.Lon,
			CompanionLats:     c.Lat,
			CompanionLons:     c.Lon,
			PrimaryFRP:        Nullable(p.FRP),
			CompanionFRP:      Nullable(c.FRP),
			PrimaryDistance:   f.Primary.Distance,
			CompanionDistance: f.Companion.Distance,
			PrimaryType:       int32(p.Type),
			CompanionType:     int32(c.Type),
		}
	}
	return out
}

// FromFlare converts a registry entry to a row.
func FromFlare(f domain.Flare) Flare {
	return Flare{FlareID: f.ID, Lats: f.Lat, Lons: f.Lon, DtStart: Millis(f.Start), DtStop: Millis(f.Stop)}
}

// ToFlare converts a row to a registry entry.
func (r Flare) ToFlare() domain.Flare {
	return domain.Flare{ID: r.FlareID, Lat: r.Lats, Lon: r.Lons, Start: Time(r.DtStart), Stop: Time(r.DtStop)}
}

// Pixels flattens every pixel of a swath in line-major order.
func Pixels(s *domain.Swath) ([]Pixel, error) {
	bands := make(map[domain.BandName]domain.Band, len(domain.RequiredBands))
	for _, name := range domain.RequiredBands {
		b, err := s.Band(name)
		if err != nil {
			return nil, err
		}
		bands[name] = b
	}
	out := make([]Pixel, 0, s.Lines*s.Samples)
	for l := range s.Lines {
		for p := range s.Samples {
			out = append(out, Pixel{
				Line:       int32(l),
				Sample:     int32(p),
				Latitude:   Nullable(bands[domain.BandLatitude].At(l, p)),
				Longitude:  Nullable(bands[domain.BandLongitude].At(l, p)),
				Reflec1600: Nullable(bands[domain.BandSWIR].At(l, p)),
				Btemp0370:  Nullable(bands[domain.BandMWIR].At(l, p)),
				SunElev:    Nullable(bands[domain.BandSolarElev].At(l, p)),
				ViewElev:   Nullable(bands[domain.BandViewElev].At(l, p)),
				CloudFlags: cloudFlagCode(bands[domain.BandCloudFlags].At(l, p)),
			})
		}
	}
	return out, nil
}

// MaxPixels bounds the grid a sidecar may describe. A full ATSR orbit is
// 512 samples by about 43000 lines.
const MaxPixels = 1 << 26

// MissingCloudFlags is the stored flag code of a pixel without a cloud flag.
// It is above the cloud-free codes, so the pixel never counts as clear.
const MissingCloudFlags int32 = 1 << 16

// Swath rebuilds band arrays from pixel rows. The shape is the bounding box
// of the line and sample indices; absent pixels are NaN. Negative indices or
// a bounding box above MaxPixels are a DataError.
func Swath(pixels []Pixel) (lines, samples int, bands map[domain.BandName]domain.Band, err error) {
	for _, px := range pixels {
		if px.Line < 0 || px.Sample < 0 {
			return 0, 0, nil, &domain.DataError{Reason: fmt.Sprintf("pixel at negative index (%d, %d)", px.Line, px.Sample)}
		}
		lines = max(lines, int(px.Line)+1)
		samples = max(samples, int(px.Sample)+1)
	}
	if lines*samples > MaxPixels {
		return 0, 0, nil, &domain.DataError{Reason: fmt.Sprintf("swath shape %dx%d exceeds %d pixels", lines, samples, MaxPixels)}
	}
	bands = make(map[domain.BandName]domain.Band, len(domain.RequiredBands))
	for _, name := range domain.RequiredBands {
		b := domain.NewGrid[float64](lines, samples)
		for i := range b.Values {
			b.Values[i] = math.NaN()
		}
		bands[name] = b
	}
	for _, px := range pixels {
		l, p := int(px.Line), int(px.Sample)
		bands[domain.BandLatitude].Set(l, p, Value(px.Latitude))
		bands[domain.BandLongitude].Set(l, p, Value(px.Longitude))
		bands[domain.BandSWIR].Set(l, p, Value(px.Reflec1600))
		bands[domain.BandMWIR].Set(l, p, Value(px.Btemp0370))
		bands[domain.BandSolarElev].Set(l, p, Value(px.SunElev))
		bands[domain.BandViewElev].Set(l, p, Value(px.ViewElev))
		bands[domain.BandCloudFlags].Set(l, p, cloudFlagValue(px.CloudFlags))
	}
	return lines, samples, bands, nil
}

func cloudFlagCode(v float64) int32 {
	if math.IsNaN(v) || v < 0 || v >= float64(MissingCloudFlags) {
		return MissingCloudFlags
	}
	return int32(v)
}

func cloudFlagValue(code int32) float64 {
	if code == MissingCloudFlags {
		return math.NaN()
	}
	return float64(code)
}
