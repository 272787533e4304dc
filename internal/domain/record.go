package domain

import (
	"fmt"
	"math"
	"time"
)

// CellKey identifies a 1 arc-minute grid cell. Each axis is
// sign*(degrees*100 + minutes).
type CellKey struct {
	Lat int `json:"lats_arcmin"`
	Lon int `json:"lons_arcmin"`
}

func (k CellKey) String() string { return fmt.Sprintf("%d,%d", k.Lat, k.Lon) }

// Less orders keys by latitude then longitude.
func (k CellKey) Less(o CellKey) bool {
	if k.Lat != o.Lat {
		return k.Lat < o.Lat
	}
	return k.Lon < o.Lon
}

// PixelType is the categorical label carried by detection and cell records.
type PixelType int

const (
	TypeNonFlare          PixelType = 0
	TypeFlare             PixelType = 1
	TypeCloudFree         PixelType = 2
	TypeInvalidBackground PixelType = 2
)

// Locatable is anything with a grid-cell coordinate that a registry flare can
// be matched against.
type Locatable interface {
	Coordinates() (lat, lon float64)
}

// DetectionRecord is one night-time hotspot pixel.
type DetectionRecord struct {
	Key    CellKey
	Line   int
	Sample int
	// Lat and Lon are rounded to the configured grid resolution.
	Lat             float64
	Lon             float64
	FRP             float64
	SWIRRadiance    float64
	SWIRReflectance float64
	MWIRRadiance    float64
	SolarElev       float64
	ViewElev        float64
	PixelSize       float64
	Background      BackgroundEstimate
	Type            PixelType
}

// BackgroundEstimate is the outcome of the adaptive background search for one
// hotspot cluster. A failed search has Valid false and Radiance -1.
type BackgroundEstimate struct {
	Radiance    float64 `json:"mwir_bg"`
	Valid       bool    `json:"bg_valid"`
	WindowUsed  int     `json:"bg_size_used"`
	CloudFrac   float64 `json:"cloud_bg_pc"`
	HotspotFrac float64 `json:"hotspot_bg_pc"`
	InvalidFrac float64 `json:"inval_pixels_bg_pc"`
}

// BackgroundFailed is the sentinel radiance reported when no window qualifies.
const BackgroundFailed = -1.0

// HotspotCell is the aggregate of every hotspot pixel in one grid cell.
type HotspotCell struct {
	Key                   CellKey   `json:"key"`
	Lat                   float64   `json:"lats"`
	Lon                   float64   `json:"lons"`
	FRP                   float64   `json:"frp"`
	SWIRRadiance          float64   `json:"swir_radiances"`
	SWIRReflectance       float64   `json:"swir_reflectances"`
	MWIRRadiance          float64   `json:"mwir_radiances"`
	MWIRBackground        float64   `json:"mwir_bg"`
	PixelSize             float64   `json:"pixel_size"`
	CloudBackgroundFrac   float64   `json:"cloud_bg_pc"`
	HotspotBackgroundFrac float64   `json:"hotspot_bg_pc"`
	InvalidBackgroundFrac float64   `json:"inval_pixels_bg_pc"`
	BackgroundWindow      float64   `json:"bg_size_used"`
	Type                  PixelType `json:"type"`
	Pixels                int       `json:"pixels"`
	OrbitMeta
	SunEarthDistance float64 `json:"se_dist"`
	FRPCoefficient   float64 `json:"frp_coeff"`
}

func (c HotspotCell) Coordinates() (float64, float64) { return c.Lat, c.Lon }

// SampleCell records that a grid cell was observed at night, either cloud-free
// or burning.
type SampleCell struct {
	Key    CellKey   `json:"key"`
	Lat    float64   `json:"lats"`
	Lon    float64   `json:"lons"`
	Type   PixelType `json:"types"`
	Pixels int       `json:"pixels"`
	OrbitMeta
}

func (c SampleCell) Coordinates() (float64, float64) { return c.Lat, c.Lon }

// Flare is a persistent registry entry.
type Flare struct {
	ID    int64     `json:"flare_id"`
	Lat   float64   `json:"lats"`
	Lon   float64   `json:"lons"`
	Start time.Time `json:"dt_start"`
	Stop  time.Time `json:"dt_stop"`
}

// Active reports whether t lies within the burn interval, inclusive.
func (f Flare) Active(t time.Time) bool {
	return !t.Before(f.Start) && !t.After(f.Stop)
}

func (f Flare) Coordinates() (float64, float64) { return f.Lat, f.Lon }

// Located reports whether both coordinates are finite.
func (f Flare) Located() bool {
	return !math.IsNaN(f.Lat) && !math.IsInf(f.Lat, 0) && !math.IsNaN(f.Lon) && !math.IsInf(f.Lon, 0)
}

// Site is the reverse-geocoded description of a flare location.
type Site struct {
	PlaceName string `json:"place_name,omitempty"`
	Country   string `json:"country,omitempty"`
	Source    string `json:"geo_source,omitempty"`
}

// Match pairs a registry flare with the nearest candidate cell of one orbit.
type Match[C Locatable] struct {
	FlareID   int64   `json:"flare_id"`
	Distance  float64 `json:"distance"`
	Candidate C       `json:"candidate"`
	Site      Site    `json:"site"`
}

// Collocated joins two sensors' matches for the same flare.
type Collocated[C Locatable] struct {
	FlareID   int64    `json:"flare_id"`
	Primary   Match[C] `json:"primary"`
	Companion Match[C] `json:"companion"`
}

// SamplePixel is one night pixel that was either cloud-free or a hotspot.
type SamplePixel struct {
	Key  CellKey
	Lat  float64
	Lon  float64
	Type PixelType
}
