package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat       float64
	Lon       float64
	PlaceName string
	Country   string
}

// Geocoder describes flare sites by coordinate.
type Geocoder interface {
	// ReverseGeocode converts coordinates to place details. A zero result
	// with a nil error means the provider knows nothing about the location.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// Geo source values recorded on enriched matches.
const (
	GeoSourceReverse = "reverse"
	GeoSourceNone    = "none"
	GeoSourceFailed  = "failed"
)
