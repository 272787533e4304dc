package domain

import (
	"context"
	"log/slog"
)

// DescribeSite reverse-geocodes a flare location. A nil geocoder yields a zero
// Site; a provider error yields Source "failed" so the match is still kept.
func DescribeSite(ctx context.Context, lat, lon float64, geocoder Geocoder, logger *slog.Logger) Site {
	if geocoder == nil {
		return Site{}
	}
	result, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return Site{Source: GeoSourceFailed}
	}
	if result.PlaceName == "" {
		return Site{Source: GeoSourceNone}
	}
	return Site{PlaceName: result.PlaceName, Country: result.Country, Source: GeoSourceReverse}
}

// EnrichMatches describes the candidate site of every match in place.
func EnrichMatches[C Locatable](ctx context.Context, matches []Match[C], geocoder Geocoder, logger *slog.Logger) {
	if geocoder == nil {
		return
	}
	for i := range matches {
		lat, lon := matches[i].Candidate.Coordinates()
		matches[i].Site = DescribeSite(ctx, lat, lon, geocoder, logger)
	}
}
