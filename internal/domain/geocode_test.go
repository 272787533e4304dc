package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDescribeSite(t *testing.T) {
	t.Run("nil geocoder", func(t *testing.T) {
		assert.Equal(t, Site{}, DescribeSite(context.Background(), 1, 2, nil, discardLogger()))
	})

	t.Run("success", func(t *testing.T) {
		g := &mockGeocoder{result: GeocodingResult{PlaceName: "Hassi Messaoud, Algeria", Country: "Algeria"}}
		got := DescribeSite(context.Background(), 31.7, 6.1, g, discardLogger())
		assert.Equal(t, Site{PlaceName: "Hassi Messaoud, Algeria", Country: "Algeria", Source: GeoSourceReverse}, got)
	})

	t.Run("empty result", func(t *testing.T) {
		got := DescribeSite(context.Background(), 0, -30, &mockGeocoder{}, discardLogger())
		assert.Equal(t, GeoSourceNone, got.Source)
	})

	t.Run("failure degrades", func(t *testing.T) {
		got := DescribeSite(context.Background(), 1, 2, &mockGeocoder{err: errors.New("timeout")}, discardLogger())
		assert.Equal(t, Site{Source: GeoSourceFailed}, got)
	})
}

func TestEnrichMatches(t *testing.T) {
	matches := []Match[SampleCell]{
		{FlareID: 1, Candidate: SampleCell{Lat: 1, Lon: 1}},
		{FlareID: 2, Candidate: SampleCell{Lat: 2, Lon: 2}},
	}
	g := &mockGeocoder{result: GeocodingResult{PlaceName: "Somewhere"}}
	EnrichMatches(context.Background(), matches, g, discardLogger())

	assert.Equal(t, 2, g.calls)
	assert.Equal(t, "Somewhere", matches[0].Site.PlaceName)
	assert.Equal(t, GeoSourceReverse, matches[1].Site.Source)

	EnrichMatches[SampleCell](context.Background(), nil, nil, discardLogger())
}
