package mapbox

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/geo"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an LRU cache keyed on the arc-minute
// cell of the query. Flare sites recur every orbit, so after the first batch
// nearly every lookup is a hit. Concurrent misses for one cell share a
// single upstream call.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *siteCache
	flight  singleflight.Group
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newSiteCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := domain.CellKey{Lat: geo.ArcMinute(lat), Lon: geo.ArcMinute(lon)}
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		result, err := c.inner.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			return result, err
		}
		// Empty results are not cached so a later orbit can retry the site.
		if result.PlaceName != "" {
			c.cache.put(key, result)
		}
		return result, nil
	})
	return v.(domain.GeocodingResult), err
}

// siteCache is a mutex-guarded LRU of geocoding results.
type siteCache struct {
	limit int
	mu    sync.Mutex
	order *list.List // front is most recent
	items map[domain.CellKey]*list.Element
}

type siteEntry struct {
	key   domain.CellKey
	value domain.GeocodingResult
}

func newSiteCache(capacity int) *siteCache {
	return &siteCache{
		limit: capacity,
		order: list.New(),
		items: make(map[domain.CellKey]*list.Element),
	}
}

func (c *siteCache) get(key domain.CellKey) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*siteEntry).value, true
}

func (c *siteCache) put(key domain.CellKey, value domain.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*siteEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&siteEntry{key: key, value: value})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*siteEntry).key)
	}
}

func (c *siteCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
