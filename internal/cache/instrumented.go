package cache

import "context"

// instrumentedCache counts hits and misses for a group and exposes the entry count
// as a gauge read at scrape time.
type instrumentedCache struct {
	Cache
	group string
}

func newInstrumentedCache(inner Cache, group string) *instrumentedCache {
	registerEntriesGauge(group, inner.Len)
	return &instrumentedCache{Cache: inner, group: group}
}

func (c *instrumentedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := c.Cache.Get(ctx, key)
	if ok {
		HitsTotal.WithLabelValues(c.group).Inc()
	} else {
		MissesTotal.WithLabelValues(c.group).Inc()
	}
	return value, ok
}

// Close drops the entries gauge and closes the backend.
func (c *instrumentedCache) Close() error {
	unregisterEntriesGauge(c.group)
	return c.Cache.Close()
}
