package cache

import (
	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"github.com/prometheus/client_golang/prometheus"
)

// PointConverter converts a single grid coordinate.
type PointConverter interface {
	Convert(p osgb.Planar) (osgb.Geographic, error)
}

// Converter memoizes successful conversions keyed by the exact input
// coordinate. Failures are never cached.
type Converter struct {
	inner  PointConverter
	cache  *LRU[osgb.Planar, osgb.Geographic]
	lookup *prometheus.CounterVec // labels: result={hit,miss}; may be nil
}

// NewConverter wraps inner with an LRU of maxEntries. lookups, if non-nil,
// counts hits and misses under the "result" label.
func NewConverter(inner PointConverter, maxEntries int, lookups *prometheus.CounterVec) *Converter {
	return &Converter{
		inner:  inner,
		cache:  NewLRU[osgb.Planar, osgb.Geographic](maxEntries),
		lookup: lookups,
	}
}

func (c *Converter) Convert(p osgb.Planar) (osgb.Geographic, error) {
	if g, ok := c.cache.Get(p); ok {
		c.observe("hit")
		return g, nil
	}
	c.observe("miss")

	g, err := c.inner.Convert(p)
	if err != nil {
		return g, err
	}
	c.cache.Put(p, g)
	return g, nil
}

func (c *Converter) observe(result string) {
	if c.lookup != nil {
		c.lookup.WithLabelValues(result).Inc()
	}
}
