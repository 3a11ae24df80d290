// Package metrics exports cache statistics in the Prometheus format.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsvensson/embedls/internal/cache"
)

const namespace = "embedls"

// Collector reads the counters of a changing set of caches at scrape time.
type Collector struct {
	mu      sync.RWMutex
	sources []cache.Observable

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	failures    *prometheus.Desc
	entries     *prometheus.Desc
}

func NewCollector() *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, []string{"cache"}, nil)
	}
	return &Collector{
		hits:        desc("hits_total", "Lookups answered from a stored entry."),
		misses:      desc("misses_total", "Lookups that had to run the producer."),
		evictions:   desc("evictions_total", "Entries dropped to stay within the entry bound."),
		expirations: desc("expirations_total", "Entries dropped by the idle sweep."),
		failures:    desc("failures_total", "Producer errors."),
		entries:     desc("entries", "Entries currently stored."),
	}
}

// Set replaces the observed caches.
func (c *Collector) Set(sources ...cache.Observable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = sources
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.expirations
	ch <- c.failures
	ch <- c.entries
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := c.sources
	c.mu.RUnlock()

	for _, s := range sources {
		st := s.Stats()
		name := s.Name()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(st.Evictions), name)
		ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(st.Expirations), name)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures), name)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries), name)
	}
}

// Handler returns an HTTP handler serving the collector and the Go runtime
// metrics from a private registry.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
