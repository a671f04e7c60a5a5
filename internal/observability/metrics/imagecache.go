// Package metrics provides custom Prometheus metrics for the cache and
// store components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageCacheMetrics contains all Prometheus metrics related to the remote
// image cache.
type ImageCacheMetrics struct {
	CacheSize        prometheus.Gauge
	CacheEntries     prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ImageDownloads   prometheus.Counter
	DownloadErrors   prometheus.Counter
	Evictions        prometheus.Counter
	Expirations      prometheus.Counter
	DownloadDuration prometheus.Histogram
	registry         *prometheus.Registry
}

// NewImageCacheMetrics creates a new instance of ImageCacheMetrics registered
// on the given Prometheus registry.
func NewImageCacheMetrics(registry *prometheus.Registry) (*ImageCacheMetrics, error) {
	m := &ImageCacheMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageCache metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ImageCacheMetrics.
func (m *ImageCacheMetrics) initMetrics() {
	m.CacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_cache_size_bytes",
		Help: "Current total size of cached image files in bytes.",
	})

	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_cache_entries",
		Help: "Current number of live cache entries.",
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_hits_total",
		Help: "Total number of cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_misses_total",
		Help: "Total number of cache misses.",
	})

	m.ImageDownloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_downloads_total",
		Help: "Total number of image downloads.",
	})

	m.DownloadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_download_errors_total",
		Help: "Total number of image download errors.",
	})

	m.Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_evictions_total",
		Help: "Total number of entries removed by size-based cleanup.",
	})

	m.Expirations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_cache_expirations_total",
		Help: "Total number of entries purged after exceeding their maximum age.",
	})

	m.DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_cache_download_duration_seconds",
		Help:    "Duration of image downloads in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
}

// SetCacheSize updates the current total size of the cache in bytes.
func (m *ImageCacheMetrics) SetCacheSize(sizeBytes float64) {
	m.CacheSize.Set(sizeBytes)
}

// SetCacheEntries updates the current number of live cache entries.
func (m *ImageCacheMetrics) SetCacheEntries(count float64) {
	m.CacheEntries.Set(count)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ImageCacheMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ImageCacheMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementImageDownloads increases the image download counter by one.
func (m *ImageCacheMetrics) IncrementImageDownloads() {
	m.ImageDownloads.Inc()
}

// IncrementDownloadErrors increases the download error counter by one.
func (m *ImageCacheMetrics) IncrementDownloadErrors() {
	m.DownloadErrors.Inc()
}

// IncrementEvictions increases the eviction counter by one.
func (m *ImageCacheMetrics) IncrementEvictions() {
	m.Evictions.Inc()
}

// IncrementExpirations increases the expiration counter by one.
func (m *ImageCacheMetrics) IncrementExpirations() {
	m.Expirations.Inc()
}

// ObserveDownloadDuration records the duration of an image download operation.
// The duration should be provided in seconds.
func (m *ImageCacheMetrics) ObserveDownloadDuration(durationSeconds float64) {
	m.DownloadDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *ImageCacheMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.CacheSize
	ch <- m.CacheEntries
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.ImageDownloads
	ch <- m.DownloadErrors
	ch <- m.Evictions
	ch <- m.Expirations
	ch <- m.DownloadDuration
}

// Describe implements the prometheus.Collector interface.
func (m *ImageCacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.CacheSize.Desc()
	ch <- m.CacheEntries.Desc()
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.ImageDownloads.Desc()
	ch <- m.DownloadErrors.Desc()
	ch <- m.Evictions.Desc()
	ch <- m.Expirations.Desc()
	ch <- m.DownloadDuration.Desc()
}
