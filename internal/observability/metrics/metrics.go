package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the per-component metric sets on a shared registry.
type Metrics struct {
	ImageCache *ImageCacheMetrics
	ImageStore *ImageStoreMetrics

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics bundle on a fresh registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	cacheMetrics, err := NewImageCacheMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating image cache metrics: %w", err)
	}

	storeMetrics, err := NewImageStoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating image store metrics: %w", err)
	}

	return &Metrics{
		ImageCache: cacheMetrics,
		ImageStore: storeMetrics,
		registry:   registry,
	}, nil
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
