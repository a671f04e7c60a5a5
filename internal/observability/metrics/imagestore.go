package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ImageStoreMetrics contains all Prometheus metrics related to the
// persistent image store.
type ImageStoreMetrics struct {
	Saves               prometheus.Counter
	Deletes             prometheus.Counter
	IngestionErrors     prometheus.Counter
	ReconciliationDrops prometheus.Counter
	CorruptedEntryDrops prometheus.Counter
	TrainingImages      prometheus.Gauge
	GeneratedPhotos     prometheus.Gauge
	registry            *prometheus.Registry
}

// NewImageStoreMetrics creates a new instance of ImageStoreMetrics registered
// on the given Prometheus registry.
func NewImageStoreMetrics(registry *prometheus.Registry) (*ImageStoreMetrics, error) {
	m := &ImageStoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageStore metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ImageStoreMetrics.
func (m *ImageStoreMetrics) initMetrics() {
	m.Saves = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_store_saves_total",
		Help: "Total number of records ingested into the store.",
	})

	m.Deletes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_store_deletes_total",
		Help: "Total number of records deleted from the store.",
	})

	m.IngestionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_store_ingestion_errors_total",
		Help: "Total number of failed ingestions.",
	})

	m.ReconciliationDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_store_reconciliation_drops_total",
		Help: "Total number of records pruned because their file was missing.",
	})

	m.CorruptedEntryDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_store_corrupted_entry_drops_total",
		Help: "Total number of ledger entries dropped because they failed to parse.",
	})

	m.TrainingImages = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_store_training_images",
		Help: "Current number of training image records.",
	})

	m.GeneratedPhotos = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "image_store_generated_photos",
		Help: "Current number of generated photo records.",
	})
}

// IncrementSaves increases the save counter by one.
func (m *ImageStoreMetrics) IncrementSaves() {
	m.Saves.Inc()
}

// IncrementDeletes increases the delete counter by one.
func (m *ImageStoreMetrics) IncrementDeletes() {
	m.Deletes.Inc()
}

// IncrementIngestionErrors increases the ingestion error counter by one.
func (m *ImageStoreMetrics) IncrementIngestionErrors() {
	m.IngestionErrors.Inc()
}

// IncrementReconciliationDrops increases the reconciliation drop counter by one.
func (m *ImageStoreMetrics) IncrementReconciliationDrops() {
	m.ReconciliationDrops.Inc()
}

// IncrementCorruptedEntryDrops increases the corrupted entry counter by one.
func (m *ImageStoreMetrics) IncrementCorruptedEntryDrops() {
	m.CorruptedEntryDrops.Inc()
}

// SetTrainingImages updates the training image record gauge.
func (m *ImageStoreMetrics) SetTrainingImages(count float64) {
	m.TrainingImages.Set(count)
}

// SetGeneratedPhotos updates the generated photo record gauge.
func (m *ImageStoreMetrics) SetGeneratedPhotos(count float64) {
	m.GeneratedPhotos.Set(count)
}

// Collect implements the prometheus.Collector interface.
func (m *ImageStoreMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.Saves
	ch <- m.Deletes
	ch <- m.IngestionErrors
	ch <- m.ReconciliationDrops
	ch <- m.CorruptedEntryDrops
	ch <- m.TrainingImages
	ch <- m.GeneratedPhotos
}

// Describe implements the prometheus.Collector interface.
func (m *ImageStoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.Saves.Desc()
	ch <- m.Deletes.Desc()
	ch <- m.IngestionErrors.Desc()
	ch <- m.ReconciliationDrops.Desc()
	ch <- m.CorruptedEntryDrops.Desc()
	ch <- m.TrainingImages.Desc()
	ch <- m.GeneratedPhotos.Desc()
}
