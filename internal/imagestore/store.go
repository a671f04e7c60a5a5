// Package imagestore persists user-owned images — training photos and
// generated portraits — to local durable storage with structured metadata,
// lifecycle status, and reconciliation against the actual filesystem.
package imagestore

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/ledger"
	"github.com/mvirtane/imagevault/internal/logging"
	"github.com/mvirtane/imagevault/internal/observability/metrics"
)

// DefaultMaxTrainingImages bounds the training set.
const DefaultMaxTrainingImages = 3

// Config holds the tunables of the store.
type Config struct {
	MaxTrainingImages int
	Debug             bool
}

// Store owns the training and generated collections and the content files
// they reference. Deleting a record through the store is the only sanctioned
// path to deleting its file.
type Store struct {
	store   ledger.Interface
	dir     *contentdir.Directory
	metrics *metrics.ImageStoreMetrics
	logger  *slog.Logger
	debug   bool

	maxTrainingImages int

	now   func() time.Time
	newID func() string
}

// New creates a store over the given ledger and content directory.
func New(store ledger.Interface, dir *contentdir.Directory, m *metrics.ImageStoreMetrics, cfg Config) *Store {
	if cfg.MaxTrainingImages <= 0 {
		cfg.MaxTrainingImages = DefaultMaxTrainingImages
	}
	return &Store{
		store:             store,
		dir:               dir,
		metrics:           m,
		logger:            logging.ForService("imagestore"),
		debug:             cfg.Debug,
		maxTrainingImages: cfg.MaxTrainingImages,
		now:               time.Now,
		newID:             func() string { return uuid.NewString() },
	}
}

// SetClock overrides the time source, used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// SetIDSource overrides record id generation, used by tests.
func (s *Store) SetIDSource(newID func() string) {
	s.newID = newID
}

// loadIndex reads an ordered id list from the ledger. A corrupted index is
// treated as empty; the records themselves are still in the ledger and a
// rebuilt index replaces the bad one on the next write.
func (s *Store) loadIndex(key string) []string {
	var ids []string
	found, err := ledger.GetJSON(s.store, key, &ids)
	if err != nil {
		s.logger.Warn("Index failed to parse, treating as empty", "key", key, "error", err)
		if s.metrics != nil {
			s.metrics.IncrementCorruptedEntryDrops()
		}
		return nil
	}
	if !found {
		return nil
	}
	return ids
}

// saveIndex persists an ordered id list.
func (s *Store) saveIndex(key string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return ledger.SetJSON(s.store, key, ids)
}

// SetAIModelName stores the display name of the trained model.
func (s *Store) SetAIModelName(name string) error {
	return ledger.SetJSON(s.store, modelNameKey, name)
}

// AIModelName returns the stored model display name, or "" when unset.
func (s *Store) AIModelName() (string, error) {
	var name string
	found, err := ledger.GetJSON(s.store, modelNameKey, &name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return name, nil
}

// ClearAIModel removes training images, generated photos, and the model
// name: a complete account reset.
func (s *Store) ClearAIModel() error {
	if err := s.ClearTrainingImages(); err != nil {
		return err
	}
	if err := s.ClearGeneratedPhotos(); err != nil {
		return err
	}
	return s.store.Remove(modelNameKey)
}

// ClearAllData performs ClearAIModel and then removes the entire content
// root as a final sweep, catching any unindexed orphan files left by
// interrupted prior operations.
func (s *Store) ClearAllData() error {
	if err := s.ClearAIModel(); err != nil {
		return err
	}
	return s.dir.RemoveAll()
}

// StorageStats is a diagnostic view of the store's disk footprint.
type StorageStats struct {
	TrainingImagesCount  int
	GeneratedPhotosCount int
	TotalStorageSize     int64
}

// GetStorageStats sums actual on-disk sizes for all currently valid
// records. It reads sizes from disk rather than a running counter so the
// result reflects the true footprint even after partial failures elsewhere.
func (s *Store) GetStorageStats() (StorageStats, error) {
	training, err := s.TrainingImages()
	if err != nil {
		return StorageStats{}, err
	}
	generated, err := s.GeneratedPhotos()
	if err != nil {
		return StorageStats{}, err
	}

	var total int64
	for i := range training {
		total += s.dir.FileSize(training[i].LocalPath)
	}
	for i := range generated {
		if generated[i].LocalPath != "" {
			total += s.dir.FileSize(generated[i].LocalPath)
		}
	}

	return StorageStats{
		TrainingImagesCount:  len(training),
		GeneratedPhotosCount: len(generated),
		TotalStorageSize:     total,
	}, nil
}
