// training.go - the ordered, bounded training image set
package imagestore

import (
	"context"
	"fmt"
	"sort"

	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/errors"
	"github.com/mvirtane/imagevault/internal/ledger"
)

// SaveTrainingImages replaces the entire active training set: existing
// records and their files are cleared first, then each input URI is
// ingested in order with DisplayOrder assigned from its index. Callers that
// want an incremental add must pass current plus new URIs. More URIs than
// the configured maximum is a validation error before any mutation.
func (s *Store) SaveTrainingImages(ctx context.Context, uris []string) ([]TrainingImageRecord, error) {
	if len(uris) > s.maxTrainingImages {
		return nil, errors.Newf("training set accepts at most %d images, got %d", s.maxTrainingImages, len(uris)).
			Category(errors.CategoryValidation).
			Build()
	}

	if err := s.ClearTrainingImages(); err != nil {
		return nil, err
	}

	records := make([]TrainingImageRecord, 0, len(uris))
	ids := make([]string, 0, len(uris))

	for order, uri := range uris {
		record, err := s.ingestTrainingImage(ctx, uri, order)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementIngestionErrors()
			}
			return records, err
		}

		// Record first, index second, for every element: a crash between
		// the two leaves an unindexed record that the final sweep of
		// ClearAllData picks up, never a dangling index entry.
		if err := ledger.SetJSON(s.store, trainingKey(record.ID), record); err != nil {
			return records, err
		}
		ids = append(ids, record.ID)
		if err := s.saveIndex(trainingIndexKey, ids); err != nil {
			return records, err
		}

		records = append(records, *record)
		if s.metrics != nil {
			s.metrics.IncrementSaves()
		}
	}

	if s.metrics != nil {
		s.metrics.SetTrainingImages(float64(len(records)))
	}
	return records, nil
}

// ingestTrainingImage resolves one source URI into a content file and a record.
func (s *Store) ingestTrainingImage(ctx context.Context, uri string, order int) (*TrainingImageRecord, error) {
	id := s.newID()
	path, _, err := s.dir.Ingest(ctx, id, uri)
	if err != nil {
		return nil, errors.New(fmt.Errorf("ingesting training image %d: %w", order, err)).
			Category(errors.CategoryImageStore).
			Build()
	}

	record := &TrainingImageRecord{
		StoredImageRecord: StoredImageRecord{
			ID:               id,
			LocalPath:        path,
			IngestedAtMillis: s.now().UnixMilli(),
		},
		DisplayOrder: order,
	}
	// The source is recorded only when ingestion actually moved bytes from
	// somewhere else; an already-local source has no meaningful origin.
	if !contentdir.IsLocal(uri) {
		record.SourceURI = uri
	}
	return record, nil
}

// TrainingImages returns the active training set sorted by display order.
// Records whose file no longer exists are pruned, and the pruned list is
// persisted back if anything was dropped.
func (s *Store) TrainingImages() ([]TrainingImageRecord, error) {
	ids := s.loadIndex(trainingIndexKey)

	records := make([]TrainingImageRecord, 0, len(ids))
	kept := make([]string, 0, len(ids))
	pruned := false

	for _, id := range ids {
		var record TrainingImageRecord
		found, err := ledger.GetJSON(s.store, trainingKey(id), &record)
		if err != nil {
			s.logger.Warn("Dropping corrupted training record", "id", id, "error", err)
			_ = s.store.Remove(trainingKey(id))
			if s.metrics != nil {
				s.metrics.IncrementCorruptedEntryDrops()
			}
			pruned = true
			continue
		}
		if !found {
			pruned = true
			continue
		}
		if !s.dir.Exists(record.LocalPath) {
			s.logger.Warn("Training image file missing, pruning record",
				"id", id,
				"display_order", record.DisplayOrder)
			_ = s.store.Remove(trainingKey(id))
			if s.metrics != nil {
				s.metrics.IncrementReconciliationDrops()
			}
			pruned = true
			continue
		}
		records = append(records, record)
		kept = append(kept, id)
	}

	if pruned {
		if err := s.saveIndex(trainingIndexKey, kept); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DisplayOrder < records[j].DisplayOrder
	})

	if s.metrics != nil {
		s.metrics.SetTrainingImages(float64(len(records)))
	}
	return records, nil
}

// DeleteTrainingImage removes one record and its file. Remaining display
// order values keep their gaps. Deleting an unknown id is a no-op.
func (s *Store) DeleteTrainingImage(id string) error {
	var record TrainingImageRecord
	found, err := ledger.GetJSON(s.store, trainingKey(id), &record)
	if err != nil {
		// A corrupted record still gets its key and index slot removed.
		s.logger.Warn("Deleting corrupted training record", "id", id, "error", err)
	} else if !found {
		return nil
	}

	if err := s.store.Remove(trainingKey(id)); err != nil {
		return err
	}
	if record.LocalPath != "" {
		if err := s.dir.Delete(record.LocalPath); err != nil {
			return err
		}
	}

	ids := s.loadIndex(trainingIndexKey)
	kept := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if err := s.saveIndex(trainingIndexKey, kept); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementDeletes()
		s.metrics.SetTrainingImages(float64(len(kept)))
	}
	return nil
}

// ClearTrainingImages removes all training records and their files.
func (s *Store) ClearTrainingImages() error {
	ids := s.loadIndex(trainingIndexKey)

	for _, id := range ids {
		var record TrainingImageRecord
		found, err := ledger.GetJSON(s.store, trainingKey(id), &record)
		if err == nil && found && record.LocalPath != "" {
			if err := s.dir.Delete(record.LocalPath); err != nil {
				return err
			}
		}
		if err := s.store.Remove(trainingKey(id)); err != nil {
			return err
		}
	}

	if err := s.store.Remove(trainingIndexKey); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SetTrainingImages(0)
	}
	return nil
}
