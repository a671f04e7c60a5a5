// generated.go - the status-tracked generated photo collection
package imagestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mvirtane/imagevault/internal/contentdir"
	"github.com/mvirtane/imagevault/internal/errors"
	"github.com/mvirtane/imagevault/internal/ledger"
)

// SaveGeneratedPhotoRequest carries the inputs for a new generated photo
// record. SourceURI may be empty for a record created before any bytes
// exist (a pending generation).
type SaveGeneratedPhotoRequest struct {
	SourceURI  string
	Style      string
	PromptUsed string
	PackageID  string
	Metadata   map[string]MetaValue
	Status     GenerationStatus
}

// SaveGeneratedPhoto ingests the image (when a source is given), assigns a
// fresh id, and prepends the record to the collection so most-recent-first
// ordering is maintained on insert.
func (s *Store) SaveGeneratedPhoto(ctx context.Context, req SaveGeneratedPhotoRequest) (*GeneratedPhotoRecord, error) {
	status := req.Status
	if status == "" {
		if req.SourceURI != "" {
			status = StatusCompleted
		} else {
			status = StatusPending
		}
	}
	if !status.Valid() {
		return nil, errors.Newf("invalid generation status %q", status).
			Category(errors.CategoryValidation).
			Build()
	}

	id := s.newID()
	now := s.now()

	record := &GeneratedPhotoRecord{
		StoredImageRecord: StoredImageRecord{
			ID:               id,
			IngestedAtMillis: now.UnixMilli(),
			Metadata:         req.Metadata,
		},
		Style:            req.Style,
		CreatedAtIso:     now.UTC().Format(time.RFC3339Nano),
		PackageID:        req.PackageID,
		PromptUsed:       req.PromptUsed,
		GenerationStatus: status,
	}

	if req.SourceURI != "" {
		path, _, err := s.dir.Ingest(ctx, id, req.SourceURI)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementIngestionErrors()
			}
			return nil, errors.New(fmt.Errorf("ingesting generated photo: %w", err)).
				Category(errors.CategoryImageStore).
				Build()
		}
		record.LocalPath = path
		if !contentdir.IsLocal(req.SourceURI) {
			record.SourceURI = req.SourceURI
		}
	}

	// Record before index, so a crash in between never leaves a dangling
	// index entry.
	if err := ledger.SetJSON(s.store, generatedKey(id), record); err != nil {
		if record.LocalPath != "" {
			_ = s.dir.Delete(record.LocalPath)
		}
		return nil, err
	}

	ids := append([]string{id}, s.loadIndex(generatedIndexKey)...)
	if err := s.saveIndex(generatedIndexKey, ids); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementSaves()
		s.metrics.SetGeneratedPhotos(float64(len(ids)))
	}
	return record, nil
}

// GeneratedPhotos returns the collection sorted by creation time,
// newest first. Records pointing at a missing file are pruned; pending and
// failed records without a file are valid history and kept.
func (s *Store) GeneratedPhotos() ([]GeneratedPhotoRecord, error) {
	ids := s.loadIndex(generatedIndexKey)

	records := make([]GeneratedPhotoRecord, 0, len(ids))
	kept := make([]string, 0, len(ids))
	pruned := false

	for _, id := range ids {
		var record GeneratedPhotoRecord
		found, err := ledger.GetJSON(s.store, generatedKey(id), &record)
		if err != nil {
			s.logger.Warn("Dropping corrupted generated photo record", "id", id, "error", err)
			_ = s.store.Remove(generatedKey(id))
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
		if record.LocalPath != "" && !s.dir.Exists(record.LocalPath) {
			s.logger.Warn("Generated photo file missing, pruning record",
				"id", id,
				"status", record.GenerationStatus)
			_ = s.store.Remove(generatedKey(id))
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
		if err := s.saveIndex(generatedIndexKey, kept); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return createdAt(&records[i]).After(createdAt(&records[j]))
	})

	if s.metrics != nil {
		s.metrics.SetGeneratedPhotos(float64(len(records)))
	}
	return records, nil
}

// createdAt parses the record's creation timestamp. RFC3339Nano omits the
// fractional part for whole seconds, so string comparison would misorder
// records within the same second; comparison has to happen on parsed times.
// A timestamp that fails to parse falls back to the ingestion time.
func createdAt(record *GeneratedPhotoRecord) time.Time {
	t, err := time.Parse(time.RFC3339Nano, record.CreatedAtIso)
	if err != nil {
		return time.UnixMilli(record.IngestedAtMillis)
	}
	return t
}

// UpdateGeneratedPhotoPatch describes a partial update. Zero-value fields
// leave the record untouched. A non-empty SourceURI is ingested and the
// resulting local path attached to the record.
type UpdateGeneratedPhotoPatch struct {
	SourceURI    string
	Style        string
	PromptUsed   string
	PackageID    string
	Status       GenerationStatus
	ErrorMessage string
	Metadata     map[string]MetaValue
}

// UpdateGeneratedPhoto merges the patch into the record with the given id.
// It returns nil (and no error) when the id is unknown; callers must check.
// Status transitions are monotone: a completed or failed record never moves
// back to pending or processing.
func (s *Store) UpdateGeneratedPhoto(ctx context.Context, id string, patch UpdateGeneratedPhotoPatch) (*GeneratedPhotoRecord, error) {
	var record GeneratedPhotoRecord
	found, err := ledger.GetJSON(s.store, generatedKey(id), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if patch.SourceURI != "" {
		path, _, err := s.dir.Ingest(ctx, id, patch.SourceURI)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementIngestionErrors()
			}
			return nil, errors.New(fmt.Errorf("ingesting updated photo bytes: %w", err)).
				Category(errors.CategoryImageStore).
				Build()
		}
		// Drop the previous file once the replacement is safely on disk.
		if record.LocalPath != "" && record.LocalPath != path {
			_ = s.dir.Delete(record.LocalPath)
		}
		record.LocalPath = path
		if !contentdir.IsLocal(patch.SourceURI) {
			record.SourceURI = patch.SourceURI
		}
	}

	if patch.Style != "" {
		record.Style = patch.Style
	}
	if patch.PromptUsed != "" {
		record.PromptUsed = patch.PromptUsed
	}
	if patch.PackageID != "" {
		record.PackageID = patch.PackageID
	}
	if patch.ErrorMessage != "" {
		record.ErrorMessage = patch.ErrorMessage
	}
	for k, v := range patch.Metadata {
		if record.Metadata == nil {
			record.Metadata = make(map[string]MetaValue)
		}
		record.Metadata[k] = v
	}

	if patch.Status != "" {
		if !patch.Status.Valid() {
			return nil, errors.Newf("invalid generation status %q", patch.Status).
				Category(errors.CategoryValidation).
				Build()
		}
		if record.GenerationStatus.Terminal() && !patch.Status.Terminal() {
			s.logger.Warn("Refusing status regression on generated photo",
				"id", id,
				"current", record.GenerationStatus,
				"requested", patch.Status)
		} else {
			record.GenerationStatus = patch.Status
		}
	}

	if err := ledger.SetJSON(s.store, generatedKey(id), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteGeneratedPhoto removes one record and its file. Deleting an unknown
// id is a no-op.
func (s *Store) DeleteGeneratedPhoto(id string) error {
	var record GeneratedPhotoRecord
	found, err := ledger.GetJSON(s.store, generatedKey(id), &record)
	if err != nil {
		s.logger.Warn("Deleting corrupted generated photo record", "id", id, "error", err)
	} else if !found {
		return nil
	}

	if err := s.store.Remove(generatedKey(id)); err != nil {
		return err
	}
	if record.LocalPath != "" {
		if err := s.dir.Delete(record.LocalPath); err != nil {
			return err
		}
	}

	ids := s.loadIndex(generatedIndexKey)
	kept := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if err := s.saveIndex(generatedIndexKey, kept); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementDeletes()
		s.metrics.SetGeneratedPhotos(float64(len(kept)))
	}
	return nil
}

// ClearGeneratedPhotos removes all generated photo records and files.
func (s *Store) ClearGeneratedPhotos() error {
	ids := s.loadIndex(generatedIndexKey)

	for _, id := range ids {
		var record GeneratedPhotoRecord
		found, err := ledger.GetJSON(s.store, generatedKey(id), &record)
		if err == nil && found && record.LocalPath != "" {
			if err := s.dir.Delete(record.LocalPath); err != nil {
				return err
			}
		}
		if err := s.store.Remove(generatedKey(id)); err != nil {
			return err
		}
	}

	if err := s.store.Remove(generatedIndexKey); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SetGeneratedPhotos(0)
	}
	return nil
}
