package imagestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvirtane/imagevault/internal/imagestore"
)

func TestSaveGeneratedPhotoDefaults(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	withSource, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{
		SourceURI: imageURI(50),
		Style:     "noir",
	})
	require.NoError(t, err)
	assert.Equal(t, imagestore.StatusCompleted, withSource.GenerationStatus)
	assert.FileExists(t, withSource.LocalPath)

	pending, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{
		Style:      "noir",
		PromptUsed: "moody alley portrait",
	})
	require.NoError(t, err)
	assert.Equal(t, imagestore.StatusPending, pending.GenerationStatus)
	assert.Empty(t, pending.LocalPath)
}

func TestSaveGeneratedPhotoRejectsUnknownStatus(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})

	_, err := f.store.SaveGeneratedPhoto(context.Background(), imagestore.SaveGeneratedPhotoRequest{
		Style:  "noir",
		Status: imagestore.GenerationStatus("exploded"),
	})
	assert.Error(t, err)
}

func TestGeneratedPhotosNewestFirst(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	first, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	f.advance(time.Second)
	second, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(20), Style: "pastel"})
	require.NoError(t, err)
	f.advance(time.Second)
	third, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(30), Style: "vintage"})
	require.NoError(t, err)

	listed, err := f.store.GeneratedPhotos()
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, third.ID, listed[0].ID)
	assert.Equal(t, second.ID, listed[1].ID)
	assert.Equal(t, first.ID, listed[2].ID)
}

func TestGeneratedPhotosOrderAcrossSecondBoundary(t *testing.T) {
	// The first record lands exactly on a whole second, so its timestamp
	// serializes without a fractional part. Ordering must still be by
	// time, not by the serialized string.
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	onSecond, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	f.advance(500 * time.Millisecond)
	halfSecondLater, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(20), Style: "noir"})
	require.NoError(t, err)

	listed, err := f.store.GeneratedPhotos()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, halfSecondLater.ID, listed[0].ID)
	assert.Equal(t, onSecond.ID, listed[1].ID)
}

func TestGeneratedPhotosPrunesMissingFilesButKeepsPending(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	completed, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	f.advance(time.Second)
	pending, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{Style: "noir"})
	require.NoError(t, err)
	f.advance(time.Second)
	failed, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{Style: "noir", Status: imagestore.StatusFailed})
	require.NoError(t, err)

	require.NoError(t, os.Remove(completed.LocalPath))

	listed, err := f.store.GeneratedPhotos()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, failed.ID, listed[0].ID)
	assert.Equal(t, pending.ID, listed[1].ID)
}

func TestUpdateGeneratedPhotoLifecycle(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	record, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{Style: "noir"})
	require.NoError(t, err)
	require.Equal(t, imagestore.StatusPending, record.GenerationStatus)

	updated, err := f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		Status: imagestore.StatusProcessing,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, imagestore.StatusProcessing, updated.GenerationStatus)

	updated, err = f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		SourceURI: imageURI(40),
		Status:    imagestore.StatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, imagestore.StatusCompleted, updated.GenerationStatus)
	assert.FileExists(t, updated.LocalPath)
}

func TestUpdateGeneratedPhotoRefusesStatusRegression(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	record, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	require.Equal(t, imagestore.StatusCompleted, record.GenerationStatus)

	updated, err := f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		Status: imagestore.StatusPending,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, imagestore.StatusCompleted, updated.GenerationStatus)

	// Terminal to terminal is allowed.
	updated, err = f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		Status:       imagestore.StatusFailed,
		ErrorMessage: "post-processing rejected the output",
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, imagestore.StatusFailed, updated.GenerationStatus)
	assert.Equal(t, "post-processing rejected the output", updated.ErrorMessage)
}

func TestUpdateGeneratedPhotoUnknownID(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})

	updated, err := f.store.UpdateGeneratedPhoto(context.Background(), "no-such-id", imagestore.UpdateGeneratedPhotoPatch{
		Status: imagestore.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateGeneratedPhotoReplacesFile(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	record, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	oldPath := record.LocalPath

	f.advance(time.Second)
	updated, err := f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		SourceURI: imageURI(20),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.NotEqual(t, oldPath, updated.LocalPath)
	assert.FileExists(t, updated.LocalPath)
	assert.NoFileExists(t, oldPath)
}

func TestUpdateGeneratedPhotoMergesMetadata(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	record, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{
		SourceURI: imageURI(10),
		Style:     "noir",
		Metadata: map[string]imagestore.MetaValue{
			"seed": imagestore.NumberValue(42),
		},
	})
	require.NoError(t, err)

	updated, err := f.store.UpdateGeneratedPhoto(ctx, record.ID, imagestore.UpdateGeneratedPhotoPatch{
		Metadata: map[string]imagestore.MetaValue{
			"upscaled": imagestore.BoolValue(true),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, imagestore.NumberValue(42), updated.Metadata["seed"])
	assert.Equal(t, imagestore.BoolValue(true), updated.Metadata["upscaled"])
}

func TestDeleteGeneratedPhoto(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	record, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteGeneratedPhoto(record.ID))
	assert.NoFileExists(t, record.LocalPath)

	listed, err := f.store.GeneratedPhotos()
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, f.store.DeleteGeneratedPhoto(record.ID))
}

func TestClearGeneratedPhotos(t *testing.T) {
	f := newStoreFixture(t, imagestore.Config{})
	ctx := context.Background()

	_, err := f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{SourceURI: imageURI(10), Style: "noir"})
	require.NoError(t, err)
	_, err = f.store.SaveGeneratedPhoto(ctx, imagestore.SaveGeneratedPhotoRequest{Style: "noir"})
	require.NoError(t, err)

	require.NoError(t, f.store.ClearGeneratedPhotos())

	listed, err := f.store.GeneratedPhotos()
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Equal(t, 0, contentFileCount(t, f.dir))
}
