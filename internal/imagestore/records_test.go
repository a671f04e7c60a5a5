package imagestore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvirtane/imagevault/internal/imagestore"
)

func TestMetaValueMarshalsAsPlainScalars(t *testing.T) {
	metadata := map[string]imagestore.MetaValue{
		"prompt":   imagestore.StringValue("noir portrait"),
		"seed":     imagestore.NumberValue(1234),
		"upscaled": imagestore.BoolValue(true),
	}

	raw, err := json.Marshal(metadata)
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"noir portrait","seed":1234,"upscaled":true}`, string(raw))

	var parsed map[string]imagestore.MetaValue
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, metadata, parsed)
}

func TestMetaValueRejectsStructuredValues(t *testing.T) {
	var parsed map[string]imagestore.MetaValue
	err := json.Unmarshal([]byte(`{"nested":{"a":1}}`), &parsed)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"list":[1,2]}`), &parsed)
	assert.Error(t, err)
}

func TestGenerationStatus(t *testing.T) {
	assert.True(t, imagestore.StatusPending.Valid())
	assert.True(t, imagestore.StatusProcessing.Valid())
	assert.True(t, imagestore.StatusCompleted.Valid())
	assert.True(t, imagestore.StatusFailed.Valid())
	assert.False(t, imagestore.GenerationStatus("done").Valid())

	assert.False(t, imagestore.StatusPending.Terminal())
	assert.False(t, imagestore.StatusProcessing.Terminal())
	assert.True(t, imagestore.StatusCompleted.Terminal())
	assert.True(t, imagestore.StatusFailed.Terminal())
}
