package imagestore

import (
	"encoding/json"
	"fmt"
)

const (
	trainingIndexKey   = "store/training/index"
	trainingKeyPrefix  = "store/training/"
	generatedIndexKey  = "store/generated/index"
	generatedKeyPrefix = "store/generated/"
	modelNameKey       = "store/model-name"
)

// trainingKey returns the ledger key for a training image record.
func trainingKey(id string) string {
	return trainingKeyPrefix + id
}

// generatedKey returns the ledger key for a generated photo record.
func generatedKey(id string) string {
	return generatedKeyPrefix + id
}

// GenerationStatus tracks the lifecycle of a generated photo.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s GenerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final status. A record observed in a
// terminal status is never moved back to pending or processing.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MetaValueKind tags the variant held by a MetaValue.
type MetaValueKind int

const (
	MetaString MetaValueKind = iota
	MetaNumber
	MetaBool
)

// MetaValue is a caller-supplied metadata value restricted to scalar types
// so the ledger's serialization format stays well-defined. It marshals as
// the plain scalar.
type MetaValue struct {
	Kind MetaValueKind
	Str  string
	Num  float64
	Bool bool
}

// StringValue wraps a string as a MetaValue.
func StringValue(s string) MetaValue {
	return MetaValue{Kind: MetaString, Str: s}
}

// NumberValue wraps a number as a MetaValue.
func NumberValue(n float64) MetaValue {
	return MetaValue{Kind: MetaNumber, Num: n}
}

// BoolValue wraps a bool as a MetaValue.
func BoolValue(b bool) MetaValue {
	return MetaValue{Kind: MetaBool, Bool: b}
}

// MarshalJSON implements json.Marshaler.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaBool:
		return json.Marshal(v.Bool)
	default:
		return nil, fmt.Errorf("unknown metadata value kind %d", v.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringValue(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberValue(n)
		return nil
	}
	return fmt.Errorf("metadata value must be a string, number or bool: %s", string(data))
}

// StoredImageRecord is the common part of every stored image. A record is
// valid only while LocalPath references an existing file; validity is
// re-checked on every listing, never assumed from the ledger alone.
type StoredImageRecord struct {
	ID               string               `json:"id"`
	LocalPath        string               `json:"localPath"`
	SourceURI        string               `json:"sourceUri,omitempty"`
	IngestedAtMillis int64                `json:"ingestedAtMillis"`
	Metadata         map[string]MetaValue `json:"metadata,omitempty"`
}

// TrainingImageRecord is one slot of the training set.
type TrainingImageRecord struct {
	StoredImageRecord
	// DisplayOrder is the position in the training set. Gaps are permitted
	// after deletions; ordering is by value, not contiguity.
	DisplayOrder int `json:"displayOrder"`
}

// GeneratedPhotoRecord is one AI-generated portrait.
type GeneratedPhotoRecord struct {
	StoredImageRecord
	Style            string           `json:"style"`
	CreatedAtIso     string           `json:"createdAtIso"`
	PackageID        string           `json:"packageId,omitempty"`
	PromptUsed       string           `json:"promptUsed,omitempty"`
	GenerationStatus GenerationStatus `json:"generationStatus"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
}
