package ledger

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mvirtane/imagevault/internal/errors"
)

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// Get retrieves the value stored at key. A missing key returns (nil, nil).
func (ds *DataStore) Get(key string) ([]byte, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	var entry Entry
	if err := ds.DB.First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.New(fmt.Errorf("getting key %q: %w", key, err)).
			Category(errors.CategoryLedger).
			Build()
	}
	return []byte(entry.Value), nil
}

// Set stores value at key, overwriting any previous value. The write is an
// upsert so readers never observe a half-written record.
func (ds *DataStore) Set(key string, value []byte) error {
	if ds.DB == nil {
		return errNotOpen()
	}

	entry := Entry{Key: key, Value: string(value)}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return errors.New(fmt.Errorf("setting key %q: %w", key, err)).
			Category(errors.CategoryLedger).
			Build()
	}
	return nil
}

// Remove deletes the value stored at key. Removing a missing key is not an error.
func (ds *DataStore) Remove(key string) error {
	if ds.DB == nil {
		return errNotOpen()
	}

	if err := ds.DB.Delete(&Entry{}, "key = ?", key).Error; err != nil {
		return errors.New(fmt.Errorf("removing key %q: %w", key, err)).
			Category(errors.CategoryLedger).
			Build()
	}
	return nil
}

// List returns all entries whose key starts with prefix, ordered by key.
func (ds *DataStore) List(prefix string) ([]Entry, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	var entries []Entry
	query := ds.DB.Order("key")
	if prefix != "" {
		query = query.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.New(fmt.Errorf("listing keys with prefix %q: %w", prefix, err)).
			Category(errors.CategoryLedger).
			Build()
	}
	return entries, nil
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func errNotOpen() error {
	return errors.New(errors.NewStd("ledger is not open")).
		Category(errors.CategoryLedger).
		Build()
}
