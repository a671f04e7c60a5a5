// interfaces.go: this code defines the interface for the metadata ledger operations
package ledger

import (
	"encoding/json"

	"github.com/mvirtane/imagevault/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// durable key to JSON record mapping shared by the cache and the store.
//
// Get returns (nil, nil) for a missing key; absence is not an error. Set
// overwrites atomically from the caller's point of view. Remove is
// idempotent. List returns entries whose key starts with the given prefix,
// ordered by key for determinism; components that need a different order
// sort the result themselves.
type Interface interface {
	Open() error
	Close() error
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	List(prefix string) ([]Entry, error)
}

// GetJSON reads the value at key and unmarshals it into dest. It reports
// whether the key was present. A stored value that fails to parse is
// surfaced as a ledger error so callers can treat it as a corrupted entry.
func GetJSON(store Interface, key string, dest any) (bool, error) {
	raw, err := store.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.New(err).
			Category(errors.CategoryLedger).
			Context("key", key).
			Build()
	}
	return true, nil
}

// SetJSON marshals value and stores it at key.
func SetJSON(store Interface, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryLedger).
			Context("key", key).
			Build()
	}
	return store.Set(key, raw)
}
