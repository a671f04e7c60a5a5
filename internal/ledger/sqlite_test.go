package ledger_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvirtane/imagevault/internal/ledger"
)

func openTestLedger(t *testing.T) ledger.Interface {
	t.Helper()
	store := ledger.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, store.Open())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestSQLiteSetGet(t *testing.T) {
	store := openTestLedger(t)

	require.NoError(t, store.Set("alpha", []byte(`{"v":1}`)))

	value, err := store.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(value))
}

func TestSQLiteGetMissing(t *testing.T) {
	store := openTestLedger(t)

	value, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSQLiteSetOverwrites(t *testing.T) {
	store := openTestLedger(t)

	require.NoError(t, store.Set("alpha", []byte("first")))
	require.NoError(t, store.Set("alpha", []byte("second")))

	value, err := store.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "second", string(value))
}

func TestSQLiteRemoveIdempotent(t *testing.T) {
	store := openTestLedger(t)

	require.NoError(t, store.Set("alpha", []byte("x")))
	require.NoError(t, store.Remove("alpha"))
	require.NoError(t, store.Remove("alpha"))

	value, err := store.Get("alpha")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSQLiteListPrefixOrdered(t *testing.T) {
	store := openTestLedger(t)

	require.NoError(t, store.Set("cache/entry/b", []byte("2")))
	require.NoError(t, store.Set("cache/entry/a", []byte("1")))
	require.NoError(t, store.Set("cache/meta", []byte("m")))
	require.NoError(t, store.Set("store/training/index", []byte("t")))

	entries, err := store.List("cache/entry/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cache/entry/a", entries[0].Key)
	assert.Equal(t, "cache/entry/b", entries[1].Key)
}

func TestSQLiteListEscapesWildcards(t *testing.T) {
	store := openTestLedger(t)

	// A % or _ in the prefix must match literally, not as a LIKE wildcard.
	require.NoError(t, store.Set("pre%fix/a", []byte("1")))
	require.NoError(t, store.Set("prefix/b", []byte("2")))
	require.NoError(t, store.Set("pre_fix/c", []byte("3")))

	entries, err := store.List("pre%fix/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pre%fix/a", entries[0].Key)

	entries, err = store.List("pre_fix/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pre_fix/c", entries[0].Key)
}
