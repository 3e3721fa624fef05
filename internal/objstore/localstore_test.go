package objstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/objstore"
)

func newStore(t *testing.T) *objstore.LocalStore {
	t.Helper()
	s, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStore_WriteThenReadRoundTrips(t *testing.T) {
	s := newStore(t)
	key := cachekey.StorageKey("objects/a.bin")

	n, err := s.Write(key, []byte("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalStore_WriteForbidsOverwrite(t *testing.T) {
	s := newStore(t)
	key := cachekey.StorageKey("objects/b.bin")

	_, err := s.Write(key, []byte("first"))
	require.NoError(t, err)

	_, err = s.Write(key, []byte("second"))
	assert.Error(t, err)

	// the original content must survive the rejected overwrite
	data, err := s.Read(key)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestLocalStore_ReadMissingIsNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Read(cachekey.StorageKey("nope.bin"))
	assert.Error(t, err)
	assert.True(t, cacheerr.Is(err, cacheerr.KindNotFound))
}

func TestLocalStore_DeleteIsIdempotent(t *testing.T) {
	s := newStore(t)
	key := cachekey.StorageKey("objects/c.bin")
	_, err := s.Write(key, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(key))
	require.NoError(t, s.Delete(key)) // deleting twice is not an error

	exists, err := s.Exists(key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStore_SizeReflectsWrittenLength(t *testing.T) {
	s := newStore(t)
	key := cachekey.StorageKey("objects/d.bin")
	_, err := s.Write(key, []byte("0123456789"))
	require.NoError(t, err)

	size, ok, err := s.Size(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 10, size)
}

func TestLocalStore_IterKeysListsEveryBlob(t *testing.T) {
	s := newStore(t)
	keys := []cachekey.StorageKey{"a.bin", "nested/b.bin", "c.bin"}
	for _, k := range keys {
		_, err := s.Write(k, []byte("data"))
		require.NoError(t, err)
	}

	got, err := s.IterKeys()
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, got)
}

func TestLocalStore_FreeSpaceIsPositiveOnARealVolume(t *testing.T) {
	s := newStore(t)
	free, err := s.FreeSpace()
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
