package storage

import (
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/jdcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceStore_BasicOperations(t *testing.T) {
	ps, err := NewMemoryPersistenceStore()
	require.NoError(t, err)
	defer ps.Close()

	key, value := []byte("test-key"), []byte("test-value")
	require.NoError(t, ps.Put(key, value))

	got, found, err := ps.Get(key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, got)

	_, found, err = ps.Get([]byte("non-existent"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, ps.Delete(key))
	_, found, err = ps.Get(key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersistenceStore_Prefix(t *testing.T) {
	ps, err := NewMemoryPersistenceStore()
	require.NoError(t, err)
	defer ps.Close()

	for _, k := range []string{"a/2", "a/1", "b/1", "a"} {
		require.NoError(t, ps.Put([]byte(k), []byte("v"+k)))
	}
	kvs, err := ps.GetWithPrefix([]byte("a/"))
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	assert.Equal(t, "a/1", string(kvs[0][0]))
	assert.Equal(t, "va/2", string(kvs[1][1]))

	n, err := ps.DeleteWithPrefix([]byte("a/"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, found, err := ps.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestResultCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := OpenResultCache(dir)
	require.NoError(t, err)

	k1 := Key([]byte{0xca, 0xfe}, []byte("show_synthetic: false"))
	k2 := Key([]byte{0xca, 0xfe}, []byte("show_synthetic: true"))
	assert.NotEqual(t, k1, k2)

	_, ok, err := c.Get(k1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Put(k1, []byte(`{"class":"p/T"}`)))
	require.NoError(t, c.Close())

	c, err = OpenResultCache(dir)
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get(k1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"class":"p/T"}`, string(got))

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{k1}, keys)

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
