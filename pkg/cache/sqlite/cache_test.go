package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/dimsync/pkg/cache"
)

var _ cache.Store = (*Cache)(nil)

func newTestCache(t *testing.T, dbPath, namespace string) *Cache {
	t.Helper()
	c, err := New(dbPath, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(t, filepath.Join(t.TempDir(), "cache_test.db"), "handles")

	require.NoError(t, c.Put("id_abc", "H1"))

	v, ok := c.Get("id_abc")
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, "H1", v)

	_, ok = c.Get("id_missing")
	assert.False(t, ok)
}

func TestPutReplaces(t *testing.T) {
	c := newTestCache(t, "", "handles")

	require.NoError(t, c.Put("k", "H1"))
	require.NoError(t, c.Put("k", "H2"))

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "H2", v)
}

func TestInMemorySurvivesAcrossCalls(t *testing.T) {
	c := newTestCache(t, ":memory:", "ids")
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put("k", "v"))
		_, ok := c.Get("k")
		require.True(t, ok)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	handles := newTestCache(t, path, "handles")
	ids := newTestCache(t, path, "ids")

	require.NoError(t, handles.Put("k", "H1"))
	_, ok := ids.Get("k")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t, "", "handles")

	require.NoError(t, c.Put("k", "H1"))
	require.NoError(t, c.Delete("k"))
	require.NoError(t, c.Delete("never-there"))

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c := newTestCache(t, "", "handles")

	_ = c.Put("h1", "a")
	c.Get("h1") // hit
	c.Get("h2") // miss

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, "handles", stats.Name)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestClear(t *testing.T) {
	c := newTestCache(t, "", "handles")

	_ = c.Put("h1", "a")
	_ = c.Put("h2", "b")
	require.NoError(t, c.Clear())

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Entries)
}
