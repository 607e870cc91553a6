package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	nodes map[string]map[string]string // file_path -> node_id -> content_hash
	cache map[string][]byte
}

func (f *fakeStore) NodesInFile(filePath string) (map[string]string, error) {
	return f.nodes[filePath], nil
}

func (f *fakeStore) CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error) {
	blob, ok := f.cache[nodeHash]
	return blob, ok, nil
}

func (f *fakeStore) CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error {
	if f.cache == nil {
		f.cache = make(map[string][]byte)
	}
	f.cache[nodeHash] = cfgData
	return nil
}

func TestPutGet_Idempotent(t *testing.T) {
	// spec.md §8 scenario 5.
	m := NewManager(nil, nil)

	m.Put("H", []byte("blob_v1"))
	e, ok := m.Get("H")
	require.True(t, ok)
	assert.Equal(t, []byte("blob_v1"), e.Blob)

	// Re-ingest with unchanged hash: get(H) == blob_v1.
	m.Put("H", []byte("blob_v1"))
	e2, ok := m.Get("H")
	require.True(t, ok)
	assert.Equal(t, []byte("blob_v1"), e2.Blob)

	// New hash until recomputed.
	_, ok = m.Get("H2")
	assert.False(t, ok)
}

func TestInvalidateBefore(t *testing.T) {
	m := NewManager(nil, nil)
	m.Put("old", []byte("x"))

	cutoff := time.Now().Add(time.Hour)
	removed := m.InvalidateBefore(cutoff)
	assert.Equal(t, 1, removed)
	assert.False(t, m.IsCached("old"))
}

func TestGet_FallsThroughToStore(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, nil)

	m.Put("H", []byte("blob_v1"))
	require.Contains(t, store.cache, "H", "Put should write through to the Store's analysis_cache table")

	// Evict the in-memory front; the entry must still resolve from the Store.
	m.mem.Delete("H")
	e, ok := m.Get("H")
	require.True(t, ok)
	assert.Equal(t, []byte("blob_v1"), e.Blob)
}

func TestAffectedNodes(t *testing.T) {
	store := &fakeStore{nodes: map[string]map[string]string{
		"a.go": {"n1": "hash1", "n2": "hash2"},
	}}
	m := NewManager(store, nil)
	m.Put("hash1", []byte("cached"))

	affected, err := m.AffectedNodes("a.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2"}, affected)
}
