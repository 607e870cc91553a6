package store

import (
	"context"
	"testing"
	"time"

	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", 0, "normal", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleNode(id, file, symbol string, complexity int) models.Node {
	return models.Node{
		ID: id, ProjectID: "p1", FilePath: file, SymbolName: symbol,
		NodeType: models.NodeTypeFunction, Signature: "func " + symbol + "()",
		ByteRange: models.ByteRange{Start: 0, End: 100}, Complexity: complexity,
		ContentHash: "hash-" + id, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func TestSQLiteStore_InsertAndGetNode(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	n := sampleNode("n1", "a.go", "Foo", 3)
	require.NoError(t, s.InsertNode(ctx, n))

	got, err := s.GetNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.SymbolName)
	assert.Equal(t, "hash-n1", got.ContentHash)

	_, err = s.GetNode(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_BatchInsertNodesAndEdges(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	nodes := []models.Node{sampleNode("a", "f.go", "A", 1), sampleNode("b", "f.go", "B", 2)}
	require.NoError(t, s.BatchInsertNodes(ctx, nodes))

	edge := models.Edge{CallerID: "a", CalleeID: "b", Type: models.EdgeTypeCall, Metadata: map[string]interface{}{"call_count": 1}}
	require.NoError(t, s.InsertEdge(ctx, edge))

	edges, err := s.EdgesByCaller(ctx, "a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "b", edges[0].CalleeID)

	byType, err := s.EdgesByType(ctx, models.EdgeTypeCall)
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestSQLiteStore_NodesInFile(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)
	require.NoError(t, s.BatchInsertNodes(ctx, []models.Node{
		sampleNode("a", "f.go", "A", 1),
		sampleNode("b", "g.go", "B", 1),
	}))

	hashes, err := s.NodesInFile("f.go")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "hash-a"}, hashes)
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	g := graph.New()
	a := g.AddNode(sampleNode("", "f.go", "A", 2))
	b := g.AddNode(sampleNode("", "f.go", "B", 6))
	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeCall, map[string]interface{}{"call_count": 1}))

	require.NoError(t, s.Save(ctx, "proj", g))

	loaded, err := s.Load(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.NodeCount())
	assert.Equal(t, 1, loaded.EdgeCount())
}

func TestSQLiteStore_Analytics(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	require.NoError(t, s.BatchInsertNodes(ctx, []models.Node{
		sampleNode("a", "f.go", "A", 2),  // simple
		sampleNode("b", "f.go", "B", 10), // moderate
		sampleNode("c", "f.go", "C", 40), // very_complex
	}))
	require.NoError(t, s.InsertEdge(ctx, models.Edge{CallerID: "a", CalleeID: "b", Type: models.EdgeTypeCall}))

	d, err := s.Analytics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, d.NodeCount)
	assert.Equal(t, 1, d.EdgeCount)
	assert.Equal(t, 1, d.ComplexityBucket[BucketSimple])
	assert.Equal(t, 1, d.ComplexityBucket[BucketModerate])
	assert.Equal(t, 1, d.ComplexityBucket[BucketVeryComplex])
}

func TestSQLiteStore_Hotspots(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	require.NoError(t, s.BatchInsertNodes(ctx, []models.Node{
		sampleNode("hub", "f.go", "Hub", 20),
		sampleNode("leaf1", "f.go", "Leaf1", 1),
		sampleNode("leaf2", "f.go", "Leaf2", 1),
		sampleNode("leaf3", "f.go", "Leaf3", 1),
	}))
	for _, callee := range []string{"leaf1", "leaf2", "leaf3"} {
		require.NoError(t, s.InsertEdge(ctx, models.Edge{CallerID: "hub", CalleeID: callee, Type: models.EdgeTypeCall}))
	}

	hotspots, err := s.Hotspots(ctx, "p1", 2, 15)
	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	assert.Equal(t, "hub", hotspots[0].NodeID)
	assert.Equal(t, 3, hotspots[0].Fanout)
}

func TestSQLiteStore_CacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, ok, err := s.CacheGet(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CachePut(ctx, "h1", []byte("cfg"), []byte("metrics")))
	data, ok, err := s.CacheGet(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("cfg"), data)
}
