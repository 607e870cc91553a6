package store

import (
	"context"
	"os"
	"testing"

	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestNeo4j(t *testing.T) *Neo4jStore {
	t.Helper()
	uri := os.Getenv("INTELCORE_NEO4J_URI")
	if uri == "" {
		t.Skip("Skipping integration test: INTELCORE_NEO4J_URI not set")
	}
	user := os.Getenv("INTELCORE_NEO4J_USER")
	password := os.Getenv("INTELCORE_NEO4J_PASSWORD")

	ctx := context.Background()
	s, err := NewNeo4jStore(ctx, uri, user, password, "", nil)
	if err != nil {
		t.Skipf("Skipping test: Neo4j not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNeo4jStore_InsertAndGetNode(t *testing.T) {
	s := setupTestNeo4j(t)
	ctx := context.Background()

	n := sampleNode("neo-n1", "a.go", "Foo", 5)
	require.NoError(t, s.InsertNode(ctx, n))

	got, err := s.GetNode(ctx, "neo-n1")
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.SymbolName)
}

func TestNeo4jStore_BatchInsertEdgesAndQuery(t *testing.T) {
	s := setupTestNeo4j(t)
	ctx := context.Background()

	require.NoError(t, s.BatchInsertNodes(ctx, []models.Node{
		sampleNode("neo-a", "f.go", "A", 1),
		sampleNode("neo-b", "f.go", "B", 1),
	}))
	require.NoError(t, s.InsertEdge(ctx, models.Edge{CallerID: "neo-a", CalleeID: "neo-b", Type: models.EdgeTypeCall}))

	edges, err := s.EdgesByCaller(ctx, "neo-a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "neo-b", edges[0].CalleeID)
}
