package store

import (
	"context"
	"os"
	"testing"

	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("INTELCORE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: INTELCORE_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_BatchInsertAndGetNode(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	n := sampleNode("pg-n1", "a.go", "Foo", 4)
	require.NoError(t, s.BatchInsertNodes(ctx, []models.Node{n}))

	got, err := s.GetNode(ctx, "pg-n1")
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.SymbolName)
}

func TestPostgresStore_SaveLoadAnalytics(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	nodes := []models.Node{
		sampleNode("pg-a", "f.go", "A", 2),
		sampleNode("pg-b", "f.go", "B", 20),
	}
	require.NoError(t, s.BatchInsertNodes(ctx, nodes))
	require.NoError(t, s.BatchInsertEdges(ctx, []models.Edge{{CallerID: "pg-a", CalleeID: "pg-b", Type: models.EdgeTypeCall}}))

	d, err := s.Analytics(ctx, "p1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.NodeCount, 2)
}
