package core

import (
	"context"
	"testing"

	"github.com/coderisk-labs/intelcore/internal/config"
	"github.com/coderisk-labs/intelcore/internal/extractor"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/coderisk-labs/intelcore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) *CoreContext {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", 0, "normal", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	return New(cfg, "proj-1", st, nil, nil, nil)
}

func sampleSignatures() []models.SignatureInfo {
	return []models.SignatureInfo{
		{ProjectID: "proj-1", FilePath: "a.go", SymbolName: "Foo", QualifiedName: "pkg.Foo", NodeType: models.NodeTypeFunction, Complexity: 3, ContentHash: "h1"},
		{ProjectID: "proj-1", FilePath: "b.go", SymbolName: "Bar", QualifiedName: "pkg.Bar", NodeType: models.NodeTypeFunction, Complexity: 8, ContentHash: "h2"},
	}
}

func TestIndexProject_PopulatesGraphAndStore(t *testing.T) {
	c := newTestCore(t)
	diags, err := c.IndexProject(context.Background(), sampleSignatures(), nil, extractor.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, diags.Count())
	assert.Equal(t, 2, c.Graph().NodeCount())
}

func TestDiagnostics_ReflectsIndexedNodes(t *testing.T) {
	c := newTestCore(t)
	_, err := c.IndexProject(context.Background(), sampleSignatures(), nil, extractor.DefaultOptions())
	require.NoError(t, err)

	d, err := c.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.NodeCount)
}

func TestSearch_RanksByEmbeddingSimilarity(t *testing.T) {
	c := newTestCore(t)
	sigs := sampleSignatures()
	_, err := c.IndexProject(context.Background(), sigs, nil, extractor.DefaultOptions())
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, n := range c.Graph().AllNodes() {
		ids = append(ids, n.ID)
	}
	require.Len(t, ids, 2)

	c.embedCache.Insert(models.NodeEmbedding{NodeID: ids[0], Vector: []float32{1, 0, 0}})
	c.embedCache.Insert(models.NodeEmbedding{NodeID: ids[1], Vector: []float32{0, 1, 0}})

	results, err := c.Search(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[0], results[0].NodeID)
}

func TestContext_RejectsUnknownNode(t *testing.T) {
	c := newTestCore(t)
	_, err := c.Context(context.Background(), "does-not-exist", 100)
	assert.Error(t, err)
}

func TestContext_ExpandsFromSeed(t *testing.T) {
	c := newTestCore(t)
	_, err := c.IndexProject(context.Background(), sampleSignatures(), nil, extractor.DefaultOptions())
	require.NoError(t, err)

	var seedID string
	for _, n := range c.Graph().AllNodes() {
		seedID = n.ID
		break
	}

	result, err := c.Context(context.Background(), seedID, 10000)
	require.NoError(t, err)
	assert.Contains(t, result.Admitted, seedID)
}

func TestClose_ClosesStore(t *testing.T) {
	c := newTestCore(t)
	assert.NoError(t, c.Close())
}
