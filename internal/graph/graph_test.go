package graph

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTestNode(t *testing.T, g *Graph, id, symbol, file string) string {
	t.Helper()
	return g.AddNode(models.Node{
		ID:         id,
		ProjectID:  "proj",
		FilePath:   file,
		SymbolName: symbol,
		NodeType:   models.NodeTypeFunction,
	})
}

func TestAddEdge_DanglingEndpoint(t *testing.T) {
	g := New()
	a := addTestNode(t, g, "a", "A", "a.go")

	err := g.AddEdge(a, "missing", models.EdgeTypeCall, nil)
	require.Error(t, err)
}

func TestAddEdge_ParallelMergePolicy(t *testing.T) {
	// Scenario 1 from spec.md §8: two calls to add_edge(1,2,Call,{count})
	// collapse to one edge; call_count is additive, everything else is
	// last-writer-wins.
	g := New()
	a := addTestNode(t, g, "1", "A", "a.go")
	b := addTestNode(t, g, "2", "B", "b.go")

	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeCall, map[string]interface{}{"call_count": 1}))
	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeCall, map[string]interface{}{"call_count": 2}))

	assert.Equal(t, 1, g.EdgeCount())
	e, ok := g.GetEdge(a, b, models.EdgeTypeCall)
	require.True(t, ok)
	assert.Equal(t, float64(3), e.Metadata["call_count"])
}

func TestIndices_Maintained(t *testing.T) {
	g := New()
	id := addTestNode(t, g, "n1", "foo", "file.go")

	symbolSet := g.FindBySymbol("foo")
	assert.Contains(t, symbolSet, id)

	fileSet := g.NodesInFile("file.go")
	assert.Contains(t, fileSet, id)

	g.RemoveNode(id)
	assert.Empty(t, g.FindBySymbol("foo"))
	assert.Empty(t, g.NodesInFile("file.go"))
}

func TestAddNode_ReExtractionUpdatesIndices(t *testing.T) {
	// A re-extraction of the same node id with a renamed symbol and moved
	// file must retire its old symbol_index/file_index entries, not just
	// add new ones alongside them.
	g := New()
	id := addTestNode(t, g, "n1", "foo", "old.go")

	addTestNode(t, g, "n1", "bar", "new.go")

	assert.Empty(t, g.FindBySymbol("foo"))
	assert.Empty(t, g.NodesInFile("old.go"))
	assert.Contains(t, g.FindBySymbol("bar"), id)
	assert.Contains(t, g.NodesInFile("new.go"), id)
	assert.Equal(t, 1, g.NodeCount())
}

func TestImpact_ForwardAndBackward(t *testing.T) {
	// spec.md §8 scenario 2: A->B, B->C, C->A, D->C.
	g := New()
	a := addTestNode(t, g, "A", "A", "f.go")
	b := addTestNode(t, g, "B", "B", "f.go")
	c := addTestNode(t, g, "C", "C", "f.go")
	d := addTestNode(t, g, "D", "D", "f.go")

	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeCall, nil))
	require.NoError(t, g.AddEdge(b, c, models.EdgeTypeCall, nil))
	require.NoError(t, g.AddEdge(c, a, models.EdgeTypeCall, nil))
	require.NoError(t, g.AddEdge(d, c, models.EdgeTypeCall, nil))

	forward := g.ForwardImpact(a)
	assert.Equal(t, map[string]struct{}{b: {}, c: {}}, forward)

	backward := g.BackwardImpact(c)
	assert.Equal(t, map[string]struct{}{a: {}, b: {}, d: {}}, backward)
}

func TestSerializeRoundTrip(t *testing.T) {
	// spec.md §8 scenario 4 / P3: load(save(G)) preserves counts, indices,
	// and embeddings bitwise.
	g := New()
	a := g.AddNode(models.Node{ProjectID: "p", FilePath: "a.go", SymbolName: "A", NodeType: models.NodeTypeFunction, Embedding: []float32{1, 2, 3}})
	b := g.AddNode(models.Node{ProjectID: "p", FilePath: "b.go", SymbolName: "B", NodeType: models.NodeTypeFunction})
	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeCall, map[string]interface{}{"call_count": 1}))
	require.NoError(t, g.AddEdge(a, b, models.EdgeTypeDataDependency, nil))

	data, err := g.Serialize()
	require.NoError(t, err)

	g2, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, g.NodeCount(), g2.NodeCount())
	assert.Equal(t, g.EdgeCount(), g2.EdgeCount())

	n2, ok := g2.GetNode(a)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, n2.Embedding)

	assert.NotEmpty(t, g2.FindBySymbol("A"))
	assert.NotEmpty(t, g2.NodesInFile("b.go"))
}

func TestDeserialize_CorruptGraph_DanglingEndpoint(t *testing.T) {
	var buf bytes.Buffer
	wg := wireGraph{
		Nodes: []models.Node{{ID: "only-node", ProjectID: "p", FilePath: "a.go", SymbolName: "A"}},
		Edges: []wireEdge{{CallerID: "only-node", CalleeID: "missing-node", Type: models.EdgeTypeCall}},
	}
	require.NoError(t, gob.NewEncoder(&buf).Encode(wg))

	_, err := Deserialize(buf.Bytes())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeCorruptGraph))
}
