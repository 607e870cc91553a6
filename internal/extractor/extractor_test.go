package extractor

import (
	"testing"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_NeverProducesCallEdges(t *testing.T) {
	g := graph.New()
	sigs := []models.SignatureInfo{
		{ProjectID: "p", FilePath: "a.go", SymbolName: "Foo", QualifiedName: "pkg.A.Foo", NodeType: models.NodeTypeMethod, ParameterTypes: []string{"int"}},
		{ProjectID: "p", FilePath: "a.go", SymbolName: "Bar", QualifiedName: "pkg.B.Bar", NodeType: models.NodeTypeMethod, ParameterTypes: []string{"int"}},
	}
	diags := &IndexDiagnostics{}
	_, err := Extract(g, sigs, DefaultOptions(), diags)
	require.NoError(t, err)

	callEdges, err := countEdgesOfType(g, models.EdgeTypeCall)
	require.NoError(t, err)
	assert.Equal(t, 0, callEdges)
}

func countEdgesOfType(g *graph.Graph, t models.EdgeType) (int, error) {
	n := 0
	for _, e := range g.AllEdges() {
		if e.Type == t {
			n++
		}
	}
	return n, nil
}

func TestExtract_DataDependencyEdgeOnSharedParamType(t *testing.T) {
	g := graph.New()
	sigs := []models.SignatureInfo{
		{ProjectID: "p", FilePath: "a.go", SymbolName: "Foo", ParameterTypes: []string{"User"}},
		{ProjectID: "p", FilePath: "b.go", SymbolName: "Bar", ParameterTypes: []string{"User"}},
		{ProjectID: "p", FilePath: "c.go", SymbolName: "Baz", ParameterTypes: []string{"Order"}},
	}
	diags := &IndexDiagnostics{}
	ids, err := Extract(g, sigs, DefaultOptions(), diags)
	require.NoError(t, err)

	_, ok := g.GetEdge(ids[0], ids[1], models.EdgeTypeDataDependency)
	assert.True(t, ok)
	_, ok = g.GetEdge(ids[0], ids[2], models.EdgeTypeDataDependency)
	assert.False(t, ok)
}

func TestExtract_InheritanceEdgeOnMethodOverlap(t *testing.T) {
	g := graph.New()
	sigs := []models.SignatureInfo{
		{ProjectID: "p", FilePath: "a.go", SymbolName: "Save", QualifiedName: "pkg.Base.Save"},
		{ProjectID: "p", FilePath: "a.go", SymbolName: "Load", QualifiedName: "pkg.Base.Load"},
		{ProjectID: "p", FilePath: "b.go", SymbolName: "Save", QualifiedName: "pkg.Derived.Save"},
		{ProjectID: "p", FilePath: "b.go", SymbolName: "Load", QualifiedName: "pkg.Derived.Load"},
	}
	diags := &IndexDiagnostics{}
	ids, err := Extract(g, sigs, DefaultOptions(), diags)
	require.NoError(t, err)

	_, ok := g.GetEdge(ids[0], ids[2], models.EdgeTypeInheritance)
	assert.True(t, ok)
}

func TestExtract_StrictModeReturnsValidationError(t *testing.T) {
	g := graph.New()
	opts := DefaultOptions()
	opts.Strict = true

	_, err := Extract(g, nil, opts, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
}

func TestIndexDiagnostics_RecordsWithoutAborting(t *testing.T) {
	g := graph.New()
	sigs := []models.SignatureInfo{
		{ProjectID: "p", FilePath: "bad.go", SymbolName: ""},
		{ProjectID: "p", FilePath: "good.go", SymbolName: "Foo"},
	}
	diags := &IndexDiagnostics{}
	ids, err := Extract(g, sigs, DefaultOptions(), diags)
	require.NoError(t, err)

	assert.Equal(t, 1, diags.Count())
	assert.Equal(t, "bad.go", diags.Failures()[0].FilePath)
	assert.Equal(t, "", ids[0])
	assert.NotEqual(t, "", ids[1])
}
