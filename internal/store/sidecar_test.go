package store

import (
	"path/filepath"
	"testing"

	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecar_PutGet_ChecksumMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar.db")
	sc, err := OpenSidecar(path)
	require.NoError(t, err)
	defer sc.Close()

	g := graph.New()
	g.AddNode(sampleNode("a", "f.go", "A", 1))

	require.NoError(t, sc.Put("proj", g))

	authority, err := ChecksumNodes(g.AllNodes())
	require.NoError(t, err)

	loaded, ok, err := sc.Get("proj", authority)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loaded.NodeCount())
}

func TestSidecar_Get_ChecksumMismatch_NotAuthoritative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar.db")
	sc, err := OpenSidecar(path)
	require.NoError(t, err)
	defer sc.Close()

	g := graph.New()
	g.AddNode(sampleNode("a", "f.go", "A", 1))
	require.NoError(t, sc.Put("proj", g))

	staleChecksum := []byte("not-the-real-checksum-000000000")
	_, ok, err := sc.Get("proj", staleChecksum)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChecksumNodes_OrderIndependent(t *testing.T) {
	a := sampleNode("a", "f.go", "A", 1)
	b := sampleNode("b", "f.go", "B", 1)

	c1, err := ChecksumNodes([]models.Node{a, b})
	require.NoError(t, err)
	c2, err := ChecksumNodes([]models.Node{b, a})
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}
