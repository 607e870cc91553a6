package embeddings

import (
	"testing"

	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSimilarity_EdgeCases(t *testing.T) {
	// spec.md §8 scenario 6.
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	assert.Equal(t, 0.0, Similarity(zero, v))
	assert.Equal(t, 0.0, Similarity([]float32{1, 0, 0}, []float32{0, 1, 0}))
	assert.InDelta(t, 1.0, Similarity(v, v), 1e-9)

	doubled := []float32{2, 4, 6}
	assert.InDelta(t, 1.0, Similarity(v, doubled), 1e-9)

	dim768 := make([]float32, 768)
	dim512 := make([]float32, 512)
	assert.Equal(t, 0.0, Similarity(dim768, dim512))
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := []float32{1, 0, 2}
	b := []float32{3, 1, 0}
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
}

func TestCache_FIFOEviction(t *testing.T) {
	c := NewCache(2)

	_, evicted := c.Insert(models.NodeEmbedding{NodeID: "a", Vector: []float32{1}})
	assert.False(t, evicted)
	_, evicted = c.Insert(models.NodeEmbedding{NodeID: "b", Vector: []float32{1}})
	assert.False(t, evicted)

	ev, evicted := c.Insert(models.NodeEmbedding{NodeID: "c", Vector: []float32{1}})
	assert.True(t, evicted)
	assert.Equal(t, "a", ev)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_FindSimilar_TieBreakByNodeID(t *testing.T) {
	c := NewCache(10)
	c.Insert(models.NodeEmbedding{NodeID: "z", Vector: []float32{1, 0}})
	c.Insert(models.NodeEmbedding{NodeID: "a", Vector: []float32{1, 0}})
	c.Insert(models.NodeEmbedding{NodeID: "m", Vector: []float32{0, 1}})

	results := c.FindSimilar([]float32{1, 0}, 10)
	assert.Len(t, results, 3)
	// "a" and "z" tie at score 1.0; ascending node_id breaks the tie.
	assert.Equal(t, "a", results[0].NodeID)
	assert.Equal(t, "z", results[1].NodeID)
	assert.Equal(t, "m", results[2].NodeID)
}
