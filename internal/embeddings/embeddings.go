// Package embeddings attaches, compares, and caches fixed-dimension
// vectors per graph node.
package embeddings

import (
	"math"
	"sort"
	"sync"

	"github.com/coderisk-labs/intelcore/internal/models"
)

// DefaultDimension is the default embedding width (spec.md §3/§6).
const DefaultDimension = 768

// Similarity returns the cosine similarity of two vectors. It never
// fails: 0.0 is returned if either vector has zero length or the
// dimensions differ (spec.md §4.2, P6).
func Similarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		magA += fa * fa
		magB += fb * fb
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// ScoredNode pairs a node id with a similarity score.
type ScoredNode struct {
	NodeID string
	Score  float64
}

// Cache is a bounded, FIFO-eviction store of NodeEmbeddings. Eviction is
// strictly by insertion order; there is no recency promotion on read,
// which keeps the eviction policy auditable (spec.md §4.2 rationale).
// Reads (Get, Len, FindSimilar) take the same mutex as Insert; the read
// path is not lock-free.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	order      []string // node ids, oldest first
	entries    map[string]models.NodeEmbedding
}

// NewCache constructs a Cache that holds at most maxEntries embeddings.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]models.NodeEmbedding),
	}
}

// Insert adds or replaces the embedding for e.NodeID. If this insertion
// causes the cache to exceed maxEntries, the oldest entry (by insertion
// order) is evicted and its node id is returned.
func (c *Cache) Insert(e models.NodeEmbedding) (evicted string, didEvict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[e.NodeID]; !exists {
		c.order = append(c.order, e.NodeID)
	}
	c.entries[e.NodeID] = e

	if len(c.entries) > c.maxEntries {
		evicted = c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evicted)
		didEvict = true
	}
	return evicted, didEvict
}

// Get returns the cached embedding for nodeID, if present.
func (c *Cache) Get(nodeID string) (models.NodeEmbedding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[nodeID]
	return e, ok
}

// Len reports the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FindSimilar scans every cached embedding, ranks by descending cosine
// similarity to query, and breaks ties by ascending node_id. It returns at
// most k results.
func (c *Cache) FindSimilar(query []float32, k int) []ScoredNode {
	c.mu.Lock()
	snapshot := make([]models.NodeEmbedding, 0, len(c.entries))
	for _, e := range c.entries {
		snapshot = append(snapshot, e)
	}
	c.mu.Unlock()

	scored := make([]ScoredNode, 0, len(snapshot))
	for _, e := range snapshot {
		scored = append(scored, ScoredNode{NodeID: e.NodeID, Score: Similarity(query, e.Vector)})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].NodeID < scored[j].NodeID
	})

	if k >= 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
