// Package core wires Graph, Store, the embedding cache, Traversal, and
// the incremental cache into the Caller interface exposed to external
// callers (spec.md §6): index_project, search, analyze, context,
// diagnostics. There is no package-level global state — every operation
// runs against a caller-supplied CoreContext value, constructed once per
// project and owning every piece of state its analyses need.
package core

import (
	"context"
	"sort"

	"github.com/coderisk-labs/intelcore/internal/cache"
	"github.com/coderisk-labs/intelcore/internal/config"
	"github.com/coderisk-labs/intelcore/internal/embeddings"
	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/extractor"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/coderisk-labs/intelcore/internal/store"
	"github.com/coderisk-labs/intelcore/internal/traversal"
	"github.com/sirupsen/logrus"
)

// Embedder is the subset of embedclient.Embedder this package depends
// on, kept local so core never imports an external-provider package
// directly.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// CoreContext owns every piece of mutable state one project's analysis
// needs: its in-memory Graph, its Store handle, its sidecar, and its
// embedding cache. Two CoreContext values never share a Graph; a new
// project gets a new CoreContext.
type CoreContext struct {
	graph      *graph.Graph
	store      store.Store
	sidecar    *store.Sidecar
	embedCache *embeddings.Cache
	incCache   *cache.Manager
	embedder   Embedder
	cfg        *config.Config
	logger     *logrus.Logger

	projectID string
}

// New constructs a CoreContext for projectID. sidecar and embedder may be
// nil: a nil sidecar disables the sidecar snapshot. The embedder is kept
// on the CoreContext but no CoreContext method calls it; callers supply
// node embeddings to IndexProject and query vectors to Search and Analyze.
func New(cfg *config.Config, projectID string, st store.Store, sidecar *store.Sidecar, embedder Embedder, logger *logrus.Logger) *CoreContext {
	if logger == nil {
		logger = logrus.New()
	}
	return &CoreContext{
		graph:      graph.New(),
		store:      st,
		sidecar:    sidecar,
		embedCache: embeddings.NewCache(cfg.Embedding.CacheSize),
		incCache:   cache.NewManager(st, logger),
		embedder:   embedder,
		cfg:        cfg,
		logger:     logger,
		projectID:  projectID,
	}
}

// Load hydrates this CoreContext's Graph and embedding cache from
// persisted state. It always runs a full Store.Load first; when a sidecar
// is wired and holds a snapshot whose checksum matches the loaded
// intel_nodes, that snapshot replaces the loaded graph, otherwise the
// sidecar is refreshed from the loaded graph. The sidecar therefore does
// not skip the Store read. Node embeddings carried on each loaded node
// seed the embedding cache. Load is a no-op, returning nil, when no Store
// is wired.
func (c *CoreContext) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	g, err := c.store.Load(ctx, c.projectID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}

	if c.sidecar != nil {
		checksum, err := store.ChecksumNodes(g.AllNodes())
		if err == nil {
			if cached, ok, _ := c.sidecar.Get(c.projectID, checksum); ok {
				g = cached
			} else {
				if err := c.sidecar.Put(c.projectID, g); err != nil {
					c.logger.WithError(err).Debug("failed to refresh sidecar snapshot")
				}
			}
		}
	}

	c.graph = g
	for _, n := range g.AllNodes() {
		if len(n.Embedding) > 0 {
			c.embedCache.Insert(models.NodeEmbedding{NodeID: n.ID, Vector: n.Embedding})
		}
	}
	return nil
}

// IndexProject lifts signatures into the Graph, optionally attaches
// nodeEmbeddings, and persists both the Graph and the embeddings to the
// Store and sidecar. Per-signature failures are recorded in the returned
// IndexDiagnostics rather than aborting the batch (spec.md §7: "partial
// indexing is supported").
func (c *CoreContext) IndexProject(ctx context.Context, signatures []models.SignatureInfo, nodeEmbeddings []models.NodeEmbedding, opts extractor.Options) (*extractor.IndexDiagnostics, error) {
	diags := &extractor.IndexDiagnostics{}

	ids, err := extractor.Extract(c.graph, signatures, opts, diags)
	if err != nil {
		return diags, err
	}

	// Embeddings are correlated by caller-supplied node id when already
	// known; an embedding with no node id is assumed to be positional,
	// keyed against the ids Extract just assigned to signatures.
	for i, e := range nodeEmbeddings {
		if e.NodeID == "" && i < len(ids) && ids[i] != "" {
			e.NodeID = ids[i]
		}
		if e.NodeID == "" {
			continue
		}
		c.embedCache.Insert(e)

		// Carry the vector onto the graph node itself so it round-trips
		// through Store.Save/Load and the sidecar, not just this
		// process's in-memory cache.
		if n, ok := c.graph.GetNode(e.NodeID); ok {
			n.Embedding = e.Vector
			c.graph.AddNode(n)
		}
	}

	if c.store != nil {
		if err := c.store.Save(ctx, c.projectID, c.graph); err != nil {
			return diags, errors.StoreUnavailable(err)
		}
	}
	if c.sidecar != nil {
		if err := c.sidecar.Put(c.projectID, c.graph); err != nil {
			c.logger.WithError(err).Warn("failed to update sidecar snapshot")
		}
	}

	return diags, nil
}

// Search ranks the k nodes whose cached embedding is most similar to
// queryEmbedding, per spec.md §6's search(project_id, query_embedding, k).
func (c *CoreContext) Search(ctx context.Context, queryEmbedding []float32, k int) ([]embeddings.ScoredNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.CancelledErr("search")
	}
	return c.embedCache.FindSimilar(queryEmbedding, k), nil
}

// Analyze finds the nodes most similar to queryEmbedding, seeds a
// gravity-based traversal from them, and returns the expanded context
// within tokenBudget.
func (c *CoreContext) Analyze(ctx context.Context, queryEmbedding []float32, tokenBudget int) (traversal.Result, error) {
	if err := ctx.Err(); err != nil {
		return traversal.Result{}, errors.CancelledErr("analyze")
	}

	seeds := c.embedCache.FindSimilar(queryEmbedding, seedFanout)
	seedIDs := make([]string, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.NodeID
	}

	weights := traversal.Weights{
		WeightSemantic:   c.cfg.Traversal.WeightSemantic,
		WeightComplexity: c.cfg.Traversal.WeightComplexity,
		DistanceDecay:    c.cfg.Traversal.DistanceDecay,
	}
	sim := c.similarityFunc(queryEmbedding)

	return traversal.Expand(c.graph, seedIDs, sim, weights, tokenBudget), nil
}

// Context expands outward from a single known node, per spec.md §6's
// context(node_id, token_budget). The seed's own embedding (if cached)
// stands in for the query embedding when scoring its neighbors.
func (c *CoreContext) Context(ctx context.Context, nodeID string, tokenBudget int) (traversal.Result, error) {
	if err := ctx.Err(); err != nil {
		return traversal.Result{}, errors.CancelledErr("context")
	}
	if _, ok := c.graph.GetNode(nodeID); !ok {
		return traversal.Result{}, errors.ValidationError("unknown node id: " + nodeID)
	}

	var query []float32
	if e, ok := c.embedCache.Get(nodeID); ok {
		query = e.Vector
	}

	weights := traversal.Weights{
		WeightSemantic:   c.cfg.Traversal.WeightSemantic,
		WeightComplexity: c.cfg.Traversal.WeightComplexity,
		DistanceDecay:    c.cfg.Traversal.DistanceDecay,
	}
	sim := c.similarityFunc(query)

	return traversal.Expand(c.graph, []string{nodeID}, sim, weights, tokenBudget), nil
}

// Diagnostics reports node/edge counts, type histograms, and the
// complexity bucket histogram, per spec.md §6's
// diagnostics(project_id) → {node_count, edge_count, histograms, hotspots}.
func (c *CoreContext) Diagnostics(ctx context.Context) (store.Diagnostics, error) {
	if c.store == nil {
		return c.localDiagnostics(), nil
	}
	d, err := c.store.Analytics(ctx, c.projectID)
	if err != nil {
		return store.Diagnostics{}, errors.StoreUnavailable(err)
	}
	return d, nil
}

// Hotspots reports nodes whose fanout and complexity both exceed the
// given thresholds.
func (c *CoreContext) Hotspots(ctx context.Context, thresholdFanout, thresholdComplexity int) ([]store.Hotspot, error) {
	if c.store == nil {
		return c.localHotspots(thresholdFanout, thresholdComplexity), nil
	}
	h, err := c.store.Hotspots(ctx, c.projectID, thresholdFanout, thresholdComplexity)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return h, nil
}

// AffectedNodes reports which nodes in filePath need their derived
// analyses recomputed, via the incremental cache (spec.md §4.4).
func (c *CoreContext) AffectedNodes(filePath string) ([]string, error) {
	return c.incCache.AffectedNodes(filePath)
}

// Graph exposes the underlying in-memory graph for read-only inspection
// by callers (e.g. a CLI's raw-query subcommand).
func (c *CoreContext) Graph() *graph.Graph { return c.graph }

// seedFanout bounds how many top-ranked embedding matches seed a
// traversal; spec.md §4.3 leaves this caller-tunable, this is the
// default used when Analyze is called directly.
const seedFanout = 5

func (c *CoreContext) similarityFunc(query []float32) traversal.SimilarityFunc {
	if query == nil {
		return func(nodeID string) float64 { return 0 }
	}
	return func(nodeID string) float64 {
		e, ok := c.embedCache.Get(nodeID)
		if !ok {
			return 0
		}
		return embeddings.Similarity(query, e.Vector)
	}
}

// localDiagnostics computes Diagnostics directly from the in-memory
// graph, used when no Store is wired (e.g. ephemeral/in-process use).
func (c *CoreContext) localDiagnostics() store.Diagnostics {
	nodes := c.graph.AllNodes()
	edges := c.graph.AllEdges()

	d := store.Diagnostics{
		NodeCount:        len(nodes),
		EdgeCount:        len(edges),
		NodesByType:      make(map[models.NodeType]int),
		EdgesByType:      make(map[models.EdgeType]int),
		ComplexityBucket: make(map[store.ComplexityBucket]int),
	}
	for _, n := range nodes {
		d.NodesByType[n.NodeType]++
		d.ComplexityBucket[store.BucketFor(n.Complexity)]++
	}
	for _, e := range edges {
		d.EdgesByType[e.Type]++
	}
	return d
}

func (c *CoreContext) localHotspots(thresholdFanout, thresholdComplexity int) []store.Hotspot {
	var hotspots []store.Hotspot
	for _, n := range c.graph.AllNodes() {
		fanout := c.graph.Fanout(n.ID)
		if fanout >= thresholdFanout && n.Complexity >= thresholdComplexity {
			hotspots = append(hotspots, store.Hotspot{NodeID: n.ID, Complexity: n.Complexity, Fanout: fanout})
		}
	}
	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Complexity != hotspots[j].Complexity {
			return hotspots[i].Complexity > hotspots[j].Complexity
		}
		return hotspots[i].NodeID < hotspots[j].NodeID
	})
	return hotspots
}

// Close releases the Store and sidecar handles, if wired.
func (c *CoreContext) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.sidecar != nil {
		if err := c.sidecar.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
