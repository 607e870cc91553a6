// Package store implements the durable schema for nodes, edges, and the
// analysis cache, plus batch CRUD and whole-graph round-trip. See
// spec.md §4.5. Three backends share the Store interface: SQLite (the
// default, single-file, local/development backend), PostgreSQL (shared,
// concurrent-writer deployments), and Neo4j (a graph-native backend that
// stores symbols and typed relationships; traversal still runs on the
// in-memory Graph).
package store

import (
	"context"
	"errors"

	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
)

// Common store errors.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ComplexityBucket names one bucket of the complexity histogram. Bucket
// boundaries are spec.md §4.5's: simple<5, moderate<15, complex<30,
// very_complex>=30.
type ComplexityBucket string

const (
	BucketSimple      ComplexityBucket = "simple"
	BucketModerate    ComplexityBucket = "moderate"
	BucketComplex     ComplexityBucket = "complex"
	BucketVeryComplex ComplexityBucket = "very_complex"
)

// BucketFor classifies a complexity score into its histogram bucket.
func BucketFor(complexity int) ComplexityBucket {
	switch {
	case complexity < 5:
		return BucketSimple
	case complexity < 15:
		return BucketModerate
	case complexity < 30:
		return BucketComplex
	default:
		return BucketVeryComplex
	}
}

// Hotspot is a node whose fanout and complexity both exceed caller-supplied
// thresholds.
type Hotspot struct {
	NodeID     string
	Complexity int
	Fanout     int
}

// Diagnostics is the aggregate analytics payload returned by Analytics:
// counts by node/edge type and a complexity histogram.
type Diagnostics struct {
	NodeCount        int
	EdgeCount        int
	NodesByType      map[models.NodeType]int
	EdgesByType      map[models.EdgeType]int
	ComplexityBucket map[ComplexityBucket]int
}

// Store is the persistence contract every backend implements.
type Store interface {
	// Node operations.
	InsertNode(ctx context.Context, n models.Node) error
	BatchInsertNodes(ctx context.Context, nodes []models.Node) error
	GetNode(ctx context.Context, id string) (models.Node, error)
	FindByHash(ctx context.Context, contentHash string) ([]models.Node, error)
	NodesInFile(filePath string) (map[string]string, error) // node_id -> content_hash, for internal/cache

	// Edge operations.
	InsertEdge(ctx context.Context, e models.Edge) error
	BatchInsertEdges(ctx context.Context, edges []models.Edge) error
	EdgesByCaller(ctx context.Context, callerID string) ([]models.Edge, error)
	EdgesByCallee(ctx context.Context, calleeID string) ([]models.Edge, error)
	EdgesByType(ctx context.Context, t models.EdgeType) ([]models.Edge, error)

	// Analysis cache.
	CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error)
	CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error

	// Whole-graph round trip.
	Save(ctx context.Context, projectID string, g *graph.Graph) error
	Load(ctx context.Context, projectID string) (*graph.Graph, error)

	// Analytics, spec.md §4.5.
	Analytics(ctx context.Context, projectID string) (Diagnostics, error)
	Hotspots(ctx context.Context, projectID string, thresholdFanout, thresholdComplexity int) ([]Hotspot, error)

	Close() error
}
