package store

import (
	"context"
	"fmt"

	coreerrors "github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Neo4jStore is a graph-native backend: nodes become `:Symbol` nodes and
// edges become typed relationships. It implements only the Store
// contract (batch CRUD, round trip, analytics, hotspots); Traversal's
// Expand is not pushed down to Cypher and still walks the in-process
// Graph — scoped down from the
// teacher's microservice-per-concern Neo4j indexers to one cohesive
// backend.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *logrus.Logger
}

// NewNeo4jStore opens a driver against uri and verifies connectivity.
func NewNeo4jStore(ctx context.Context, uri, user, password, database string, logger *logrus.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) InsertNode(ctx context.Context, n models.Node) error {
	return s.BatchInsertNodes(ctx, []models.Node{n})
}

func (s *Neo4jStore) BatchInsertNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"id": n.ID, "project_id": n.ProjectID, "file_path": n.FilePath,
			"symbol_name": n.SymbolName, "qualified_name": n.QualifiedName,
			"node_type": string(n.NodeType), "signature": n.Signature,
			"byte_start": n.ByteRange.Start, "byte_end": n.ByteRange.End,
			"complexity": n.Complexity, "content_hash": n.ContentHash,
			"created_at": n.CreatedAt.Unix(), "updated_at": n.UpdatedAt.Unix(),
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MERGE (s:Symbol {id: row.id})
			SET s += row
		`, map[string]any{"rows": rows})
		return nil, err
	})
	return err
}

func (s *Neo4jStore) GetNode(ctx context.Context, id string) (models.Node, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Symbol {id: $id}) RETURN s`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, ErrNotFound
		}
		raw, _ := record.Get("s")
		return nodeFromNeo4j(raw.(neo4j.Node)), nil
	})
	if err != nil {
		return models.Node{}, err
	}
	return result.(models.Node), nil
}

func nodeFromNeo4j(nn neo4j.Node) models.Node {
	props := nn.Props
	get := func(k string) string {
		v, _ := props[k].(string)
		return v
	}
	n := models.Node{
		ID: get("id"), ProjectID: get("project_id"), FilePath: get("file_path"),
		SymbolName: get("symbol_name"), QualifiedName: get("qualified_name"),
		NodeType: models.NodeType(get("node_type")), Signature: get("signature"),
		ContentHash: get("content_hash"),
	}
	if v, ok := props["byte_start"].(int64); ok {
		n.ByteRange.Start = v
	}
	if v, ok := props["byte_end"].(int64); ok {
		n.ByteRange.End = v
	}
	if v, ok := props["complexity"].(int64); ok {
		n.Complexity = int(v)
	}
	return n
}

func (s *Neo4jStore) FindByHash(ctx context.Context, contentHash string) ([]models.Node, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Symbol {content_hash: $h}) RETURN s`, map[string]any{"h": contentHash})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Node, len(records))
		for i, r := range records {
			raw, _ := r.Get("s")
			out[i] = nodeFromNeo4j(raw.(neo4j.Node))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Node), nil
}

func (s *Neo4jStore) NodesInFile(filePath string) (map[string]string, error) {
	ctx := context.Background()
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Symbol {file_path: $fp}) RETURN s.id AS id, s.content_hash AS hash`, map[string]any{"fp": filePath})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(records))
		for _, r := range records {
			id, _ := r.Get("id")
			hash, _ := r.Get("hash")
			out[id.(string)] = hash.(string)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

func (s *Neo4jStore) InsertEdge(ctx context.Context, e models.Edge) error {
	return s.BatchInsertEdges(ctx, []models.Edge{e})
}

func (s *Neo4jStore) BatchInsertEdges(ctx context.Context, edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, e := range edges {
			cypher := fmt.Sprintf(`
				MATCH (a:Symbol {id: $caller}), (b:Symbol {id: $callee})
				MERGE (a)-[r:%s]->(b)
				SET r.metadata = $metadata
			`, sanitizeRelType(e.Type))
			metaJSON := fmt.Sprintf("%v", e.Metadata)
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"caller": e.CallerID, "callee": e.CalleeID, "metadata": metaJSON,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func sanitizeRelType(t models.EdgeType) string {
	switch t {
	case models.EdgeTypeCall:
		return "CALLS"
	case models.EdgeTypeDataDependency:
		return "DATA_DEPENDENCY"
	case models.EdgeTypeInheritance:
		return "INHERITS"
	case models.EdgeTypeImport:
		return "IMPORTS"
	default:
		return "RELATED"
	}
}

func (s *Neo4jStore) edgesByRelDirection(ctx context.Context, pattern string, id string) ([]models.Edge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH %s
			RETURN a.id AS caller, b.id AS callee, type(r) AS edge_type
		`, pattern), map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Edge, len(records))
		for i, r := range records {
			caller, _ := r.Get("caller")
			callee, _ := r.Get("callee")
			etype, _ := r.Get("edge_type")
			out[i] = models.Edge{CallerID: caller.(string), CalleeID: callee.(string), Type: models.EdgeType(etype.(string))}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Edge), nil
}

func (s *Neo4jStore) EdgesByCaller(ctx context.Context, callerID string) ([]models.Edge, error) {
	return s.edgesByRelDirection(ctx, `(a:Symbol {id: $id})-[r]->(b:Symbol)`, callerID)
}

func (s *Neo4jStore) EdgesByCallee(ctx context.Context, calleeID string) ([]models.Edge, error) {
	return s.edgesByRelDirection(ctx, `(a:Symbol)-[r]->(b:Symbol {id: $id})`, calleeID)
}

func (s *Neo4jStore) EdgesByType(ctx context.Context, t models.EdgeType) ([]models.Edge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (a:Symbol)-[r:%s]->(b:Symbol)
			RETURN a.id AS caller, b.id AS callee
		`, sanitizeRelType(t)), nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Edge, len(records))
		for i, r := range records {
			caller, _ := r.Get("caller")
			callee, _ := r.Get("callee")
			out[i] = models.Edge{CallerID: caller.(string), CalleeID: callee.(string), Type: t}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Edge), nil
}

// CacheGet/CachePut: the analysis cache is not graph-shaped, so Neo4jStore
// keeps it in a plain Cached node label rather than modeling it as a
// relationship.
func (s *Neo4jStore) CacheGet(ctx context.Context, nodeHash string) ([]byte, bool, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (c:Cached {node_hash: $h}) RETURN c.cfg_data AS d`, map[string]any{"h": nodeHash})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, nil
		}
		d, _ := record.Get("d")
		if d == nil {
			return nil, nil
		}
		return []byte(d.(string)), nil
	})
	if err != nil {
		return nil, false, err
	}
	if result == nil {
		return nil, false, nil
	}
	return result.([]byte), true, nil
}

func (s *Neo4jStore) CachePut(ctx context.Context, nodeHash string, cfgData, complexityMetrics []byte) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (c:Cached {node_hash: $h})
			SET c.cfg_data = $cfg, c.complexity_metrics = $cm
		`, map[string]any{"h": nodeHash, "cfg": string(cfgData), "cm": string(complexityMetrics)})
		return nil, err
	})
	return err
}

func (s *Neo4jStore) Save(ctx context.Context, projectID string, g *graph.Graph) error {
	nodes := g.AllNodes()
	for i := range nodes {
		nodes[i].ProjectID = projectID
	}
	if err := s.BatchInsertNodes(ctx, nodes); err != nil {
		return fmt.Errorf("save nodes: %w", err)
	}
	if err := s.BatchInsertEdges(ctx, g.AllEdges()); err != nil {
		return fmt.Errorf("save edges: %w", err)
	}
	return nil
}

func (s *Neo4jStore) Load(ctx context.Context, projectID string) (*graph.Graph, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	g := graph.New()
	known := make(map[string]bool)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Symbol {project_id: $pid}) RETURN s`, map[string]any{"pid": projectID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			raw, _ := r.Get("s")
			n := nodeFromNeo4j(raw.(neo4j.Node))
			g.AddNode(n)
			known[n.ID] = true
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range []models.EdgeType{models.EdgeTypeCall, models.EdgeTypeDataDependency, models.EdgeTypeInheritance, models.EdgeTypeImport} {
		edges, err := s.EdgesByType(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if !known[e.CallerID] || !known[e.CalleeID] {
				continue // edge belongs to a different project_id's symbols
			}
			if err := g.AddEdge(e.CallerID, e.CalleeID, e.Type, nil); err != nil {
				return nil, coreerrors.CorruptStore(err.Error())
			}
		}
	}
	return g, nil
}

func (s *Neo4jStore) Analytics(ctx context.Context, projectID string) (Diagnostics, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	d := Diagnostics{
		NodesByType:      map[models.NodeType]int{},
		EdgesByType:      map[models.EdgeType]int{},
		ComplexityBucket: map[ComplexityBucket]int{},
	}

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (s:Symbol {project_id: $pid}) RETURN s.node_type AS nt, s.complexity AS c`, map[string]any{"pid": projectID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		d.NodeCount = len(records)
		for _, r := range records {
			nt, _ := r.Get("nt")
			c, _ := r.Get("c")
			d.NodesByType[models.NodeType(nt.(string))]++
			complexity := 0
			if ci, ok := c.(int64); ok {
				complexity = int(ci)
			}
			d.ComplexityBucket[BucketFor(complexity)]++
		}
		return nil, nil
	})
	return d, err
}

func (s *Neo4jStore) Hotspots(ctx context.Context, projectID string, thresholdFanout, thresholdComplexity int) ([]Hotspot, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:Symbol {project_id: $pid})
			WHERE s.complexity >= $complexity
			OPTIONAL MATCH (s)-[r]->()
			WITH s, count(r) AS fanout
			WHERE fanout >= $fanout
			RETURN s.id AS id, s.complexity AS complexity, fanout
		`, map[string]any{"pid": projectID, "complexity": thresholdComplexity, "fanout": thresholdFanout})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Hotspot, len(records))
		for i, r := range records {
			id, _ := r.Get("id")
			complexity, _ := r.Get("complexity")
			fanout, _ := r.Get("fanout")
			out[i] = Hotspot{NodeID: id.(string), Complexity: int(complexity.(int64)), Fanout: int(fanout.(int64))}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Hotspot), nil
}
