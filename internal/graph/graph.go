// Package graph implements the Program Dependence Graph: the authoritative
// in-memory data structure over code symbols and their typed dependence
// edges, with derived symbol/file indices and impact-analysis queries.
package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/google/uuid"
)

// edgeKey is the composite identity of an edge: (caller, callee, type).
type edgeKey struct {
	caller string
	callee string
	typ    models.EdgeType
}

// Graph is the authoritative in-memory PDG. It is single-owner: reads may
// run concurrently, but writes (AddNode, AddEdge, RemoveNode, ...) are
// serialized by mu.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*models.Node
	edges map[edgeKey]*models.Edge

	// insertion order, preserved for canonical serialization.
	nodeOrder []string
	edgeOrder []edgeKey

	symbolIndex map[string]map[string]struct{} // symbol_name -> set<node_id>
	fileIndex   map[string]map[string]struct{} // file_path -> set<node_id>

	// adjacency, maintained alongside edges for O(1) neighbor lookup.
	outAdj map[string][]edgeKey
	inAdj  map[string][]edgeKey
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[string]*models.Node),
		edges:       make(map[edgeKey]*models.Edge),
		symbolIndex: make(map[string]map[string]struct{}),
		fileIndex:   make(map[string]map[string]struct{}),
		outAdj:      make(map[string][]edgeKey),
		inAdj:       make(map[string][]edgeKey),
	}
}

// AddNode inserts a node, assigning it an id if it does not already have
// one, and returns that id. AddNode updates symbol_index and file_index.
// It is idempotent only when the caller deduplicates by content_hash; the
// Graph itself never dedupes.
func (g *Graph) AddNode(n models.Node) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	if existing, ok := g.nodes[n.ID]; ok {
		if existing.SymbolName != n.SymbolName || existing.FilePath != n.FilePath {
			g.indexRemove(existing.SymbolName, existing.FilePath, n.ID)
		}
	} else {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}

	nodeCopy := n
	g.nodes[n.ID] = &nodeCopy
	g.indexAdd(n.SymbolName, n.FilePath, n.ID)
	return n.ID
}

func (g *Graph) indexAdd(symbol, file, id string) {
	if symbol != "" {
		set, ok := g.symbolIndex[symbol]
		if !ok {
			set = make(map[string]struct{})
			g.symbolIndex[symbol] = set
		}
		set[id] = struct{}{}
	}
	if file != "" {
		set, ok := g.fileIndex[file]
		if !ok {
			set = make(map[string]struct{})
			g.fileIndex[file] = set
		}
		set[id] = struct{}{}
	}
}

func (g *Graph) indexRemove(symbol, file, id string) {
	if set, ok := g.symbolIndex[symbol]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(g.symbolIndex, symbol)
		}
	}
	if set, ok := g.fileIndex[file]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(g.fileIndex, file)
		}
	}
}

// AddEdge inserts an edge. Fails with DanglingEndpoint if either endpoint
// is missing. Parallel edges of the same type between the same ordered
// pair collapse: the policy is additive for the "call_count" metadata key
// and last-writer-wins for every other scalar key (see DESIGN.md, Open
// Question on merge policy).
func (g *Graph) AddEdge(callerID, calleeID string, typ models.EdgeType, metadata map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(callerID, calleeID, typ, metadata)
}

func (g *Graph) addEdgeLocked(callerID, calleeID string, typ models.EdgeType, metadata map[string]interface{}) error {
	if _, ok := g.nodes[callerID]; !ok {
		return errors.DanglingEndpoint("caller", callerID)
	}
	if _, ok := g.nodes[calleeID]; !ok {
		return errors.DanglingEndpoint("callee", calleeID)
	}

	key := edgeKey{caller: callerID, callee: calleeID, typ: typ}
	if existing, ok := g.edges[key]; ok {
		mergeMetadata(existing.Metadata, metadata)
		return nil
	}

	merged := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		merged[k] = v
	}
	g.edges[key] = &models.Edge{CallerID: callerID, CalleeID: calleeID, Type: typ, Metadata: merged}
	g.edgeOrder = append(g.edgeOrder, key)
	g.outAdj[callerID] = append(g.outAdj[callerID], key)
	g.inAdj[calleeID] = append(g.inAdj[calleeID], key)
	return nil
}

// mergeMetadata applies the merge policy in place on dst: additive for
// "call_count"-style counter keys, last-writer-wins otherwise.
func mergeMetadata(dst map[string]interface{}, incoming map[string]interface{}) {
	for k, v := range incoming {
		if isCounterKey(k) {
			dst[k] = addNumeric(dst[k], v)
			continue
		}
		dst[k] = v
	}
}

// isCounterKey reports whether a metadata key is treated as an additive
// counter rather than a last-writer-wins scalar. call_count is the only
// counter key in this merge policy; others default to last-writer-wins.
func isCounterKey(key string) bool {
	return key == "call_count"
}

func addNumeric(existing, incoming interface{}) interface{} {
	e := toFloat64(existing)
	i := toFloat64(incoming)
	return e + i
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

// GetNode looks up a node by id.
func (g *Graph) GetNode(id string) (models.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return models.Node{}, false
	}
	return *n, true
}

// GetEdge looks up an edge by its composite identity.
func (g *Graph) GetEdge(callerID, calleeID string, typ models.EdgeType) (models.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[edgeKey{caller: callerID, callee: calleeID, typ: typ}]
	if !ok {
		return models.Edge{}, false
	}
	return *e, true
}

// FindBySymbol returns the set of node ids with the given symbol name.
func (g *Graph) FindBySymbol(name string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneSet(g.symbolIndex[name])
}

// NodesInFile returns the set of node ids declared in the given file.
func (g *Graph) NodesInFile(path string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneSet(g.fileIndex[path])
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Neighbor pairs a node id with the edge through which it was reached.
type Neighbor struct {
	NodeID string
	Edge   models.Edge
}

// Neighbors returns the neighbors of id in the requested direction.
func (g *Graph) Neighbors(id string, dir models.Direction) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Neighbor
	if dir == models.DirectionOut || dir == models.DirectionBoth {
		for _, k := range g.outAdj[id] {
			out = append(out, Neighbor{NodeID: k.callee, Edge: *g.edges[k]})
		}
	}
	if dir == models.DirectionIn || dir == models.DirectionBoth {
		for _, k := range g.inAdj[id] {
			out = append(out, Neighbor{NodeID: k.caller, Edge: *g.edges[k]})
		}
	}
	return out
}

// ForwardImpact returns all nodes transitively reachable from id via
// outgoing edges, excluding id itself. DFS with a visited set; handles
// cycles safely.
func (g *Graph) ForwardImpact(id string) map[string]struct{} {
	return g.impact(id, models.DirectionOut)
}

// BackwardImpact is ForwardImpact on the reversed graph.
func (g *Graph) BackwardImpact(id string) map[string]struct{} {
	return g.impact(id, models.DirectionIn)
}

func (g *Graph) impact(start string, dir models.Direction) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{start: {}}
	result := make(map[string]struct{})
	stack := []string{start}

	adj := g.outAdj
	if dir == models.DirectionIn {
		adj = g.inAdj
	}

	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]

		for _, k := range adj[cur] {
			next := k.callee
			if dir == models.DirectionIn {
				next = k.caller
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			result[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	return result
}

// Pair is a (caller, callee) symbol or node id pair used by the bulk edge
// builders below.
type Pair struct {
	CallerID string
	CalleeID string
	Metadata map[string]interface{}
}

// AddCallGraphEdges is equivalent to repeated AddEdge(..., Call, ...) but
// processes the whole batch under a single lock acquisition.
func (g *Graph) AddCallGraphEdges(pairs []Pair) error {
	return g.addEdgeBatch(pairs, models.EdgeTypeCall)
}

// AddDataFlowEdges is equivalent to repeated AddEdge(..., DataDependency, ...).
func (g *Graph) AddDataFlowEdges(pairs []Pair) error {
	return g.addEdgeBatch(pairs, models.EdgeTypeDataDependency)
}

// AddInheritanceEdges is equivalent to repeated AddEdge(..., Inheritance, ...).
func (g *Graph) AddInheritanceEdges(pairs []Pair) error {
	return g.addEdgeBatch(pairs, models.EdgeTypeInheritance)
}

func (g *Graph) addEdgeBatch(pairs []Pair, typ models.EdgeType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range pairs {
		if err := g.addEdgeLocked(p.CallerID, p.CalleeID, typ, p.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// RemoveNode deletes a node and cascades to incident edges and index
// entries. Cache entries keyed by the node's content_hash are not removed
// here: another node may share the hash (see SPEC_FULL.md §9).
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return
	}
	g.indexRemove(n.SymbolName, n.FilePath, id)
	delete(g.nodes, id)

	for _, k := range append([]edgeKey{}, g.outAdj[id]...) {
		g.removeEdgeLocked(k)
	}
	for _, k := range append([]edgeKey{}, g.inAdj[id]...) {
		g.removeEdgeLocked(k)
	}
	delete(g.outAdj, id)
	delete(g.inAdj, id)
}

func (g *Graph) removeEdgeLocked(k edgeKey) {
	if _, ok := g.edges[k]; !ok {
		return
	}
	delete(g.edges, k)
	g.outAdj[k.caller] = removeKey(g.outAdj[k.caller], k)
	g.inAdj[k.callee] = removeKey(g.inAdj[k.callee], k)
}

func removeKey(s []edgeKey, k edgeKey) []edgeKey {
	for i, e := range s {
		if e == k {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// AllNodes returns a snapshot of every live node, in insertion order.
func (g *Graph) AllNodes() []models.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		if n, ok := g.nodes[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

// AllEdges returns a snapshot of every live edge, in insertion order.
func (g *Graph) AllEdges() []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		if e, ok := g.edges[k]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// Fanout returns the number of outgoing edges from id.
func (g *Graph) Fanout(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.outAdj[id])
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph{nodes=%d, edges=%d}", g.NodeCount(), g.EdgeCount())
}
