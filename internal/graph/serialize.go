package graph

import (
	"bytes"
	"encoding/gob"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/models"
)

// wireGraph is the canonical on-the-wire representation: node records in
// insertion order, edge records in insertion order. Indices are not
// serialized — Deserialize rebuilds symbol_index and file_index from the
// node records, per spec.md §4.1 ("indices... by reconstruction").
//
// encoding/gob is used here, not a third-party codec: no serialization
// library in the retrieval pack round-trips an arbitrary Go struct graph
// with self-describing types the way this format requires, and gob is the
// standard mechanism for exactly this (see DESIGN.md).
type wireGraph struct {
	Nodes []models.Node
	Edges []wireEdge
}

type wireEdge struct {
	CallerID string
	CalleeID string
	Type     models.EdgeType
	Metadata map[string]interface{}
}

// Serialize produces the canonical byte format described in spec.md §4.1:
// node records in insertion order, edge records, indices omitted (they are
// derived). Node ids are preserved as stored; a later Deserialize may
// legally reassign ids as long as incident edges are remapped, but this
// implementation preserves ids bitwise since they are strings already
// unique within the instance.
func (g *Graph) Serialize() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wg := wireGraph{
		Nodes: make([]models.Node, 0, len(g.nodeOrder)),
		Edges: make([]wireEdge, 0, len(g.edgeOrder)),
	}
	for _, id := range g.nodeOrder {
		if n, ok := g.nodes[id]; ok {
			wg.Nodes = append(wg.Nodes, *n)
		}
	}
	for _, k := range g.edgeOrder {
		if e, ok := g.edges[k]; ok {
			wg.Edges = append(wg.Edges, wireEdge{
				CallerID: e.CallerID,
				CalleeID: e.CalleeID,
				Type:     e.Type,
				Metadata: e.Metadata,
			})
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCorruptGraph, errors.SeverityHigh, "failed to encode graph")
	}
	return buf.Bytes(), nil
}

// Deserialize reconstructs a Graph from the canonical byte format,
// rebuilding symbol_index and file_index from the node records. It fails
// with CorruptGraph if any edge endpoint references a node not present in
// the node records.
func Deserialize(data []byte) (*Graph, error) {
	var wg wireGraph
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCorruptGraph, errors.SeverityCritical, "failed to decode graph")
	}

	g := New()
	present := make(map[string]struct{}, len(wg.Nodes))
	for _, n := range wg.Nodes {
		if n.ID == "" {
			return nil, errors.CorruptGraph("node record missing id")
		}
		if _, dup := present[n.ID]; dup {
			return nil, errors.CorruptGraph("duplicate node id " + n.ID)
		}
		present[n.ID] = struct{}{}

		nodeCopy := n
		g.nodes[n.ID] = &nodeCopy
		g.nodeOrder = append(g.nodeOrder, n.ID)
		g.indexAdd(n.SymbolName, n.FilePath, n.ID)
	}

	for _, we := range wg.Edges {
		if _, ok := present[we.CallerID]; !ok {
			return nil, errors.CorruptGraph("edge references missing caller node " + we.CallerID)
		}
		if _, ok := present[we.CalleeID]; !ok {
			return nil, errors.CorruptGraph("edge references missing callee node " + we.CalleeID)
		}
		key := edgeKey{caller: we.CallerID, callee: we.CalleeID, typ: we.Type}
		if _, dup := g.edges[key]; dup {
			return nil, errors.CorruptGraph("duplicate edge in serialized form")
		}
		g.edges[key] = &models.Edge{CallerID: we.CallerID, CalleeID: we.CalleeID, Type: we.Type, Metadata: we.Metadata}
		g.edgeOrder = append(g.edgeOrder, key)
		g.outAdj[we.CallerID] = append(g.outAdj[we.CallerID], key)
		g.inAdj[we.CalleeID] = append(g.inAdj[we.CalleeID], key)
	}

	return g, nil
}
