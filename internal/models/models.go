// Package models defines the data model shared across the intelligence
// core: graph nodes and edges, the signatures the Extractor consumes, and
// the embedding vectors attached to nodes.
package models

import "time"

// NodeType enumerates the kinds of symbol a Node can represent.
type NodeType string

const (
	NodeTypeFunction NodeType = "Function"
	NodeTypeClass    NodeType = "Class"
	NodeTypeMethod   NodeType = "Method"
	NodeTypeVariable NodeType = "Variable"
	NodeTypeModule   NodeType = "Module"
)

// EdgeType enumerates the kinds of dependence edge.
type EdgeType string

const (
	EdgeTypeCall           EdgeType = "Call"
	EdgeTypeDataDependency EdgeType = "DataDependency"
	EdgeTypeInheritance    EdgeType = "Inheritance"
	EdgeTypeImport         EdgeType = "Import"
)

// ByteRange is a half-open [Start, End) byte offset range in source text.
type ByteRange struct {
	Start int64 `json:"start" db:"start"`
	End   int64 `json:"end" db:"end"`
}

// Len returns the number of bytes spanned, or 0 if the range is empty/invalid.
func (r ByteRange) Len() int64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// TokenCost estimates the token cost of this byte range at 4 bytes/token,
// rounding up. A zero-length range costs 0.
func (r ByteRange) TokenCost() int {
	n := r.Len()
	if n == 0 {
		return 0
	}
	return int((n + 3) / 4)
}

// Node represents a resolvable code symbol: function, method, class,
// variable, or module.
type Node struct {
	ID           string    `json:"id" db:"id"`
	ProjectID    string    `json:"project_id" db:"project_id"`
	FilePath     string    `json:"file_path" db:"file_path"`
	SymbolName   string    `json:"symbol_name" db:"symbol_name"`
	QualifiedName string   `json:"qualified_name,omitempty" db:"qualified_name"`
	NodeType     NodeType  `json:"node_type" db:"node_type"`
	Signature    string    `json:"signature" db:"signature"`
	ByteRange    ByteRange `json:"byte_range"`
	Complexity   int       `json:"complexity" db:"complexity"`
	ContentHash  string    `json:"content_hash" db:"content_hash"` // hex-encoded 256-bit digest
	Embedding    []float32 `json:"embedding,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Edge is a directed, typed, metadata-bearing dependence edge. The
// composite identity is (CallerID, CalleeID, Type).
type Edge struct {
	CallerID string                 `json:"caller_id" db:"caller_id"`
	CalleeID string                 `json:"callee_id" db:"callee_id"`
	Type     EdgeType               `json:"edge_type" db:"edge_type"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Direction selects which incident edges Neighbors returns.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

// SignatureInfo is the record the Extractor glue layer lifts into Graph
// nodes and coarse edges. It is the only input the core accepts from the
// (out-of-scope) language-specific parser.
type SignatureInfo struct {
	ProjectID      string    `json:"project_id"`
	FilePath       string    `json:"file_path"`
	SymbolName     string    `json:"symbol_name"`
	QualifiedName  string    `json:"qualified_name,omitempty"`
	NodeType       NodeType  `json:"node_type"`
	Signature      string    `json:"signature"`
	ByteRange      ByteRange `json:"byte_range"`
	Complexity     int       `json:"complexity"`
	ContentHash    string    `json:"content_hash"` // hex-encoded 256-bit digest
	ParameterTypes []string  `json:"parameter_types"`
}

// NodeEmbedding attaches a fixed-dimension vector to a node for a given
// embedding model.
type NodeEmbedding struct {
	NodeID  string    `json:"node_id"`
	Vector  []float32 `json:"vector"`
	ModelID string    `json:"model_id"`
}

// Dimension returns len(Vector).
func (e NodeEmbedding) Dimension() int {
	return len(e.Vector)
}
