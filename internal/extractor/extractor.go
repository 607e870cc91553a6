// Package extractor is the glue layer between parsed signatures and the
// Graph: it lifts models.SignatureInfo records into Graph nodes and
// derives coarse DataDependency/Inheritance edges from heuristics over
// those signatures. It never produces Call edges (spec.md §6: call
// graphs require real invocation evidence, not signature heuristics).
package extractor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
)

// Failure is one per-file extraction error.
type Failure struct {
	FilePath   string
	Err        error
	OccurredAt time.Time
}

// IndexDiagnostics accumulates per-file extraction failures without
// interrupting the indexing batch, narrowed from the dead-letter-queue
// pattern of accumulate-and-continue rather than retry-and-replay (see
// DESIGN.md).
type IndexDiagnostics struct {
	mu       sync.Mutex
	failures []Failure
}

// Record appends a failure for filePath.
func (d *IndexDiagnostics) Record(filePath string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, Failure{FilePath: filePath, Err: err, OccurredAt: time.Now()})
}

// Failures returns a snapshot of recorded failures in recording order.
func (d *IndexDiagnostics) Failures() []Failure {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Failure, len(d.failures))
	copy(out, d.failures)
	return out
}

// Count returns the number of recorded failures.
func (d *IndexDiagnostics) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failures)
}

// Options configures Extract's heuristic thresholds.
type Options struct {
	// InheritanceMethodOverlapThreshold is the minimum fraction (0,1] of
	// shared method names between two qualified-name clusters before an
	// Inheritance edge is inferred between their representative nodes.
	InheritanceMethodOverlapThreshold float64
	// Strict, if set, requests AST-level inheritance evidence this
	// extractor cannot provide; per spec.md §9 this returns a validation
	// error rather than silently falling back to the heuristic.
	Strict bool
}

// DefaultOptions matches spec.md §6's heuristic-only defaults.
func DefaultOptions() Options {
	return Options{InheritanceMethodOverlapThreshold: 0.5}
}

// Extract lifts signatures into g, recording any per-signature failure in
// diags rather than aborting. It returns the ids assigned to each
// successfully-added node, in input order (a zero-value id marks a
// skipped/failed signature).
func Extract(g *graph.Graph, signatures []models.SignatureInfo, opts Options, diags *IndexDiagnostics) ([]string, error) {
	if opts.Strict {
		return nil, errors.ValidationError("strict mode requires AST-level evidence, not available to this extractor")
	}

	ids := make([]string, len(signatures))
	byQualifiedPrefix := map[string][]string{}
	paramTypeIndex := map[string][]string{} // param type -> node ids referencing it

	for i, sig := range signatures {
		if sig.SymbolName == "" {
			if diags != nil {
				diags.Record(sig.FilePath, errors.ValidationError("signature missing symbol_name"))
			}
			continue
		}

		id := g.AddNode(models.Node{
			ProjectID:     sig.ProjectID,
			FilePath:      sig.FilePath,
			SymbolName:    sig.SymbolName,
			QualifiedName: sig.QualifiedName,
			NodeType:      sig.NodeType,
			Signature:     sig.Signature,
			ByteRange:     sig.ByteRange,
			Complexity:    sig.Complexity,
			ContentHash:   sig.ContentHash,
		})
		ids[i] = id

		if prefix := classPrefix(sig.QualifiedName); prefix != "" {
			byQualifiedPrefix[prefix] = append(byQualifiedPrefix[prefix], id)
		}
		for _, pt := range sig.ParameterTypes {
			paramTypeIndex[pt] = append(paramTypeIndex[pt], id)
		}
	}

	if err := addDataDependencyEdges(g, paramTypeIndex); err != nil {
		return ids, err
	}
	if err := addInheritanceEdges(g, byQualifiedPrefix, signatures, ids, opts.InheritanceMethodOverlapThreshold); err != nil {
		return ids, err
	}

	return ids, nil
}

// classPrefix returns the qualified-name prefix before the last "."
// separator, treated as the owning class/module cluster key.
func classPrefix(qualifiedName string) string {
	idx := strings.LastIndex(qualifiedName, ".")
	if idx <= 0 {
		return ""
	}
	return qualifiedName[:idx]
}

// addDataDependencyEdges connects nodes that share a parameter type: a
// heuristic stand-in for real data-flow analysis, grounded on spec.md
// §6's "shared parameter-type" rule.
func addDataDependencyEdges(g *graph.Graph, paramTypeIndex map[string][]string) error {
	for _, ids := range paramTypeIndex {
		if len(ids) < 2 {
			continue
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if err := g.AddEdge(ids[i], ids[j], models.EdgeTypeDataDependency, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addInheritanceEdges clusters nodes by qualified-name class prefix and
// connects representative pairs whose method-name overlap meets
// threshold, standing in for a real inheritance resolver.
func addInheritanceEdges(g *graph.Graph, clusters map[string][]string, signatures []models.SignatureInfo, ids []string, threshold float64) error {
	methodsOf := make(map[string]map[string]struct{}, len(clusters))
	for prefix, nodeIDs := range clusters {
		set := make(map[string]struct{})
		for _, id := range nodeIDs {
			for i, sigID := range ids {
				if sigID == id {
					set[signatures[i].SymbolName] = struct{}{}
				}
			}
		}
		methodsOf[prefix] = set
	}

	prefixes := make([]string, 0, len(clusters))
	for p := range clusters {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	for i := 0; i < len(prefixes); i++ {
		for j := i + 1; j < len(prefixes); j++ {
			a, b := prefixes[i], prefixes[j]
			overlap := methodOverlap(methodsOf[a], methodsOf[b])
			if overlap < threshold {
				continue
			}
			repA, repB := clusters[a][0], clusters[b][0]
			if err := g.AddEdge(repA, repB, models.EdgeTypeInheritance, map[string]interface{}{"method_overlap": overlap}); err != nil {
				return err
			}
		}
	}
	return nil
}

func methodOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for m := range a {
		if _, ok := b[m]; ok {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}
