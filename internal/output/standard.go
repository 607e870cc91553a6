package output

import (
	"fmt"
	"io"
	"sort"
)

// StandardFormatter renders tabular, human-readable detail.
type StandardFormatter struct{}

func (f *StandardFormatter) Format(result Result, w io.Writer) error {
	switch {
	case result.SearchHits != nil:
		fmt.Fprintf(w, "%-8s  %s\n", "SCORE", "NODE")
		for _, h := range result.SearchHits {
			fmt.Fprintf(w, "%-8.4f  %s\n", h.Score, h.NodeID)
		}
	case result.Expansion != nil:
		e := result.Expansion
		fmt.Fprintf(w, "admitted: %d  residual budget: %d  budget exceeded: %v\n", len(e.Admitted), e.ResidualBudget, e.BudgetExceeded)
		for _, id := range e.Admitted {
			fmt.Fprintf(w, "  + %s\n", id)
		}
		if len(e.Rejected) > 0 {
			fmt.Fprintf(w, "rejected: %d\n", len(e.Rejected))
		}
	case result.Diagnostics != nil:
		d := result.Diagnostics
		fmt.Fprintf(w, "nodes: %d  edges: %d\n", d.NodeCount, d.EdgeCount)
		for _, nt := range sortedNodeTypes(d.NodesByType) {
			fmt.Fprintf(w, "  node[%s]: %d\n", nt, d.NodesByType[nt])
		}
		for _, et := range sortedEdgeTypes(d.EdgesByType) {
			fmt.Fprintf(w, "  edge[%s]: %d\n", et, d.EdgesByType[et])
		}
		for _, b := range sortedBuckets(d.ComplexityBucket) {
			fmt.Fprintf(w, "  complexity[%s]: %d\n", b, d.ComplexityBucket[b])
		}
	case result.Hotspots != nil:
		fmt.Fprintf(w, "%-8s %-8s  %s\n", "FANOUT", "COMPLEX", "NODE")
		for _, h := range result.Hotspots {
			fmt.Fprintf(w, "%-8d %-8d  %s\n", h.Fanout, h.Complexity, h.NodeID)
		}
	default:
		fmt.Fprintln(w, "(empty result)")
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedNodeTypes[K ~string, V any](m map[K]V) []K { return sortedKeys(m) }

func sortedEdgeTypes[K ~string, V any](m map[K]V) []K { return sortedKeys(m) }

func sortedBuckets[K ~string, V any](m map[K]V) []K { return sortedKeys(m) }
