// Package traversal implements gravity-based context expansion: a
// priority-queue-driven walk of the graph that balances semantic
// relevance, structural complexity, and distance from seeds against a
// token budget.
package traversal

import (
	"container/heap"
	"math"

	"github.com/coderisk-labs/intelcore/internal/graph"
	"github.com/coderisk-labs/intelcore/internal/models"
)

// Weights are the configuration parameters of the relevance formula:
//
//	relevance(n) = (s*WeightSemantic + c*WeightComplexity) / max(d,1)^DistanceDecay
type Weights struct {
	WeightSemantic   float64
	WeightComplexity float64
	DistanceDecay    float64
}

// DefaultWeights matches the defaults named in spec.md §6.
func DefaultWeights() Weights {
	return Weights{WeightSemantic: 1.0, WeightComplexity: 0.1, DistanceDecay: 1.0}
}

// Relevance computes the gravity score for a candidate node. The formula
// never produces NaN: the denominator is clamped to max(d,1).
func Relevance(w Weights, semanticSim float64, complexity int, distance int) float64 {
	denomBase := distance
	if denomBase < 1 {
		denomBase = 1
	}
	denom := math.Pow(float64(denomBase), w.DistanceDecay)
	if denom == 0 {
		denom = 1
	}
	return (semanticSim*w.WeightSemantic + float64(complexity)*w.WeightComplexity) / denom
}

// SimilarityFunc supplies the semantic similarity of a node against the
// query embedding that seeded this traversal. Seeds may use a fixed 1.0.
type SimilarityFunc func(nodeID string) float64

// RejectReason explains why a candidate was not admitted.
type RejectReason string

const (
	RejectBudget      RejectReason = "budget"
	RejectNoNeighbors RejectReason = "no-neighbors"
)

// Rejected records a candidate that was evaluated but not admitted.
type Rejected struct {
	NodeID string
	Reason RejectReason
}

// Result is the output of Expand: the admitted set in admission order, the
// residual budget, and the rejected set with reasons.
type Result struct {
	Admitted       []string
	ResidualBudget int
	Rejected       []Rejected
	BudgetExceeded bool
}

type candidate struct {
	nodeID     string
	distance   int
	relevance  float64
	index      int // heap index, maintained by container/heap
}

// candidateQueue is a max-priority queue ordered by descending relevance,
// ascending node_id on ties (spec.md §4.3: "Ties in relevance are broken
// by ascending node_id"). container/heap is the only priority-queue
// primitive in the retrieval pack's dependency surface that fits a
// custom ordering without pulling in an unrelated scheduler library (see
// DESIGN.md).
type candidateQueue []*candidate

func (q candidateQueue) Len() int { return len(q) }
func (q candidateQueue) Less(i, j int) bool {
	if q[i].relevance != q[j].relevance {
		return q[i].relevance > q[j].relevance
	}
	return q[i].nodeID < q[j].nodeID
}
func (q candidateQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *candidateQueue) Push(x interface{}) {
	c := x.(*candidate)
	c.index = len(*q)
	*q = append(*q, c)
}
func (q *candidateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}

// Expand runs gravity-based context expansion from seeds, subject to
// tokenBudget, using g for neighbor lookup and sim for semantic
// similarity scoring.
func Expand(g *graph.Graph, seeds []string, sim SimilarityFunc, w Weights, tokenBudget int) Result {
	pq := &candidateQueue{}
	heap.Init(pq)

	visited := make(map[string]struct{})
	admittedSet := make(map[string]struct{})

	result := Result{ResidualBudget: tokenBudget}

	enqueueNeighbors := func(nodeID string, distance int) {
		for _, nb := range g.Neighbors(nodeID, models.DirectionOut) {
			if _, seen := visited[nb.NodeID]; seen {
				continue
			}
			visited[nb.NodeID] = struct{}{}
			heap.Push(pq, &candidate{
				nodeID:    nb.NodeID,
				distance:  distance,
				relevance: Relevance(w, sim(nb.NodeID), complexityOf(g, nb.NodeID), distance),
			})
		}
	}

	// Seeds are admitted at d=0 when their cost fits the remaining budget.
	for _, s := range seeds {
		visited[s] = struct{}{}
		cost := costOf(g, s)
		if cost > result.ResidualBudget {
			// A seed that cannot fit is rejected with RejectBudget and sets
			// BudgetExceeded, so the admitted cost never exceeds tokenBudget.
			result.BudgetExceeded = true
			result.Rejected = append(result.Rejected, Rejected{NodeID: s, Reason: RejectBudget})
			continue
		}
		result.ResidualBudget -= cost
		result.Admitted = append(result.Admitted, s)
		admittedSet[s] = struct{}{}
		enqueueNeighbors(s, 1)
	}

	for pq.Len() > 0 {
		c := heap.Pop(pq).(*candidate)
		if _, already := admittedSet[c.nodeID]; already {
			continue
		}

		cost := costOf(g, c.nodeID)
		if cost > result.ResidualBudget {
			result.BudgetExceeded = true
			result.Rejected = append(result.Rejected, Rejected{NodeID: c.nodeID, Reason: RejectBudget})
			continue
		}

		result.ResidualBudget -= cost
		result.Admitted = append(result.Admitted, c.nodeID)
		admittedSet[c.nodeID] = struct{}{}

		enqueueNeighbors(c.nodeID, c.distance+1)
	}

	return result
}

func costOf(g *graph.Graph, nodeID string) int {
	n, ok := g.GetNode(nodeID)
	if !ok {
		return 0
	}
	return n.ByteRange.TokenCost()
}

func complexityOf(g *graph.Graph, nodeID string) int {
	n, ok := g.GetNode(nodeID)
	if !ok {
		return 0
	}
	return n.Complexity
}
