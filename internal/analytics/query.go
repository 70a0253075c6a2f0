package analytics

import (
	"container/heap"
	"sort"
	"time"
)

// Engine serves queries over a built, scored tree. It holds non-owning
// references and never mutates the tree.
type Engine struct {
	tree  *RegionTree
	index *StatsIndex
}

// QueryResult carries the matched regions of one query plus traversal
// telemetry for observability.
type QueryResult struct {
	Regions      []AnomalyRegion `json:"regions"`
	NodesVisited int             `json:"nodes_visited"`
	NodesPruned  int             `json:"nodes_pruned"`
	ElapsedMs    float64         `json:"elapsed_ms"`
}

// NewEngine creates a query engine over the given tree and index.
// Either may be nil/unbuilt; all queries then return empty results.
func NewEngine(tree *RegionTree, index *StatsIndex) *Engine {
	return &Engine{tree: tree, index: index}
}

// scoreHeap is a bounded min-heap keyed on score: the lowest-scoring entry
// of the current top-K sits at the root so it can be evicted in O(log k).
type scoreHeap []AnomalyRegion

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any) { *h = append(*h, x.(AnomalyRegion)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// offer inserts ar if the heap holds fewer than k entries, or replaces the
// current minimum if ar scores higher.
func (h *scoreHeap) offer(ar AnomalyRegion, k int) {
	if h.Len() < k {
		heap.Push(h, ar)
	} else if ar.Score > (*h)[0].Score {
		(*h)[0] = ar
		heap.Fix(h, 0)
	}
}

// drain empties the heap into a slice sorted by descending score.
// Equal scores have no defined order beyond heap behaviour.
func (h *scoreHeap) drain() []AnomalyRegion {
	out := make([]AnomalyRegion, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(AnomalyRegion)
	}
	return out
}

// TopKAnomalies returns the k highest-scoring nodes, or leaves only when
// leafOnly is set. O(n log k) time, O(k) space.
func (e *Engine) TopKAnomalies(k int, leafOnly bool) QueryResult {
	start := time.Now()
	var result QueryResult
	if e == nil || e.tree == nil || k <= 0 {
		return result
	}

	h := make(scoreHeap, 0, k)
	nodes := e.tree.Nodes()
	for i := range nodes {
		node := &nodes[i]
		if leafOnly && !node.IsLeaf() {
			continue
		}
		result.NodesVisited++
		h.offer(AnomalyRegion{Region: node.Bounds, Score: node.Score, NodeID: node.ID}, k)
	}

	result.Regions = h.drain()
	result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0
	return result
}

// TopKWithPruning returns the k highest-scoring leaves using a breadth-first
// walk that skips a subtree once the heap is full and the subtree root's own
// score falls below the heap minimum.
//
// The bound treats a node's score as an upper bound on its descendants'
// scores. That does not hold in general for deviation scores (a child's mean
// can sit further from the global mean than its parent's aggregate), so this
// can return a different set than TopKAnomalies(k, true) on such inputs. It
// only ever discards whole subtrees scored below the current cutoff; it
// never fabricates results.
func (e *Engine) TopKWithPruning(k int) QueryResult {
	start := time.Now()
	var result QueryResult
	if e == nil || e.tree == nil || e.tree.Root() == nil || k <= 0 {
		return result
	}

	h := make(scoreHeap, 0, k)
	nodes := e.tree.Nodes()
	queue := []int{e.tree.Root().ID}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		node := &nodes[idx]
		result.NodesVisited++

		if !node.IsLeaf() {
			if h.Len() >= k && node.Score < h[0].Score {
				result.NodesPruned++
				continue
			}
			for _, child := range node.Children {
				if child != NoNode {
					queue = append(queue, child)
				}
			}
			continue
		}

		h.offer(AnomalyRegion{Region: node.Bounds, Score: node.Score, NodeID: node.ID}, k)
	}

	result.Regions = h.drain()
	result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0
	return result
}

// QueryRectangle returns the anomalous leaves intersecting rect, sorted by
// descending score.
func (e *Engine) QueryRectangle(rect Region) QueryResult {
	start := time.Now()
	var result QueryResult
	if e == nil || e.tree == nil {
		return result
	}

	for _, node := range e.tree.QueryRegion(rect) {
		result.NodesVisited++
		if node.IsAnomaly {
			result.Regions = append(result.Regions,
				AnomalyRegion{Region: node.Bounds, Score: node.Score, NodeID: node.ID})
		}
	}

	sort.Slice(result.Regions, func(i, j int) bool {
		return result.Regions[i].Score > result.Regions[j].Score
	})
	result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0
	return result
}

// QueryRegionStats returns raw statistics for an arbitrary rectangle.
func (e *Engine) QueryRegionStats(r Region) RegionStats {
	if e == nil {
		return RegionStats{}
	}
	return e.index.QueryStats(r)
}

// AnomalousLeaves returns all anomalous leaves sorted by descending score.
func (e *Engine) AnomalousLeaves() []AnomalyRegion {
	if e == nil || e.tree == nil {
		return nil
	}
	var out []AnomalyRegion
	e.tree.TraverseLeaves(func(node *RegionNode) {
		if node.IsAnomaly {
			out = append(out, AnomalyRegion{Region: node.Bounds, Score: node.Score, NodeID: node.ID})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// CountAnomalies returns the number of anomalous leaves.
func (e *Engine) CountAnomalies() int {
	if e == nil || e.tree == nil {
		return 0
	}
	count := 0
	e.tree.TraverseLeaves(func(node *RegionNode) {
		if node.IsAnomaly {
			count++
		}
	})
	return count
}

// TotalAnomalousArea returns the summed pixel area of all anomalous leaves.
func (e *Engine) TotalAnomalousArea() int64 {
	if e == nil || e.tree == nil {
		return 0
	}
	var total int64
	e.tree.TraverseLeaves(func(node *RegionNode) {
		if node.IsAnomaly {
			total += node.Bounds.Area()
		}
	})
	return total
}
