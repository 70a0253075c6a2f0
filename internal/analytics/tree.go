package analytics

import (
	"time"
)

// NoNode is the sentinel index for an absent child or parent.
const NoNode = -1

// DefaultMinRegionSize is the default leaf granularity for tree builds.
const DefaultMinRegionSize = 16

// Quadrant slot order within RegionNode.Children.
const (
	QuadNW = iota
	QuadNE
	QuadSW
	QuadSE
)

// RegionNode is one node of the quadrant decomposition. Nodes live in the
// tree's flat arena and refer to each other by index; a node with all four
// children set to NoNode is a leaf.
type RegionNode struct {
	ID        int         `json:"id"`
	Bounds    Region      `json:"bounds"`
	Stats     RegionStats `json:"stats"`
	Score     float64     `json:"score"`
	IsAnomaly bool        `json:"is_anomaly"`
	Depth     int         `json:"depth"`
	Children  [4]int      `json:"children"`
	Parent    int         `json:"parent"`
}

// IsLeaf reports whether the node has no children.
func (n *RegionNode) IsLeaf() bool {
	return n.Children[0] == NoNode && n.Children[1] == NoNode &&
		n.Children[2] == NoNode && n.Children[3] == NoNode
}

// RegionTree is the hierarchical quadrant decomposition of a raster.
// All nodes, internal and leaf, are stored in one append-only arena; the
// arena is the sole owner of node lifetime and nodes are never removed.
// After build, only the Score/IsAnomaly fields are mutated (by the scorer).
type RegionTree struct {
	nodes     []RegionNode
	index     *StatsIndex
	rootIndex int
	leafCount int
	maxDepth  int
	minSize   int
	buildMs   float64
}

// BuildRegionTree recursively partitions the raster covered by index into
// quadrants until either dimension of a region is <= minSize. Each node's
// statistics come from the index in O(1), so build cost is proportional to
// the node count, O((n/minSize)^2).
func BuildRegionTree(index *StatsIndex, minSize int) (*RegionTree, error) {
	if !index.IsBuilt() {
		return nil, ErrNotBuilt
	}
	if minSize <= 0 {
		minSize = DefaultMinRegionSize
	}

	start := time.Now()
	t := &RegionTree{
		index:     index,
		rootIndex: NoNode,
		minSize:   minSize,
	}

	// Rough upper bound on node count, to avoid rehashing the arena.
	estimated := (index.Height()/minSize + 1) * (index.Width()/minSize + 1) * 2
	t.nodes = make([]RegionNode, 0, estimated)

	full := NewRegion(0, 0, index.Height()-1, index.Width()-1)
	t.rootIndex = t.buildRecursive(full, 0, NoNode)
	t.buildMs = float64(time.Since(start).Microseconds()) / 1000.0
	return t, nil
}

// buildRecursive creates the node for region, then splits into quadrants and
// recurses unless the base case applies. Returns the new node's index.
func (t *RegionTree) buildRecursive(region Region, depth, parentIdx int) int {
	nodeIdx := len(t.nodes)
	t.nodes = append(t.nodes, RegionNode{
		ID:       nodeIdx,
		Bounds:   region,
		Stats:    t.index.QueryStats(region),
		Depth:    depth,
		Children: [4]int{NoNode, NoNode, NoNode, NoNode},
		Parent:   parentIdx,
	})
	t.maxDepth = max(t.maxDepth, depth)

	height := region.Row2 - region.Row1 + 1
	width := region.Col2 - region.Col1 + 1
	if height <= t.minSize || width <= t.minSize {
		t.leafCount++
		return nodeIdx
	}

	quadrants := splitQuadrants(region)
	for i, q := range quadrants {
		if !q.IsValid() {
			continue
		}
		childIdx := t.buildRecursive(q, depth+1, nodeIdx)
		t.nodes[nodeIdx].Children[i] = childIdx
	}
	return nodeIdx
}

// splitQuadrants divides a region at the floor of its midpoints. For odd
// dimensions the NW/SW quadrants take the smaller half and NE/SE absorb the
// remainder.
func splitQuadrants(r Region) [4]Region {
	midRow := (r.Row1 + r.Row2) / 2
	midCol := (r.Col1 + r.Col2) / 2
	return [4]Region{
		QuadNW: NewRegion(r.Row1, r.Col1, midRow, midCol),
		QuadNE: NewRegion(r.Row1, midCol+1, midRow, r.Col2),
		QuadSW: NewRegion(midRow+1, r.Col1, r.Row2, midCol),
		QuadSE: NewRegion(midRow+1, midCol+1, r.Row2, r.Col2),
	}
}

// NodeCount returns the total number of nodes, internal and leaf.
func (t *RegionTree) NodeCount() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// LeafCount returns the number of leaf nodes.
func (t *RegionTree) LeafCount() int {
	if t == nil {
		return 0
	}
	return t.leafCount
}

// MaxDepth returns the deepest node depth (root is 0).
func (t *RegionTree) MaxDepth() int {
	if t == nil {
		return 0
	}
	return t.maxDepth
}

// MinRegionSize returns the leaf granularity the tree was built with.
func (t *RegionTree) MinRegionSize() int { return t.minSize }

// BuildMillis returns the wall-clock build duration in milliseconds.
func (t *RegionTree) BuildMillis() float64 { return t.buildMs }

// Root returns the root node, or nil for an empty tree.
func (t *RegionTree) Root() *RegionNode {
	if t == nil || t.rootIndex == NoNode {
		return nil
	}
	return &t.nodes[t.rootIndex]
}

// Node returns the node at index i, or nil when out of range.
func (t *RegionTree) Node(i int) *RegionNode {
	if t == nil || i < 0 || i >= len(t.nodes) {
		return nil
	}
	return &t.nodes[i]
}

// Nodes exposes the full arena. Mutation is restricted in practice to the
// Score/IsAnomaly fields written by the scorer.
func (t *RegionTree) Nodes() []RegionNode {
	if t == nil {
		return nil
	}
	return t.nodes
}

// Traverse walks the tree breadth-first from the root. The visitor returns
// whether to descend into the node's children, which lets callers prune
// whole subtrees.
func (t *RegionTree) Traverse(visitor func(node *RegionNode) (descend bool)) {
	if t == nil || t.rootIndex == NoNode {
		return
	}

	queue := []int{t.rootIndex}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		node := &t.nodes[idx]
		if !visitor(node) {
			continue
		}
		for _, child := range node.Children {
			if child != NoNode {
				queue = append(queue, child)
			}
		}
	}
}

// TraverseLeaves visits every leaf node, in arena order.
func (t *RegionTree) TraverseLeaves(visitor func(node *RegionNode)) {
	if t == nil {
		return
	}
	for i := range t.nodes {
		if t.nodes[i].IsLeaf() {
			visitor(&t.nodes[i])
		}
	}
}

// Leaves returns pointers to all leaf nodes.
func (t *RegionTree) Leaves() []*RegionNode {
	if t == nil {
		return nil
	}
	leaves := make([]*RegionNode, 0, t.leafCount)
	for i := range t.nodes {
		if t.nodes[i].IsLeaf() {
			leaves = append(leaves, &t.nodes[i])
		}
	}
	return leaves
}

// NodesAtDepth returns pointers to all nodes at the given depth.
func (t *RegionTree) NodesAtDepth(depth int) []*RegionNode {
	if t == nil {
		return nil
	}
	var out []*RegionNode
	for i := range t.nodes {
		if t.nodes[i].Depth == depth {
			out = append(out, &t.nodes[i])
		}
	}
	return out
}

// QueryRegion returns all leaves whose bounds intersect rect, walking
// breadth-first and skipping any subtree that misses the rectangle.
func (t *RegionTree) QueryRegion(rect Region) []*RegionNode {
	if t == nil || t.rootIndex == NoNode {
		return nil
	}

	var result []*RegionNode
	queue := []int{t.rootIndex}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		node := &t.nodes[idx]
		if !node.Bounds.Intersects(rect) {
			continue
		}
		if node.IsLeaf() {
			result = append(result, node)
			continue
		}
		for _, child := range node.Children {
			if child != NoNode {
				queue = append(queue, child)
			}
		}
	}
	return result
}
