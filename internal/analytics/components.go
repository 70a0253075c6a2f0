package analytics

import (
	"sort"
)

// ConnectedComponent is a maximal group of edge-adjacent anomalous leaves.
// Components are built fresh by each discovery call and not persisted.
type ConnectedComponent struct {
	ID          int     `json:"id"`
	NodeIDs     []int   `json:"node_ids"`
	BoundingBox Region  `json:"bounding_box"`
	TotalArea   int64   `json:"total_area"`
	MaxScore    float64 `json:"max_score"`
	AvgScore    float64 `json:"avg_score"`
}

// anomalousLeafNodes collects pointers to all anomalous leaves.
func (e *Engine) anomalousLeafNodes() []*RegionNode {
	if e == nil || e.tree == nil {
		return nil
	}
	var out []*RegionNode
	e.tree.TraverseLeaves(func(node *RegionNode) {
		if node.IsAnomaly {
			out = append(out, node)
		}
	})
	return out
}

// FindComponents groups anomalous leaves into connected components with a
// disjoint-set union. Every adjacent pair is united; set weights carry
// region area rather than element count. Pairwise adjacency dominates the
// cost at O(n^2); the union-find operations are O(n a(n)).
// Components are returned sorted by descending total area.
func (e *Engine) FindComponents() []ConnectedComponent {
	leaves := e.anomalousLeafNodes()
	if len(leaves) == 0 {
		return nil
	}

	uf := NewUnionFind(len(leaves))
	for i, leaf := range leaves {
		uf.SetSize(i, leaf.Bounds.Area())
	}

	for i := 0; i < len(leaves); i++ {
		for j := i + 1; j < len(leaves); j++ {
			if leaves[i].Bounds.IsAdjacentTo(leaves[j].Bounds) {
				uf.Unite(i, j)
			}
		}
	}

	// Group members by root, preserving leaf order within each group.
	rootToMembers := make(map[int][]int)
	rootOrder := make([]int, 0)
	for i := range leaves {
		root := uf.Find(i)
		if _, seen := rootToMembers[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		rootToMembers[root] = append(rootToMembers[root], i)
	}

	components := make([]ConnectedComponent, 0, len(rootOrder))
	for _, root := range rootOrder {
		components = append(components, buildComponent(len(components), rootToMembers[root], leaves))
	}
	sortComponents(components)
	return components
}

// FindComponentsDFS groups anomalous leaves with an explicit adjacency list
// and iterative depth-first traversal. It produces the same partition as
// FindComponents via an independent algorithm, which makes it a useful
// cross-check.
func (e *Engine) FindComponentsDFS() []ConnectedComponent {
	leaves := e.anomalousLeafNodes()
	if len(leaves) == 0 {
		return nil
	}

	adj := make([][]int, len(leaves))
	for i := 0; i < len(leaves); i++ {
		for j := i + 1; j < len(leaves); j++ {
			if leaves[i].Bounds.IsAdjacentTo(leaves[j].Bounds) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, len(leaves))
	var components []ConnectedComponent
	for start := range leaves {
		if visited[start] {
			continue
		}

		var members []int
		stack := []int{start}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[u] {
				continue
			}
			visited[u] = true
			members = append(members, u)
			for _, v := range adj[u] {
				if !visited[v] {
					stack = append(stack, v)
				}
			}
		}

		components = append(components, buildComponent(len(components), members, leaves))
	}
	sortComponents(components)
	return components
}

// LargestComponent returns the biggest component by total area, or false
// when there are no anomalous leaves.
func (e *Engine) LargestComponent() (ConnectedComponent, bool) {
	components := e.FindComponents()
	if len(components) == 0 {
		return ConnectedComponent{}, false
	}
	return components[0], true
}

// buildComponent aggregates one member group into a ConnectedComponent.
func buildComponent(id int, members []int, leaves []*RegionNode) ConnectedComponent {
	comp := ConnectedComponent{
		ID:          id,
		NodeIDs:     make([]int, 0, len(members)),
		BoundingBox: leaves[members[0]].Bounds,
	}

	var scoreSum float64
	for _, m := range members {
		leaf := leaves[m]
		comp.NodeIDs = append(comp.NodeIDs, leaf.ID)
		comp.TotalArea += leaf.Bounds.Area()
		comp.MaxScore = max(comp.MaxScore, leaf.Score)
		scoreSum += leaf.Score
		comp.BoundingBox = MergeBounds(comp.BoundingBox, leaf.Bounds)
	}
	comp.AvgScore = scoreSum / float64(len(members))
	return comp
}

func sortComponents(components []ConnectedComponent) {
	sort.SliceStable(components, func(i, j int) bool {
		return components[i].TotalArea > components[j].TotalArea
	})
	for i := range components {
		components[i].ID = i
	}
}
