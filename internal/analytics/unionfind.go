package analytics

// UnionFind is a disjoint-set structure with path compression and union by
// rank. Component sizes are caller-defined weights (region areas here, not
// element counts): SetSize seeds a weight per element and Unite sums weights
// into the surviving root.
type UnionFind struct {
	parent []int
	rank   []int
	size   []int64
	sets   int
}

// NewUnionFind creates n singleton sets, each with weight 1.
func NewUnionFind(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
		size:   make([]int64, n),
		sets:   n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Find returns the root of x's set, compressing the path so every visited
// element points directly at the root.
func (uf *UnionFind) Find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.Find(uf.parent[x])
	}
	return uf.parent[x]
}

// Unite merges the sets containing x and y. Returns false if they were
// already in the same set. The lower-rank root is attached under the higher;
// on a rank tie the first root wins and its rank increments.
func (uf *UnionFind) Unite(x, y int) bool {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return false
	}

	switch {
	case uf.rank[rootX] < uf.rank[rootY]:
		uf.parent[rootX] = rootY
		uf.size[rootY] += uf.size[rootX]
	case uf.rank[rootX] > uf.rank[rootY]:
		uf.parent[rootY] = rootX
		uf.size[rootX] += uf.size[rootY]
	default:
		uf.parent[rootY] = rootX
		uf.size[rootX] += uf.size[rootY]
		uf.rank[rootX]++
	}

	uf.sets--
	return true
}

// Connected reports whether x and y share a root.
func (uf *UnionFind) Connected(x, y int) bool {
	return uf.Find(x) == uf.Find(y)
}

// SetSize assigns the weight of the set containing x.
func (uf *UnionFind) SetSize(x int, s int64) {
	uf.size[uf.Find(x)] = s
}

// Size returns the weight of the set containing x.
func (uf *UnionFind) Size(x int) int64 {
	return uf.size[uf.Find(x)]
}

// Sets returns the current number of distinct sets.
func (uf *UnionFind) Sets() int { return uf.sets }
