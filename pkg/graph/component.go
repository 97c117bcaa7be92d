package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []NodeID
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]NodeID, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = NodeID(i)
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x NodeID) NodeID {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y NodeID) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x NodeID) uint32 {
	return uf.size[uf.Find(x)]
}

func connect(g *Graph) *UnionFind {
	uf := NewUnionFind(g.NumNodes())
	for i := range g.edges {
		uf.Union(g.edges[i].A, g.edges[i].B)
	}
	return uf
}

// Components returns the number of connected components among the
// registered intersections. An isolated intersection is its own component.
func Components(g *Graph) int {
	uf := connect(g)
	roots := make(map[NodeID]struct{})
	for _, h := range g.Registered() {
		roots[uf.Find(h)] = struct{}{}
	}
	return len(roots)
}

// LargestComponent returns the registered intersections of the largest
// connected component, in handle order. Ties go to the component containing
// the lowest handle.
func LargestComponent(g *Graph) []NodeID {
	registered := g.Registered()
	if len(registered) == 0 {
		return nil
	}

	uf := connect(g)

	// Count only registered members; shadowed nodes do not make a component bigger.
	counts := make(map[NodeID]int)
	for _, h := range registered {
		counts[uf.Find(h)]++
	}
	bestRoot, bestSize := NoNode, 0
	for _, h := range registered {
		root := uf.Find(h)
		if counts[root] > bestSize {
			bestRoot, bestSize = root, counts[root]
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for _, h := range registered {
		if uf.Find(h) == bestRoot {
			nodes = append(nodes, h)
		}
	}
	return nodes
}

// FilterToComponent creates a new graph containing the components of the
// given nodes: every arena node connected to one of them, shadowed nodes
// included, and every edge between those nodes. Nodes keep their handle order
// and only nodes registered in g are registered in the result. Edge weights
// are copied, not recomputed.
func FilterToComponent(g *Graph, nodes []NodeID) *Graph {
	out := New()
	if len(nodes) == 0 {
		return out
	}

	uf := connect(g)
	roots := make(map[NodeID]struct{}, 1)
	for _, h := range nodes {
		roots[uf.Find(h)] = struct{}{}
	}

	oldToNew := make(map[NodeID]NodeID, len(nodes))
	for i := range g.nodes {
		old := NodeID(i)
		if _, ok := roots[uf.Find(old)]; !ok {
			continue
		}
		n := &g.nodes[i]
		oldToNew[old] = out.addNode(n.ID, n.Lat, n.Lon, g.nodeIndex[n.ID] == old)
	}

	for i := range g.edges {
		e := &g.edges[i]
		a, okA := oldToNew[e.A]
		b, okB := oldToNew[e.B]
		if !okA || !okB {
			continue
		}
		out.addEdge(e.ID, a, b, e.Weight)
	}

	return out
}
