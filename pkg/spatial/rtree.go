package spatial

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

type rtreeItem struct {
	entry Entry
	seq   int
}

// RTree is an Index backed by tidwall/rtree. It keeps the QuadTree's
// half-open boundary and closed search window; ties go to the entry inserted
// first.
type RTree struct {
	bound  orb.Bound
	radius float64
	tr     rtree.RTreeG[rtreeItem]
	seq    int
}

// NewRTree returns an empty R-tree index over bound.
func NewRTree(bound orb.Bound, radius float64) *RTree {
	return &RTree{bound: bound, radius: radius}
}

func (t *RTree) Insert(e Entry) bool {
	if !contains(t.bound, e.Point) {
		return false
	}
	p := [2]float64{e.Point[0], e.Point[1]}
	t.tr.Insert(p, p, rtreeItem{entry: e, seq: t.seq})
	t.seq++
	return true
}

func (t *RTree) Nearest(x, y float64) (Entry, bool) {
	w := window(x, y, t.radius)
	var best rtreeItem
	bestDist := 0.0
	found := false
	t.tr.Search(
		[2]float64{w.Min[0], w.Min[1]},
		[2]float64{w.Max[0], w.Max[1]},
		func(_, _ [2]float64, item rtreeItem) bool {
			d := distance(item.entry.Point, x, y)
			if !found || d < bestDist || (d == bestDist && item.seq < best.seq) {
				best, bestDist, found = item, d, true
			}
			return true
		},
	)
	return best.entry, found
}

func (t *RTree) Len() int { return t.tr.Len() }
