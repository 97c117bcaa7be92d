// Package spatial answers nearest-point queries over projected 2-D
// coordinates. Indexes are built once per viewport and never patched; a
// viewport change builds a fresh one.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"street_router/pkg/graph"
)

// DefaultSearchRadius is the half-width of the square query window, in
// projected units (pixels).
const DefaultSearchRadius = 10

// Entry is a graph node at a projected position.
type Entry struct {
	Node  graph.NodeID
	Point orb.Point
}

// Index is a nearest-point index over entries.
//
// Insert returns false, and leaves the index unchanged, for points outside the
// index boundary. Nearest returns the entry closest to (x, y) among those
// inside the closed square window centered there, or false if the window is
// empty.
type Index interface {
	Insert(e Entry) bool
	Nearest(x, y float64) (Entry, bool)
	Len() int
}

// contains is half-open: the minimum edges belong to the bound, the maximum
// edges do not.
func contains(b orb.Bound, p orb.Point) bool {
	return p[0] >= b.Min[0] && p[0] < b.Max[0] &&
		p[1] >= b.Min[1] && p[1] < b.Max[1]
}

func window(x, y, r float64) orb.Bound {
	return orb.Bound{Min: orb.Point{x - r, y - r}, Max: orb.Point{x + r, y + r}}
}

// inWindow is closed on all sides.
func inWindow(w orb.Bound, p orb.Point) bool {
	return p[0] >= w.Min[0] && p[0] <= w.Max[0] &&
		p[1] >= w.Min[1] && p[1] <= w.Max[1]
}

func distance(p orb.Point, x, y float64) float64 {
	return planar.Distance(p, orb.Point{x, y})
}

// LinearScan is the reference Index: it checks every entry on every query.
type LinearScan struct {
	bound   orb.Bound
	radius  float64
	entries []Entry
}

// NewLinearScan returns an empty linear index over bound.
func NewLinearScan(bound orb.Bound, radius float64) *LinearScan {
	return &LinearScan{bound: bound, radius: radius}
}

func (l *LinearScan) Insert(e Entry) bool {
	if !contains(l.bound, e.Point) {
		return false
	}
	l.entries = append(l.entries, e)
	return true
}

// Nearest breaks ties by insertion order.
func (l *LinearScan) Nearest(x, y float64) (Entry, bool) {
	w := window(x, y, l.radius)
	var best Entry
	found := false
	bestDist := 0.0
	for _, e := range l.entries {
		if !inWindow(w, e.Point) {
			continue
		}
		if d := distance(e.Point, x, y); !found || d < bestDist {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}

func (l *LinearScan) Len() int { return len(l.entries) }
