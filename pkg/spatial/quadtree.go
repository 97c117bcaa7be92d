package spatial

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultCapacity = 4
	DefaultMaxDepth = 32
)

// Options configures a QuadTree.
//
// Capacity     – points a leaf holds before it subdivides. Must be ≥ 1.
// SearchRadius – half-width of the Nearest query window.
// MaxDepth     – leaves at this depth store past capacity instead of
// subdividing, so coincident points cannot recurse forever.
type Options struct {
	Capacity     int
	SearchRadius float64
	MaxDepth     int
}

// Option represents a functional option for configuring a QuadTree.
type Option func(*Options)

// WithCapacity sets the per-leaf capacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *Options) {
		if n >= 1 {
			o.Capacity = n
		}
	}
}

// WithSearchRadius sets the half-width of the Nearest window.
func WithSearchRadius(r float64) Option {
	return func(o *Options) {
		if r >= 0 {
			o.SearchRadius = r
		}
	}
}

// WithMaxDepth bounds subdivision depth.
func WithMaxDepth(d int) Option {
	return func(o *Options) {
		if d >= 0 {
			o.MaxDepth = d
		}
	}
}

// Child quadrant order. Projected y grows downward, so north is the
// low-y half.
const (
	nw = iota
	ne
	sw
	se
)

type quad struct {
	bound    orb.Bound
	depth    int
	points   []Entry
	children *[4]*quad // nil for a leaf
}

// QuadTree is an adaptive point quad-tree. Every region is half-open, a leaf
// holds up to Capacity points, and a full leaf splits into four equal
// quadrants the first time it overflows. After a split the region holds no
// points of its own.
type QuadTree struct {
	root *quad
	opts Options
	size int
}

// NewQuadTree returns an empty tree covering bound.
func NewQuadTree(bound orb.Bound, opts ...Option) *QuadTree {
	o := Options{
		Capacity:     DefaultCapacity,
		SearchRadius: DefaultSearchRadius,
		MaxDepth:     DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &QuadTree{
		root: &quad{bound: bound},
		opts: o,
	}
}

// Bound returns the root region.
func (t *QuadTree) Bound() orb.Bound { return t.root.bound }

// Len returns the number of stored entries.
func (t *QuadTree) Len() int { return t.size }

// Insert stores e. Points outside the root region are rejected without
// touching the tree.
func (t *QuadTree) Insert(e Entry) bool {
	if !t.root.insert(e, &t.opts) {
		return false
	}
	t.size++
	return true
}

func (q *quad) insert(e Entry, o *Options) bool {
	if !contains(q.bound, e.Point) {
		return false
	}
	if q.children == nil {
		if len(q.points) < o.Capacity || q.depth >= o.MaxDepth {
			q.points = append(q.points, e)
			return true
		}
		q.split(o)
	}
	for _, c := range q.children {
		if c.insert(e, o) {
			return true
		}
	}
	// Unreachable: the four half-open quadrants tile the parent.
	return false
}

func (q *quad) split(o *Options) {
	lo, hi := q.bound.Min, q.bound.Max
	mid := orb.Point{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2}

	var children [4]*quad
	children[nw] = &quad{bound: orb.Bound{Min: lo, Max: mid}}
	children[ne] = &quad{bound: orb.Bound{Min: orb.Point{mid[0], lo[1]}, Max: orb.Point{hi[0], mid[1]}}}
	children[sw] = &quad{bound: orb.Bound{Min: orb.Point{lo[0], mid[1]}, Max: orb.Point{mid[0], hi[1]}}}
	children[se] = &quad{bound: orb.Bound{Min: mid, Max: hi}}
	for _, c := range children {
		c.depth = q.depth + 1
	}
	q.children = &children

	points := q.points
	q.points = nil
	for _, p := range points {
		for _, c := range q.children {
			if c.insert(p, o) {
				break
			}
		}
	}
}

// Nearest returns the closest entry to (x, y) within the configured search
// window.
func (t *QuadTree) Nearest(x, y float64) (Entry, bool) {
	return t.NearestWithin(x, y, t.opts.SearchRadius)
}

// NearestWithin returns the closest entry to (x, y) among the entries inside
// the closed window [x-r, x+r] × [y-r, y+r]. Ties go to the entry found
// first in traversal order.
func (t *QuadTree) NearestWithin(x, y, r float64) (Entry, bool) {
	s := nearestSearch{
		x:    x,
		y:    y,
		win:  window(x, y, r),
		best: math.Inf(1),
	}
	s.visit(t.root)
	return s.entry, s.found
}

type nearestSearch struct {
	x, y  float64
	win   orb.Bound
	entry Entry
	best  float64
	found bool
}

func (s *nearestSearch) visit(q *quad) {
	if !overlapsWindow(q.bound, s.win) {
		return
	}
	if s.found && boundDistance(q.bound, s.x, s.y) >= s.best {
		return
	}

	for _, e := range q.points {
		if !inWindow(s.win, e.Point) {
			continue
		}
		if d := distance(e.Point, s.x, s.y); d < s.best {
			s.entry, s.best, s.found = e, d, true
		}
	}

	if q.children != nil {
		for _, c := range q.children {
			s.visit(c)
		}
	}
}

// overlapsWindow reports whether half-open region b can hold a point of the
// closed window w.
func overlapsWindow(b, w orb.Bound) bool {
	return b.Min[0] <= w.Max[0] && b.Max[0] > w.Min[0] &&
		b.Min[1] <= w.Max[1] && b.Max[1] > w.Min[1]
}

// boundDistance is the distance from (x, y) to the closest point of b,
// zero when inside. Computed the same way as planar.Distance so it never
// exceeds the distance to a point inside b.
func boundDistance(b orb.Bound, x, y float64) float64 {
	dx := math.Max(math.Max(b.Min[0]-x, 0), x-b.Max[0])
	dy := math.Max(math.Max(b.Min[1]-y, 0), y-b.Max[1])
	return math.Sqrt(dx*dx + dy*dy)
}

// Depth returns the depth of the deepest region, for stats.
func (t *QuadTree) Depth() int {
	var walk func(q *quad) int
	walk = func(q *quad) int {
		d := q.depth
		if q.children != nil {
			for _, c := range q.children {
				d = max(d, walk(c))
			}
		}
		return d
	}
	return walk(t.root)
}
