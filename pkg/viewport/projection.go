// Package viewport maps geographic coordinates to screen space and resolves
// screen points back to graph nodes.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"street_router/pkg/graph"
)

// ErrInvalidSize is returned for a viewport without positive width and height.
var ErrInvalidSize = errors.New("invalid viewport size")

// fill is the share of the window the map occupies along its tighter axis.
const fill = 0.85

// Projection is a uniform-scale equirectangular projection of a lon/lat bound
// onto a width×height screen. The map is centered and y grows downward.
type Projection struct {
	bounds        orb.Bound
	width, height int
	scale         float64 // pixels per degree
	offX, offY    float64
}

// NewProjection fits bounds (X = longitude, Y = latitude) into the screen.
func NewProjection(bounds orb.Bound, width, height int) (Projection, error) {
	if width <= 0 || height <= 0 {
		return Projection{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	lonSpan := bounds.Max[0] - bounds.Min[0]
	latSpan := bounds.Max[1] - bounds.Min[1]

	scale := math.Inf(1)
	if lonSpan > 0 {
		scale = fill * float64(width) / lonSpan
	}
	if latSpan > 0 {
		scale = math.Min(scale, fill*float64(height)/latSpan)
	}
	if math.IsInf(scale, 1) {
		// Single point or empty graph.
		scale = 1
	}

	return Projection{
		bounds: bounds,
		width:  width,
		height: height,
		scale:  scale,
		offX:   (float64(width) - lonSpan*scale) / 2,
		offY:   (float64(height) - latSpan*scale) / 2,
	}, nil
}

// Project returns the screen position of (lat, lon).
func (p Projection) Project(lat, lon float64) orb.Point {
	x := (lon-p.bounds.Min[0])*p.scale + p.offX
	y := float64(p.height) - (lat-p.bounds.Min[1])*p.scale - p.offY
	return orb.Point{x, y}
}

// Unproject returns the (lat, lon) under screen position pt.
func (p Projection) Unproject(pt orb.Point) (lat, lon float64) {
	lon = (pt[0]-p.offX)/p.scale + p.bounds.Min[0]
	lat = (float64(p.height)-pt[1]-p.offY)/p.scale + p.bounds.Min[1]
	return lat, lon
}

// Screen returns the screen rectangle [0, width) × [0, height).
func (p Projection) Screen() orb.Bound {
	return orb.Bound{Max: orb.Point{float64(p.width), float64(p.height)}}
}

// Size returns the screen size in pixels.
func (p Projection) Size() (width, height int) { return p.width, p.height }

// Scale returns pixels per degree.
func (p Projection) Scale() float64 { return p.scale }

// Table holds projected positions keyed by node handle. Only nodes registered
// at build time have a position.
type Table struct {
	points []orb.Point
	ok     []bool
	nodes  []graph.NodeID
}

// NewTable projects every registered intersection of g.
func NewTable(g *graph.Graph, proj Projection) *Table {
	t := &Table{
		points: make([]orb.Point, g.NumNodes()),
		ok:     make([]bool, g.NumNodes()),
		nodes:  g.Registered(),
	}
	for _, h := range t.nodes {
		n := g.Node(h)
		t.points[h] = proj.Project(n.Lat, n.Lon)
		t.ok[h] = true
	}
	return t
}

// Position returns the projected position of n.
func (t *Table) Position(n graph.NodeID) (orb.Point, bool) {
	if int(n) >= len(t.points) || !t.ok[n] {
		return orb.Point{}, false
	}
	return t.points[n], true
}

// Nodes returns the handles with a position, in handle order.
func (t *Table) Nodes() []graph.NodeID { return t.nodes }
