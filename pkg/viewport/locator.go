package viewport

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"street_router/pkg/graph"
	"street_router/pkg/spatial"
)

// Backend selects the spatial index implementation.
type Backend string

const (
	QuadTree Backend = "quadtree"
	RTree    Backend = "rtree"
)

// Config holds locator settings.
type Config struct {
	Backend      Backend
	SearchRadius float64 // pixels
	Capacity     int     // quad-tree leaf capacity
}

// DefaultConfig returns the quad-tree backend with a 20×20 pixel window.
func DefaultConfig() Config {
	return Config{
		Backend:      QuadTree,
		SearchRadius: spatial.DefaultSearchRadius,
		Capacity:     spatial.DefaultCapacity,
	}
}

// view is one immutable viewport snapshot.
type view struct {
	proj  Projection
	table *Table
	index spatial.Index
	built time.Duration
}

// Locator resolves screen points to graph nodes for the current viewport.
// Queries may run concurrently with Resize: a resize builds a complete new
// projection, table and index, then swaps them in at once, so a query sees
// either the old viewport or the new one.
type Locator struct {
	g   *graph.Graph
	cfg Config

	mu  sync.Mutex // serializes Resize
	cur atomic.Pointer[view]
}

// NewLocator builds the index for a width×height viewport over g.
func NewLocator(g *graph.Graph, cfg Config, width, height int) (*Locator, error) {
	switch cfg.Backend {
	case QuadTree, RTree:
	case "":
		cfg.Backend = QuadTree
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
	if cfg.SearchRadius <= 0 {
		cfg.SearchRadius = spatial.DefaultSearchRadius
	}

	l := &Locator{g: g, cfg: cfg}
	if err := l.Resize(width, height); err != nil {
		return nil, err
	}
	return l, nil
}

// Resize rebuilds the projection and spatial index for a new viewport size.
// On error the current viewport is kept.
func (l *Locator) Resize(width, height int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	proj, err := NewProjection(l.g.Bounds(), width, height)
	if err != nil {
		return err
	}
	table := NewTable(l.g, proj)
	index := l.newIndex(proj.Screen())

	var rejected int
	for _, h := range table.Nodes() {
		p, _ := table.Position(h)
		if !index.Insert(spatial.Entry{Node: h, Point: p}) {
			rejected++
		}
	}
	if rejected > 0 {
		log.Printf("Warning: %d intersections fell outside the %dx%d viewport", rejected, width, height)
	}

	v := &view{proj: proj, table: table, index: index, built: time.Since(start)}
	l.cur.Store(v)
	log.Printf("Viewport %dx%d: indexed %d intersections (%s) in %v",
		width, height, index.Len(), l.cfg.Backend, v.built)
	return nil
}

func (l *Locator) newIndex(screen orb.Bound) spatial.Index {
	if l.cfg.Backend == RTree {
		return spatial.NewRTree(screen, l.cfg.SearchRadius)
	}
	return spatial.NewQuadTree(screen,
		spatial.WithCapacity(l.cfg.Capacity),
		spatial.WithSearchRadius(l.cfg.SearchRadius))
}

// Nearest returns the intersection closest to screen point (x, y) within the
// search window.
func (l *Locator) Nearest(x, y float64) (graph.NodeID, bool) {
	e, ok := l.cur.Load().index.Nearest(x, y)
	if !ok {
		return graph.NoNode, false
	}
	return e.Node, true
}

// Position returns the screen position of n in the current viewport.
func (l *Locator) Position(n graph.NodeID) (orb.Point, bool) {
	return l.cur.Load().table.Position(n)
}

// Projection returns the current projection.
func (l *Locator) Projection() Projection { return l.cur.Load().proj }

// Size returns the current viewport size.
func (l *Locator) Size() (width, height int) { return l.cur.Load().proj.Size() }

// Indexed returns the number of intersections in the current index.
func (l *Locator) Indexed() int { return l.cur.Load().index.Len() }

// Backend returns the configured index backend.
func (l *Locator) Backend() Backend { return l.cfg.Backend }
