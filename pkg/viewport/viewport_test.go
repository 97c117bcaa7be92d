package viewport

import (
	"fmt"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"street_router/pkg/graph"
)

func cityGraph(t testing.TB, n int) *graph.Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(77))
	g := graph.New()
	for i := range n {
		g.AddNode(fmt.Sprintf("i%d", i), 43.10+rng.Float64()*0.08, -77.68+rng.Float64()*0.12)
	}
	return g
}

func TestProjectionFitsScreen(t *testing.T) {
	g := cityGraph(t, 500)
	for _, size := range [][2]int{{800, 600}, {600, 800}, {1, 1}, {1920, 200}} {
		proj, err := NewProjection(g.Bounds(), size[0], size[1])
		require.NoError(t, err)
		screen := proj.Screen()

		for _, h := range g.Registered() {
			n := g.Node(h)
			p := proj.Project(n.Lat, n.Lon)
			assert.True(t, p[0] >= 0 && p[0] < screen.Max[0] && p[1] >= 0 && p[1] < screen.Max[1],
				"%dx%d: %s projected to %v", size[0], size[1], n.ID, p)
		}
	}
}

func TestProjectionOrientationAndInverse(t *testing.T) {
	bounds := orb.Bound{Min: orb.Point{-78, 43}, Max: orb.Point{-77, 44}}
	proj, err := NewProjection(bounds, 1000, 500)
	require.NoError(t, err)

	// The latitude span limits the scale: 0.85 * 500 px per degree.
	assert.InDelta(t, 425.0, proj.Scale(), 1e-9)

	sw := proj.Project(43, -78)
	ne := proj.Project(44, -77)
	assert.Less(t, sw[0], ne[0], "east is right")
	assert.Greater(t, sw[1], ne[1], "north is up")

	center := proj.Project(43.5, -77.5)
	assert.InDelta(t, 500, center[0], 1e-9)
	assert.InDelta(t, 250, center[1], 1e-9)

	lat, lon := proj.Unproject(orb.Point{123, 321})
	back := proj.Project(lat, lon)
	assert.InDelta(t, 123, back[0], 1e-9)
	assert.InDelta(t, 321, back[1], 1e-9)
}

func TestProjectionDegenerate(t *testing.T) {
	_, err := NewProjection(orb.Bound{}, 0, 600)
	require.ErrorIs(t, err, ErrInvalidSize)

	p := orb.Point{-77.6, 43.1}
	proj, err := NewProjection(orb.Bound{Min: p, Max: p}, 800, 600)
	require.NoError(t, err)
	got := proj.Project(43.1, -77.6)
	assert.Equal(t, orb.Point{400, 300}, got)
}

func TestTableSkipsShadowedNodes(t *testing.T) {
	g := graph.New()
	old := g.AddNode("A", 43.1, -77.6)
	cur := g.AddNode("A", 43.2, -77.5)
	g.AddNode("B", 43.0, -77.7)

	proj, err := NewProjection(g.Bounds(), 800, 600)
	require.NoError(t, err)
	table := NewTable(g, proj)

	_, ok := table.Position(old)
	assert.False(t, ok)
	_, ok = table.Position(cur)
	assert.True(t, ok)
	_, ok = table.Position(graph.NoNode)
	assert.False(t, ok)
	assert.Len(t, table.Nodes(), 2)
}

func TestLocatorResolvesProjectedNodes(t *testing.T) {
	g := cityGraph(t, 300)
	for _, backend := range []Backend{QuadTree, RTree} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			loc, err := NewLocator(g, cfg, 1024, 768)
			require.NoError(t, err)
			assert.Equal(t, 300, loc.Indexed())

			for _, h := range g.Registered() {
				p, ok := loc.Position(h)
				require.True(t, ok)
				got, ok := loc.Nearest(p[0], p[1])
				require.True(t, ok)
				// Another node may sit on the same pixel; it must be at least as close.
				q, _ := loc.Position(got)
				assert.Equal(t, p, q, "node %d resolved to %d", h, got)
			}

			_, ok := loc.Nearest(-500, -500)
			assert.False(t, ok)
		})
	}
}

func TestLocatorResize(t *testing.T) {
	g := cityGraph(t, 100)
	loc, err := NewLocator(g, DefaultConfig(), 800, 600)
	require.NoError(t, err)

	h := g.Registered()[0]
	before, _ := loc.Position(h)

	require.NoError(t, loc.Resize(1600, 1200))
	w, hgt := loc.Size()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, hgt)

	after, _ := loc.Position(h)
	assert.NotEqual(t, before, after)
	got, ok := loc.Nearest(after[0], after[1])
	require.True(t, ok)
	q, _ := loc.Position(got)
	assert.Equal(t, after, q)

	// A failed resize keeps the previous viewport.
	require.ErrorIs(t, loc.Resize(0, 10), ErrInvalidSize)
	w, _ = loc.Size()
	assert.Equal(t, 1600, w)
}

func TestLocatorConcurrentResize(t *testing.T) {
	g := cityGraph(t, 200)
	loc, err := NewLocator(g, DefaultConfig(), 800, 600)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				_ = loc.Resize(400+100*i, 300+50*j)
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				w, h := loc.Size()
				loc.Nearest(float64(w)/2, float64(h)/2)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, loc.Indexed())
}

func TestNewLocatorUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "kdtree"
	_, err := NewLocator(graph.New(), cfg, 10, 10)
	assert.Error(t, err)
}
