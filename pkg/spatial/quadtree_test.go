package spatial

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"street_router/pkg/graph"
)

var screen = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{800, 600}}

func randomEntries(rng *rand.Rand, n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Node:  graph.NodeID(i),
			Point: orb.Point{rng.Float64() * 800, rng.Float64() * 600},
		}
	}
	return entries
}

func TestQuadTreeMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	entries := randomEntries(rng, 1500)

	for _, capacity := range []int{1, 2, 4, 16, 128} {
		for _, radius := range []float64{DefaultSearchRadius, 60, 1000} {
			for order := range 3 {
				name := fmt.Sprintf("cap=%d/r=%v/order=%d", capacity, radius, order)
				t.Run(name, func(t *testing.T) {
					qt := NewQuadTree(screen, WithCapacity(capacity), WithSearchRadius(radius))
					ref := NewLinearScan(screen, radius)
					for _, i := range rng.Perm(len(entries)) {
						require.True(t, qt.Insert(entries[i]))
						require.True(t, ref.Insert(entries[i]))
					}
					require.Equal(t, ref.Len(), qt.Len())

					for range 300 {
						x := rng.Float64()*840 - 20
						y := rng.Float64()*640 - 20
						want, wantOK := ref.Nearest(x, y)
						got, gotOK := qt.Nearest(x, y)
						require.Equal(t, wantOK, gotOK, "query (%v, %v)", x, y)
						assert.Equal(t, want, got, "query (%v, %v)", x, y)
					}
				})
			}
		}
	}
}

func TestRTreeMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	entries := randomEntries(rng, 1000)

	for _, radius := range []float64{DefaultSearchRadius, 80} {
		rt := NewRTree(screen, radius)
		ref := NewLinearScan(screen, radius)
		for _, e := range entries {
			require.True(t, rt.Insert(e))
			ref.Insert(e)
		}
		assert.Equal(t, len(entries), rt.Len())

		for range 500 {
			x, y := rng.Float64()*800, rng.Float64()*600
			want, wantOK := ref.Nearest(x, y)
			got, gotOK := rt.Nearest(x, y)
			require.Equal(t, wantOK, gotOK)
			assert.Equal(t, want, got)
		}
	}
}

func TestInsertOutsideBoundIsNoOp(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}
	for name, idx := range map[string]Index{
		"quadtree": NewQuadTree(bound, WithCapacity(1)),
		"rtree":    NewRTree(bound, DefaultSearchRadius),
		"linear":   NewLinearScan(bound, DefaultSearchRadius),
	} {
		t.Run(name, func(t *testing.T) {
			require.True(t, idx.Insert(Entry{Node: 1, Point: orb.Point{50, 50}}))

			// Max edges are excluded; so is anything beyond the bound.
			for _, p := range []orb.Point{{100, 50}, {50, 100}, {100, 100}, {-0.001, 5}, {105, 50}} {
				assert.False(t, idx.Insert(Entry{Node: 2, Point: p}), "point %v", p)
			}
			assert.Equal(t, 1, idx.Len())

			_, ok := idx.Nearest(100, 50)
			assert.False(t, ok, "rejected point must not answer queries")

			got, ok := idx.Nearest(52, 50)
			require.True(t, ok)
			assert.Equal(t, graph.NodeID(1), got.Node)

			// Min edges are included.
			assert.True(t, idx.Insert(Entry{Node: 3, Point: orb.Point{0, 0}}))
			assert.True(t, idx.Insert(Entry{Node: 4, Point: orb.Point{99.999, 99.999}}))
		})
	}
}

func TestQuadTreeRejectedInsertDoesNotSplit(t *testing.T) {
	qt := NewQuadTree(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}, WithCapacity(1))
	require.True(t, qt.Insert(Entry{Node: 0, Point: orb.Point{1, 1}}))
	assert.False(t, qt.Insert(Entry{Node: 1, Point: orb.Point{20, 20}}))
	assert.Nil(t, qt.root.children)
	assert.Zero(t, qt.Depth())
}

func TestEmptyIndex(t *testing.T) {
	qt := NewQuadTree(screen)
	_, ok := qt.Nearest(400, 300)
	assert.False(t, ok)
	assert.Zero(t, qt.Len())

	_, ok = NewRTree(screen, DefaultSearchRadius).Nearest(400, 300)
	assert.False(t, ok)
}

func TestNearestWindow(t *testing.T) {
	qt := NewQuadTree(screen)
	qt.Insert(Entry{Node: 1, Point: orb.Point{110, 110}})
	qt.Insert(Entry{Node: 2, Point: orb.Point{110.5, 100}})

	// (110, 110) sits on the window corner; (110.5, 100) is closer in
	// euclidean terms but outside the window.
	got, ok := qt.Nearest(100, 100)
	require.True(t, ok)
	assert.Equal(t, graph.NodeID(1), got.Node)

	_, ok = qt.Nearest(50, 50)
	assert.False(t, ok, "nothing within the window")

	got, ok = qt.NearestWithin(100, 100, 11)
	require.True(t, ok)
	assert.Equal(t, graph.NodeID(2), got.Node)
}

func TestQuadTreeSplit(t *testing.T) {
	qt := NewQuadTree(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}})
	points := []orb.Point{{10, 10}, {60, 10}, {10, 60}, {60, 60}}
	for i, p := range points {
		require.True(t, qt.Insert(Entry{Node: graph.NodeID(i), Point: p}))
	}
	require.Nil(t, qt.root.children, "still under capacity")
	assert.Len(t, qt.root.points, 4)

	require.True(t, qt.Insert(Entry{Node: 4, Point: orb.Point{20, 20}}))
	require.NotNil(t, qt.root.children)
	assert.Empty(t, qt.root.points, "interior regions hold no points")

	c := qt.root.children
	assert.Len(t, c[nw].points, 2)
	assert.Len(t, c[ne].points, 1)
	assert.Len(t, c[sw].points, 1)
	assert.Len(t, c[se].points, 1)
	assert.Equal(t, orb.Point{50, 50}, c[se].bound.Min)

	// A point on the midlines belongs to the east/south quadrants.
	require.True(t, qt.Insert(Entry{Node: 5, Point: orb.Point{50, 50}}))
	assert.Len(t, c[se].points, 2)
	assert.Equal(t, 6, qt.Len())
}

func TestCoincidentPointsStopAtMaxDepth(t *testing.T) {
	qt := NewQuadTree(screen, WithCapacity(2), WithMaxDepth(8))
	for i := range 50 {
		require.True(t, qt.Insert(Entry{Node: graph.NodeID(i), Point: orb.Point{123.25, 456.5}}))
	}
	assert.Equal(t, 50, qt.Len())
	assert.Equal(t, 8, qt.Depth())

	got, ok := qt.Nearest(125, 455)
	require.True(t, ok)
	assert.Equal(t, graph.NodeID(0), got.Node, "ties go to the first found")
}

func BenchmarkQuadTreeNearest(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	qt := NewQuadTree(screen)
	for _, e := range randomEntries(rng, 20_000) {
		qt.Insert(e)
	}

	for b.Loop() {
		qt.Nearest(rng.Float64()*800, rng.Float64()*600)
	}
}
