package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"street_router/pkg/graph"
)

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.AddNode("A", 43.1284, -77.6307)
	g.AddNode("B", 43.1566, -77.6088)
	g.AddNode("C", 43.1301, -77.6201)
	for _, r := range [][3]string{{"AB", "A", "B"}, {"BC", "B", "C"}, {"CA", "C", "A"}} {
		_, err := g.AddRoad(r[0], r[1], r[2])
		require.NoError(t, err)
	}
	// Redeclare C: the old C keeps its two roads, the new C is isolated.
	g.AddNode("C", 10, 10)
	return g
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestGraph(t)

	path := filepath.Join(t.TempDir(), "test.graph.bin")
	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)

	require.Equal(t, original.NumNodes(), loaded.NumNodes())
	require.Equal(t, original.NumEdges(), loaded.NumEdges())
	assert.Equal(t, original.Intersections(), loaded.Intersections())
	assert.Equal(t, original.Registered(), loaded.Registered())

	for i := 0; i < original.NumNodes(); i++ {
		h := graph.NodeID(i)
		assert.Equal(t, *original.Node(h), *loaded.Node(h), "node %d", i)
	}
	for i := 0; i < original.NumEdges(); i++ {
		h := graph.EdgeID(i)
		assert.Equal(t, *original.Edge(h), *loaded.Edge(h), "edge %d", i)
	}

	c, ok := loaded.Find("C")
	require.True(t, ok)
	assert.Equal(t, 10.0, loaded.Node(c).Lat)
}

func TestBinaryShadowedEdgeID(t *testing.T) {
	g := graph.New()
	g.AddNode("A", 0, 0)
	g.AddNode("B", 0, 1)
	g.AddNode("C", 1, 1)
	_, err := g.AddRoad("R", "A", "B")
	require.NoError(t, err)
	latest, err := g.AddRoad("R", "B", "C")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "shadow.bin")
	require.NoError(t, graph.WriteBinary(path, g))
	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)

	got, ok := loaded.FindEdge("R")
	require.True(t, ok)
	assert.Equal(t, latest, got)
	assert.Equal(t, 1, loaded.Roads())
	assert.Equal(t, 2, loaded.NumEdges())
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graph.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOT_STRTMAP_HEADER_BLAH_BLAH_MORE_DATA"), 0644))

	_, err := graph.ReadBinary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestBinaryTruncatedFile(t *testing.T) {
	original := buildTestGraph(t)
	path := filepath.Join(t.TempDir(), "truncated.graph.bin")
	require.NoError(t, graph.WriteBinary(path, original))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0644))

	_, err = graph.ReadBinary(path)
	assert.Error(t, err)
}

func TestBinaryMissingFile(t *testing.T) {
	_, err := graph.ReadBinary(filepath.Join(t.TempDir(), "none.bin"))
	assert.Error(t, err)
}
