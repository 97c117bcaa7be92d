package graph

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"street_router/pkg/geo"
)

// NodeID is a stable handle into the node arena.
type NodeID uint32

// EdgeID is a stable handle into the edge arena.
type EdgeID uint32

const (
	NoNode NodeID = ^NodeID(0) // sentinel for "no node"
	NoEdge EdgeID = ^EdgeID(0) // sentinel for "no edge"
)

var (
	// ErrNodeNotFound is returned when an edge endpoint handle is not in the arena.
	ErrNodeNotFound = errors.New("node not found")
	// ErrUnknownIntersection is returned when a road references an undeclared intersection id.
	ErrUnknownIntersection = errors.New("unknown intersection")
	// ErrUnaddressable is returned when a shadowed node has no registered
	// node under its id, so no map file can declare it.
	ErrUnaddressable = errors.New("shadowed intersection has no registered id")
)

// Node is an intersection. Identity and coordinates never change after AddNode.
type Node struct {
	ID  string
	Lat float64
	Lon float64

	edges []EdgeID
}

// Edge is an undirected road between A and B. Weight is the great-circle
// distance in meters between the endpoints, fixed when the edge is added.
type Edge struct {
	ID     string
	A      NodeID
	B      NodeID
	Weight float64
}

// Graph is an undirected road graph. Nodes and edges live in arenas addressed
// by handle; adjacency lists hold edge handles and edges hold endpoint
// handles, so there are no pointer cycles and the graph is safe for
// concurrent readers once loading is done.
type Graph struct {
	nodes []Node
	edges []Edge

	nodeIndex map[string]NodeID
	edgeIndex map[string]EdgeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodeIndex: make(map[string]NodeID),
		edgeIndex: make(map[string]EdgeID),
	}
}

// AddNode registers an intersection and returns its handle.
//
// Ids are last-write-wins: redeclaring an id allocates a new node and points
// the id at it. The shadowed node stays in the arena together with any edges
// that were attached to it before the redeclaration.
func (g *Graph) AddNode(id string, lat, lon float64) NodeID {
	return g.addNode(id, lat, lon, true)
}

func (g *Graph) addNode(id string, lat, lon float64, register bool) NodeID {
	h := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, Lat: lat, Lon: lon})
	if register {
		g.nodeIndex[id] = h
	}
	return h
}

// AddEdge connects a and b with an undirected edge weighted by their
// great-circle distance. Both endpoints must already be in the graph.
// Edge ids are last-write-wins in the id map, like node ids.
func (g *Graph) AddEdge(id string, a, b NodeID) (EdgeID, error) {
	if !g.valid(a) {
		return NoEdge, fmt.Errorf("edge %s: endpoint %d: %w", id, a, ErrNodeNotFound)
	}
	if !g.valid(b) {
		return NoEdge, fmt.Errorf("edge %s: endpoint %d: %w", id, b, ErrNodeNotFound)
	}
	na, nb := &g.nodes[a], &g.nodes[b]
	return g.addEdge(id, a, b, geo.Haversine(na.Lat, na.Lon, nb.Lat, nb.Lon)), nil
}

// AddRoad is AddEdge keyed by intersection ids.
func (g *Graph) AddRoad(id, fromID, toID string) (EdgeID, error) {
	a, ok := g.Find(fromID)
	if !ok {
		return NoEdge, fmt.Errorf("road %s: %w %q", id, ErrUnknownIntersection, fromID)
	}
	b, ok := g.Find(toID)
	if !ok {
		return NoEdge, fmt.Errorf("road %s: %w %q", id, ErrUnknownIntersection, toID)
	}
	return g.AddEdge(id, a, b)
}

// addEdge wires an edge with a known weight. Callers validate a and b.
func (g *Graph) addEdge(id string, a, b NodeID, weight float64) EdgeID {
	h := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{ID: id, A: a, B: b, Weight: weight})
	g.nodes[a].edges = append(g.nodes[a].edges, h)
	if b != a {
		g.nodes[b].edges = append(g.nodes[b].edges, h)
	}
	g.edgeIndex[id] = h
	return h
}

// Find returns the node currently registered under id.
func (g *Graph) Find(id string) (NodeID, bool) {
	h, ok := g.nodeIndex[id]
	return h, ok
}

// FindEdge returns the edge currently registered under id.
func (g *Graph) FindEdge(id string) (EdgeID, bool) {
	h, ok := g.edgeIndex[id]
	return h, ok
}

// Node returns the node for handle h. h must be valid.
func (g *Graph) Node(h NodeID) *Node {
	return &g.nodes[h]
}

// Edge returns the edge for handle h. h must be valid.
func (g *Graph) Edge(h EdgeID) *Edge {
	return &g.edges[h]
}

// EdgesOf returns the handles of the edges incident to n.
// The slice is owned by the graph and must not be modified.
func (g *Graph) EdgesOf(n NodeID) []EdgeID {
	return g.nodes[n].edges
}

// Other returns the endpoint of e opposite n, or NoNode if n is not an endpoint.
func (g *Graph) Other(e EdgeID, n NodeID) NodeID {
	edge := &g.edges[e]
	switch n {
	case edge.A:
		return edge.B
	case edge.B:
		return edge.A
	}
	return NoNode
}

// Valid reports whether h addresses a node in the arena.
func (g *Graph) Valid(h NodeID) bool {
	return g.valid(h)
}

func (g *Graph) valid(h NodeID) bool {
	return h != NoNode && int(h) < len(g.nodes)
}

// NumNodes returns the arena size, including shadowed redeclarations.
// Handles are always < NumNodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges in the arena.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Intersections returns the number of distinct registered intersection ids.
func (g *Graph) Intersections() int { return len(g.nodeIndex) }

// Roads returns the number of distinct registered road ids.
func (g *Graph) Roads() int { return len(g.edgeIndex) }

// Registered returns the handles currently reachable through Find, in
// handle order.
func (g *Graph) Registered() []NodeID {
	out := make([]NodeID, 0, len(g.nodeIndex))
	for i := range g.nodes {
		h := NodeID(i)
		if g.nodeIndex[g.nodes[i].ID] == h {
			out = append(out, h)
		}
	}
	return out
}

// Bounds returns the lon/lat bounding box of the registered intersections
// (X = longitude, Y = latitude). The zero Bound is returned for an empty graph.
func (g *Graph) Bounds() orb.Bound {
	var b orb.Bound
	first := true
	for _, h := range g.nodeIndex {
		n := &g.nodes[h]
		p := orb.Point{n.Lon, n.Lat}
		if first {
			b = orb.Bound{Min: p, Max: p}
			first = false
			continue
		}
		b = b.Extend(p)
	}
	return b
}
