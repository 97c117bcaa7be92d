package routing

import (
	"fmt"
	"math"
	"strings"

	"street_router/pkg/geo"
	"street_router/pkg/graph"
)

// Path is the result of a shortest-path query. Nodes runs from Source to
// Target and Edges[i] connects Nodes[i] and Nodes[i+1]. An unreachable target
// yields nil Nodes and Edges and an infinite Distance. Paths are not modified
// after construction.
type Path struct {
	Source graph.NodeID
	Target graph.NodeID

	Nodes    []graph.NodeID
	Edges    []graph.EdgeID
	Distance float64 // meters
}

// Found reports whether the target was reachable.
func (p *Path) Found() bool { return p.Nodes != nil }

// Miles returns the total distance in statute miles.
func (p *Path) Miles() float64 { return geo.MetersToMiles(p.Distance) }

// IDs returns the intersection ids along the path.
func (p *Path) IDs(g *graph.Graph) []string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = g.Node(n).ID
	}
	return ids
}

// RoadIDs returns the road ids along the path.
func (p *Path) RoadIDs(g *graph.Graph) []string {
	ids := make([]string, len(p.Edges))
	for i, e := range p.Edges {
		ids[i] = g.Edge(e).ID
	}
	return ids
}

// Summary renders the one-line route report:
//
//	path A -> B -> C, total distance 1234.57 m (0.77 mi)
//	no path between A and Z (total distance ∞)
func (p *Path) Summary(g *graph.Graph) string {
	if !p.Found() {
		return fmt.Sprintf("no path between %s and %s (total distance %s)",
			nodeName(g, p.Source), nodeName(g, p.Target), formatMeters(p.Distance))
	}
	return fmt.Sprintf("path %s, total distance %s m (%.2f mi)",
		strings.Join(p.IDs(g), " -> "), formatMeters(p.Distance), p.Miles())
}

func nodeName(g *graph.Graph, n graph.NodeID) string {
	if !g.Valid(n) {
		return "?"
	}
	return g.Node(n).ID
}

func formatMeters(m float64) string {
	if math.IsInf(m, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", m)
}
