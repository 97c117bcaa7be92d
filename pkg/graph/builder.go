package graph

import (
	"fmt"

	"street_router/pkg/mapfile"
)

// Build creates a Graph from parsed map records, applied in file order.
// A road that references an intersection not declared before it aborts the
// build: no partially-built graph is ever returned.
func Build(result *mapfile.ParseResult) (*Graph, error) {
	g := New()
	if result == nil {
		return g, nil
	}

	// Pre-size the arenas from the record counts.
	numNodes := result.NumIntersections()
	g.nodes = make([]Node, 0, numNodes)
	g.edges = make([]Edge, 0, len(result.Records)-numNodes)

	for _, rec := range result.Records {
		switch {
		case rec.Intersection != nil:
			in := rec.Intersection
			g.AddNode(in.ID, in.Lat, in.Lon)
		case rec.Road != nil:
			r := rec.Road
			if _, err := g.AddRoad(r.ID, r.From, r.To); err != nil {
				if rec.Line > 0 {
					return nil, fmt.Errorf("line %d: %w", rec.Line, err)
				}
				return nil, err
			}
		}
	}

	return g, nil
}

// LoadFile parses the map file at path and builds its graph.
func LoadFile(path string) (*Graph, error) {
	result, err := mapfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(result)
}

// Records converts g back into map records that rebuild the same arena:
// every node and edge, shadowed ones included, with the same handles. Each
// road is emitted as soon as the nodes it and every earlier road touch are
// declared, so its endpoint ids resolve to the right handles and later
// redeclarations shadow them exactly as they did in g.
//
// A shadowed node whose id has no registered node cannot be declared
// without registering it; Records fails with ErrUnaddressable.
func Records(g *Graph) (*mapfile.ParseResult, error) {
	for h := range g.nodes {
		if _, ok := g.nodeIndex[g.nodes[h].ID]; !ok {
			return nil, fmt.Errorf("node %d %q: %w", h, g.nodes[h].ID, ErrUnaddressable)
		}
	}

	result := &mapfile.ParseResult{}
	next := 0 // next node to declare
	declare := func(upTo NodeID) {
		for ; next <= int(upTo); next++ {
			n := &g.nodes[next]
			result.AddIntersection(n.ID, n.Lat, n.Lon)
		}
	}
	for i := range g.edges {
		e := &g.edges[i]
		declare(max(e.A, e.B))
		result.AddRoad(e.ID, g.nodes[e.A].ID, g.nodes[e.B].ID)
	}
	if len(g.nodes) > 0 {
		declare(NodeID(len(g.nodes) - 1))
	}
	return result, nil
}
