package routing

import (
	"context"
	"fmt"

	"street_router/pkg/graph"
)

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, fromID, toID string) (*Path, error)
}

// Engine implements Router with plain Dijkstra over a read-only graph.
// Each query allocates its own Search, so an Engine is safe for concurrent use.
type Engine struct {
	g *graph.Graph
}

// NewEngine creates a routing engine over g. The graph must not be modified
// while queries are running.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g}
}

// Graph returns the graph the engine routes over.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Route computes the shortest path between two intersections by id.
// An unknown source fails with ErrInvalidSource and an unknown target with
// graph.ErrUnknownIntersection. An unreachable target is not an error.
func (e *Engine) Route(ctx context.Context, fromID, toID string) (*Path, error) {
	source, ok := e.g.Find(fromID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown intersection %q", ErrInvalidSource, fromID)
	}
	target, ok := e.g.Find(toID)
	if !ok {
		return nil, fmt.Errorf("route to %q: %w", toID, graph.ErrUnknownIntersection)
	}
	return e.ShortestPath(ctx, source, target)
}

// ShortestPath computes the shortest path between two node handles.
func (e *Engine) ShortestPath(ctx context.Context, source, target graph.NodeID) (*Path, error) {
	s, err := e.From(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.PathTo(target), nil
}

// From runs a full single-source search. The returned Search answers
// PathTo for any number of targets without recomputation.
func (e *Engine) From(ctx context.Context, source graph.NodeID) (*Search, error) {
	s := NewSearch(e.g)
	if err := s.Run(ctx, source); err != nil {
		return nil, err
	}
	return s, nil
}
