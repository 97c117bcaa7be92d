package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"street_router/pkg/graph"
)

// ErrInvalidSource is returned when a search is started from a handle that is
// not in the graph.
var ErrInvalidSource = errors.New("invalid source node")

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap. Decreased distances are
// pushed again rather than updated in place; stale entries are filtered by the
// caller at pop time.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node graph.NodeID
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node graph.NodeID, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Search holds the traversal state of one single-source Dijkstra run:
// tentative distances, predecessors and the finalized set, keyed by node
// handle. The graph itself carries no traversal state, so any number of
// Searches may run against the same graph concurrently. A single Search is
// not safe for concurrent use.
type Search struct {
	g *graph.Graph

	dist     []float64
	pred     []graph.NodeID
	predEdge []graph.EdgeID
	settled  []bool
	touched  []graph.NodeID // nodes touched during this run (for fast reset)
	pq       MinHeap

	source graph.NodeID
}

// NewSearch allocates traversal state sized for g.
func NewSearch(g *graph.Graph) *Search {
	n := g.NumNodes()
	s := &Search{
		g:        g,
		dist:     make([]float64, n),
		pred:     make([]graph.NodeID, n),
		predEdge: make([]graph.EdgeID, n),
		settled:  make([]bool, n),
		touched:  make([]graph.NodeID, 0, 1024),
		pq:       MinHeap{items: make([]PQItem, 0, 256)},
		source:   graph.NoNode,
	}
	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.pred[i] = graph.NoNode
		s.predEdge[i] = graph.NoEdge
	}
	return s
}

// Reset returns every touched node to distance +Inf with no predecessor.
// Run calls it itself; it is exported for callers that want to drop a
// finished search's results early.
func (s *Search) Reset() {
	for _, n := range s.touched {
		s.dist[n] = math.Inf(1)
		s.pred[n] = graph.NoNode
		s.predEdge[n] = graph.NoEdge
		s.settled[n] = false
	}
	s.touched = s.touched[:0]
	s.pq.Reset()
	s.source = graph.NoNode
}

func (s *Search) touch(n graph.NodeID, dist float64) {
	if math.IsInf(s.dist[n], 1) {
		s.touched = append(s.touched, n)
	}
	s.dist[n] = dist
}

// has reports whether n has traversal slots. Nodes added to the graph after
// NewSearch have none and are treated as absent.
func (s *Search) has(n graph.NodeID) bool {
	return int(n) < len(s.dist) && s.g.Valid(n)
}

// Run computes shortest distances from source to every node reachable from
// it. Previous results are discarded first. The context is checked every 100
// pops; on cancellation the context error is returned and the search holds
// no results.
func (s *Search) Run(ctx context.Context, source graph.NodeID) error {
	s.Reset()
	if !s.has(source) {
		return fmt.Errorf("%w: handle %d", ErrInvalidSource, source)
	}

	s.touch(source, 0)
	s.pq.Push(source, 0)

	iterations := 0
	for s.pq.Len() > 0 {
		// Check context cancellation periodically.
		iterations++
		if iterations%100 == 0 {
			if err := ctx.Err(); err != nil {
				s.Reset()
				return err
			}
		}

		item := s.pq.Pop()
		u := item.Node
		if s.settled[u] {
			continue // stale entry
		}
		s.settled[u] = true
		d := item.Dist

		for _, e := range s.g.EdgesOf(u) {
			v := s.g.Other(e, u)
			if !s.has(v) || s.settled[v] {
				continue
			}
			newDist := d + s.g.Edge(e).Weight
			if newDist < s.dist[v] {
				s.touch(v, newDist)
				s.pred[v] = u
				s.predEdge[v] = e
				s.pq.Push(v, newDist)
			}
		}
	}

	s.source = source
	return nil
}

// Source returns the source of the last completed run, or NoNode.
func (s *Search) Source() graph.NodeID { return s.source }

// Distance returns the shortest distance in meters from the source to n,
// or +Inf if n is unreachable or no run has completed.
func (s *Search) Distance(n graph.NodeID) float64 {
	if !s.has(n) {
		return math.Inf(1)
	}
	return s.dist[n]
}

// Settled reports whether n was finalized by the last run.
func (s *Search) Settled(n graph.NodeID) bool {
	return s.has(n) && s.settled[n]
}

// PathTo reconstructs the path from the source to target by walking
// predecessor links back from the target. If the walk does not end at the
// source the target is unreachable and the Path has no nodes and an infinite
// distance.
func (s *Search) PathTo(target graph.NodeID) *Path {
	unreachable := &Path{Source: s.source, Target: target, Distance: math.Inf(1)}
	if s.source == graph.NoNode || !s.has(target) || math.IsInf(s.dist[target], 1) {
		return unreachable
	}

	nodes := []graph.NodeID{target}
	var edges []graph.EdgeID
	n := target
	for s.pred[n] != graph.NoNode {
		edges = append(edges, s.predEdge[n])
		n = s.pred[n]
		nodes = append(nodes, n)
	}
	if n != s.source {
		return unreachable
	}

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	// Summing source to target repeats the additions Run made, so the result
	// matches Distance(target) exactly.
	var total float64
	for _, e := range edges {
		total += s.g.Edge(e).Weight
	}

	return &Path{
		Source:   s.source,
		Target:   target,
		Nodes:    nodes,
		Edges:    edges,
		Distance: total,
	}
}
