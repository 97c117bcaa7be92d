package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"street_router/pkg/mapfile"
)

// Format selects the OSM encoding of the input.
type Format int

const (
	PBF Format = iota
	XML
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	// Direction changes by time of day; never usable as a plain two-way road.
	if tags.Find("oneway") == "reversible" {
		return false
	}

	return true
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Format Format
	// BBox, if non-empty, keeps only road segments with both endpoints
	// inside it. X is longitude, Y is latitude.
	BBox orb.Bound
}

func (o ParseOptions) useBBox() bool {
	return o.BBox != (orb.Bound{})
}

func newScanner(ctx context.Context, r io.Reader, format Format, ways bool) osm.Scanner {
	if format == XML {
		return osmxml.New(ctx, r)
	}
	s := osmpbf.New(ctx, r, 1)
	s.SkipNodes = ways
	s.SkipWays = !ways
	s.SkipRelations = true
	return s
}

// Parse reads OSM data and returns map records for the drivable road network.
// Every node referenced by a drivable way becomes an intersection named by its
// OSM node id, and every consecutive node pair of a way becomes a road named
// "<way id>-<segment index>". Intersections are emitted before roads.
//
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*mapfile.ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	// Pass 1: Scan ways to collect referenced node IDs.
	type wayInfo struct {
		ID      osm.WayID
		NodeIDs []osm.NodeID
	}
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := newScanner(ctx, rs, opt.Format, true)
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{ID: w.ID, NodeIDs: nodeIDs})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]orb.Point, len(referencedNodes))
	scanner = newScanner(ctx, rs, opt.Format, false)
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		coords[n.ID] = n.Point()
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(coords))

	// Build records from ways.
	type segment struct {
		id       string
		from, to osm.NodeID
	}
	var segments []segment
	var skippedEdges, bboxFiltered int
	emitted := make(map[osm.NodeID]struct{})
	result := &mapfile.ParseResult{}

	addIntersection := func(id osm.NodeID) {
		if _, done := emitted[id]; done {
			return
		}
		emitted[id] = struct{}{}
		p := coords[id]
		result.AddIntersection(nodeName(id), p.Lat(), p.Lon())
	}

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]
			if fromID == toID {
				continue
			}

			from, fromOk := coords[fromID]
			to, toOk := coords[toID]
			if !fromOk || !toOk {
				skippedEdges++
				continue
			}

			// Bounding box filter: skip segments with any endpoint outside.
			if opt.useBBox() && (!opt.BBox.Contains(from) || !opt.BBox.Contains(to)) {
				bboxFiltered++
				continue
			}

			addIntersection(fromID)
			addIntersection(toID)
			segments = append(segments, segment{
				id:   fmt.Sprintf("%d-%d", w.ID, i),
				from: fromID,
				to:   toID,
			})
		}
	}

	for _, s := range segments {
		result.AddRoad(s.id, nodeName(s.from), nodeName(s.to))
	}

	if skippedEdges > 0 {
		log.Printf("Warning: skipped %d segments due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d segments outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d intersections, %d roads", result.NumIntersections(), result.NumRoads())

	return result, nil
}

func nodeName(id osm.NodeID) string {
	return strconv.FormatInt(int64(id), 10)
}
