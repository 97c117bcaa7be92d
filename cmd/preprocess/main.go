package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"street_router/pkg/graph"
	"street_router/pkg/mapfile"
	osmparser "street_router/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf, .osm or map text file")
	format := flag.String("format", "auto", "Input format: auto, pbf, xml or map")
	output := flag.String("output", "graph.bin", "Output binary graph file path (empty = skip)")
	mapOut := flag.String("map-out", "", "Also write the graph as a map text file")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 43.10,-77.70,43.20,-77.55)")
	largest := flag.Bool("largest", false, "Keep only the largest connected component")
	flag.Parse()

	if *input == "" || (*output == "" && *mapOut == "") {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf|file.osm|map.txt> [--format auto|pbf|xml|map] [--output graph.bin] [--map-out map.txt] [--bbox minLat,minLng,maxLat,maxLng] [--largest]")
		os.Exit(1)
	}

	kind := *format
	if kind == "auto" {
		kind = detectFormat(*input)
	}

	var opts osmparser.ParseOptions
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng)
		if err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		if kind == "map" {
			log.Fatalf("--bbox applies to OSM input only")
		}
		opts.BBox = orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	// Step 1: Read records.
	var records *mapfile.ParseResult
	switch kind {
	case "map":
		log.Printf("Reading map file %s...", *input)
		var err error
		records, err = mapfile.ReadFile(*input)
		if err != nil {
			log.Fatalf("Failed to read map file: %v", err)
		}
	case "pbf", "xml":
		opts.Format = osmparser.PBF
		if kind == "xml" {
			opts.Format = osmparser.XML
		}
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input file: %v", err)
		}
		defer f.Close()

		log.Printf("Parsing OSM data (%s)...", kind)
		records, err = osmparser.Parse(context.Background(), f, opts)
		if err != nil {
			log.Fatalf("Failed to parse OSM data: %v", err)
		}
	default:
		log.Fatalf("Unknown format %q", kind)
	}
	log.Printf("Read %d intersections, %d roads", records.NumIntersections(), records.NumRoads())

	// Step 2: Build graph.
	log.Println("Building graph...")
	g, err := graph.Build(records)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	log.Printf("Graph: %d nodes, %d edges, %d components", g.NumNodes(), g.NumEdges(), graph.Components(g))

	// Step 3: Optionally extract the largest connected component.
	if *largest && g.Intersections() > 0 {
		log.Println("Extracting largest connected component...")
		componentNodes := graph.LargestComponent(g)
		log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.Intersections())*100)
		g = graph.FilterToComponent(g, componentNodes)
		log.Printf("Filtered graph: %d nodes, %d edges", g.NumNodes(), g.NumEdges())
	}

	// Step 4: Write outputs.
	if *output != "" {
		log.Printf("Writing binary to %s...", *output)
		if err := graph.WriteBinary(*output, g); err != nil {
			log.Fatalf("Failed to write binary: %v", err)
		}
		if info, err := os.Stat(*output); err == nil {
			log.Printf("Binary: %.1f MB", float64(info.Size())/(1024*1024))
		}
	}
	if *mapOut != "" {
		log.Printf("Writing map file to %s...", *mapOut)
		records, err := graph.Records(g)
		if err != nil {
			log.Fatalf("Failed to convert graph to map records: %v", err)
		}
		if err := mapfile.WriteFile(*mapOut, records); err != nil {
			log.Fatalf("Failed to write map file: %v", err)
		}
	}

	log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
}

func detectFormat(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".pbf"):
		return "pbf"
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		return "xml"
	default:
		return "map"
	}
}
