package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"street_router/pkg/graph"
	"street_router/pkg/routing"
	"street_router/pkg/viewport"
)

const usage = "Usage: streetmap <map.txt|graph.bin> [--directions <from> <to>] [--locate x,y [--width 1024 --height 768 --index quadtree]]"

func main() {
	fs := flag.NewFlagSet("streetmap", flag.ExitOnError)
	directions := fs.Bool("directions", false, "Print the shortest path between the two intersection ids that follow")
	locate := fs.String("locate", "", "Print the intersection nearest to screen point x,y")
	width := fs.Int("width", 1024, "Viewport width in pixels for --locate")
	height := fs.Int("height", 768, "Viewport height in pixels for --locate")
	index := fs.String("index", string(viewport.QuadTree), "Spatial index backend for --locate: quadtree or rtree")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, usage); fs.PrintDefaults() }

	// Flags may appear anywhere among the positional arguments.
	var args []string
	rest := os.Args[1:]
	for {
		fs.Parse(rest)
		if fs.NArg() == 0 {
			break
		}
		args = append(args, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	g, err := loadGraph(args[0])
	if err != nil {
		log.Fatalf("Failed to load map: %v", err)
	}
	log.Printf("Loaded %s: %d intersections, %d roads", args[0], g.Intersections(), g.Roads())

	if *directions {
		if len(args) != 3 {
			log.Fatalf("--directions needs two intersection ids, got %d", len(args)-1)
		}
		engine := routing.NewEngine(g)
		path, err := engine.Route(context.Background(), args[1], args[2])
		if err != nil {
			log.Fatalf("Failed to route %s -> %s: %v", args[1], args[2], err)
		}
		fmt.Println(path.Summary(g))
	}

	if *locate != "" {
		var x, y float64
		if _, err := fmt.Sscanf(*locate, "%f,%f", &x, &y); err != nil {
			log.Fatalf("Invalid point (expected x,y): %v", err)
		}
		cfg := viewport.DefaultConfig()
		cfg.Backend = viewport.Backend(*index)
		locator, err := viewport.NewLocator(g, cfg, *width, *height)
		if err != nil {
			log.Fatalf("Failed to build viewport: %v", err)
		}
		n, ok := locator.Nearest(x, y)
		if !ok {
			fmt.Printf("no intersection within %.0f px of (%g, %g)\n", cfg.SearchRadius, x, y)
			return
		}
		node := g.Node(n)
		p, _ := locator.Position(n)
		fmt.Printf("%s at (%.6f, %.6f), screen (%.1f, %.1f)\n", node.ID, node.Lat, node.Lon, p[0], p[1])
	}
}

func loadGraph(path string) (*graph.Graph, error) {
	if strings.HasSuffix(path, ".bin") {
		return graph.ReadBinary(path)
	}
	return graph.LoadFile(path)
}
