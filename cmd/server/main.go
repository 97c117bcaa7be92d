package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"street_router/pkg/api"
	"street_router/pkg/graph"
	"street_router/pkg/routing"
	"street_router/pkg/viewport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using flags and environment")
	}

	// Environment variables supply defaults; flags override them.
	graphPath := flag.String("graph", envString("STREET_ROUTER_GRAPH", "graph.bin"), "Path to preprocessed graph binary or map text file")
	port := flag.Int("port", envInt("STREET_ROUTER_PORT", 8080), "HTTP port")
	corsOrigin := flag.String("cors-origin", envString("STREET_ROUTER_CORS_ORIGIN", ""), "Comma-separated CORS allowed origins (empty = same-origin)")
	width := flag.Int("width", envInt("STREET_ROUTER_WIDTH", 1024), "Initial viewport width in pixels")
	height := flag.Int("height", envInt("STREET_ROUTER_HEIGHT", 768), "Initial viewport height in pixels")
	index := flag.String("index", envString("STREET_ROUTER_INDEX", string(viewport.QuadTree)), "Spatial index backend: quadtree or rtree")
	radius := flag.Float64("radius", 0, "Nearest-intersection search radius in pixels (0 = default)")
	flag.Parse()

	start := time.Now()

	// Load graph.
	log.Printf("Loading graph from %s...", *graphPath)
	g, err := loadGraph(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded: %d intersections, %d roads", g.Intersections(), g.Roads())

	// Build the viewport index.
	cfg := viewport.DefaultConfig()
	cfg.Backend = viewport.Backend(*index)
	if *radius > 0 {
		cfg.SearchRadius = *radius
	}
	log.Printf("Building %s index for %dx%d viewport...", cfg.Backend, *width, *height)
	locator, err := viewport.NewLocator(g, cfg, *width, *height)
	if err != nil {
		log.Fatalf("Failed to build viewport: %v", err)
	}

	engine := routing.NewEngine(g)
	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	srvCfg := api.DefaultConfig(addr)
	if *corsOrigin != "" {
		for _, o := range strings.Split(*corsOrigin, ",") {
			if o = strings.TrimSpace(o); o != "" {
				srvCfg.CORSOrigins = append(srvCfg.CORSOrigins, o)
			}
		}
	}

	handlers := api.NewHandlers(engine, g, locator, api.NewMetrics(reg))
	srv := api.NewServer(srvCfg, handlers, reg)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func loadGraph(path string) (*graph.Graph, error) {
	if strings.HasSuffix(path, ".bin") {
		return graph.ReadBinary(path)
	}
	return graph.LoadFile(path)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
		return def
	}
	return n
}
