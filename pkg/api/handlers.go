package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"

	"street_router/pkg/graph"
	"street_router/pkg/routing"
	"street_router/pkg/viewport"
)

const maxBodyBytes = 1024

// Locator resolves screen points to intersections for the current viewport.
type Locator interface {
	Nearest(x, y float64) (graph.NodeID, bool)
	Position(n graph.NodeID) (orb.Point, bool)
	Resize(width, height int) error
	Size() (width, height int)
	Indexed() int
	Backend() viewport.Backend
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router  routing.Router
	g       *graph.Graph
	locator Locator
	metrics *Metrics
	stats   StatsResponse

	validate *validator.Validate
	trans    ut.Translator
}

// NewHandlers creates handlers routing with router over g. metrics may be nil.
func NewHandlers(router routing.Router, g *graph.Graph, locator Locator, metrics *Metrics) *Handlers {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		log.Printf("Warning: register validation translations: %v", err)
	}

	return &Handlers{
		router:   router,
		g:        g,
		locator:  locator,
		metrics:  metrics,
		validate: validate,
		trans:    trans,
		stats: StatsResponse{
			Intersections: g.Intersections(),
			Roads:         g.Roads(),
			Nodes:         g.NumNodes(),
			Edges:         g.NumEdges(),
			Components:    graph.Components(g),
		},
	}
}

// bind decodes and validates a request body, writing the error response
// itself. It reports whether the handler should continue.
func (h *Handlers) bind(w http.ResponseWriter, r *http.Request, v render.Binder) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.Bind(r, v); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			render.Render(w, r, ErrInvalidRequest(err))
			return false
		}
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fe.Translate(h.trans)
		}
		render.Render(w, r, ErrValidation(err, msgs))
		return false
	}
	return true
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !h.bind(w, r, &req) {
		return
	}

	path, err := h.router.Route(r.Context(), req.From, req.To)
	if err != nil {
		h.metrics.observeRoute("error", 0)
		switch {
		case errors.Is(err, routing.ErrInvalidSource):
			render.Render(w, r, errResponse(http.StatusNotFound, "unknown_intersection", "from", err))
		case errors.Is(err, graph.ErrUnknownIntersection):
			render.Render(w, r, errResponse(http.StatusNotFound, "unknown_intersection", "to", err))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			render.Render(w, r, errResponse(http.StatusServiceUnavailable, "request_timeout", "", err))
		default:
			log.Printf("route %s -> %s: %v", req.From, req.To, err)
			render.Render(w, r, errResponse(http.StatusInternalServerError, "internal_error", "", err))
		}
		return
	}

	resp := RouteResponse{
		Found:   path.Found(),
		From:    req.From,
		To:      req.To,
		Summary: path.Summary(h.g),
	}
	if path.Found() {
		h.metrics.observeRoute("found", path.Distance)
		meters, miles := path.Distance, path.Miles()
		resp.DistanceMeters = &meters
		resp.DistanceMiles = &miles
		resp.Intersections = path.IDs(h.g)
		resp.Roads = path.RoadIDs(h.g)
		resp.Polyline = h.encodePolyline(path)
	} else {
		h.metrics.observeRoute("unreachable", 0)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (h *Handlers) encodePolyline(p *routing.Path) string {
	coords := make([][]float64, len(p.Nodes))
	for i, n := range p.Nodes {
		node := h.g.Node(n)
		coords[i] = []float64{node.Lat, node.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// HandleNearest handles POST /api/v1/nearest.
func (h *Handlers) HandleNearest(w http.ResponseWriter, r *http.Request) {
	var req NearestRequest
	if !h.bind(w, r, &req) {
		return
	}

	n, ok := h.locator.Nearest(*req.X, *req.Y)
	h.metrics.observeNearest(ok)
	if !ok {
		render.Render(w, r, errResponse(http.StatusNotFound, "no_result", "", nil))
		return
	}

	node := h.g.Node(n)
	p, _ := h.locator.Position(n)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, IntersectionJSON{ID: node.ID, Lat: node.Lat, Lon: node.Lon, X: p[0], Y: p[1]})
}

// HandleViewport handles PUT /api/v1/viewport.
func (h *Handlers) HandleViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if !h.bind(w, r, &req) {
		return
	}

	start := time.Now()
	if err := h.locator.Resize(req.Width, req.Height); err != nil {
		if errors.Is(err, viewport.ErrInvalidSize) {
			render.Render(w, r, errResponse(http.StatusBadRequest, "invalid_viewport", "", err))
			return
		}
		log.Printf("resize viewport: %v", err)
		render.Render(w, r, errResponse(http.StatusInternalServerError, "internal_error", "", err))
		return
	}
	h.metrics.observeRebuild(time.Since(start))

	h.renderViewport(w, r)
}

// HandleGetViewport handles GET /api/v1/viewport.
func (h *Handlers) HandleGetViewport(w http.ResponseWriter, r *http.Request) {
	h.renderViewport(w, r)
}

func (h *Handlers) renderViewport(w http.ResponseWriter, r *http.Request) {
	width, height := h.locator.Size()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ViewportResponse{
		Width:   width,
		Height:  height,
		Indexed: h.locator.Indexed(),
		Backend: string(h.locator.Backend()),
	})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.stats)
}
