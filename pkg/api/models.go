package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	From string `json:"from" validate:"required,max=4096"`
	To   string `json:"to" validate:"required,max=4096"`
}

func (req *RouteRequest) Bind(r *http.Request) error {
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	return nil
}

// NearestRequest is the JSON body for POST /api/v1/nearest. X and Y are
// screen coordinates in the current viewport; zero is a valid coordinate,
// so both are pointers to tell "0" from "missing".
type NearestRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

func (req *NearestRequest) Bind(r *http.Request) error { return nil }

// ViewportRequest is the JSON body for PUT /api/v1/viewport.
type ViewportRequest struct {
	Width  int `json:"width" validate:"required,gt=0,lte=16384"`
	Height int `json:"height" validate:"required,gt=0,lte=16384"`
}

func (req *ViewportRequest) Bind(r *http.Request) error { return nil }

// RouteResponse is the JSON response for a route query. An unreachable
// target is a normal response with Found false and no distance.
type RouteResponse struct {
	Found          bool     `json:"found"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	Intersections  []string `json:"intersections,omitempty"`
	Roads          []string `json:"roads,omitempty"`
	DistanceMeters *float64 `json:"distance_meters"`
	DistanceMiles  *float64 `json:"distance_miles"`
	Polyline       string   `json:"polyline,omitempty"`
	Summary        string   `json:"summary"`
}

// IntersectionJSON is an intersection with its screen position.
type IntersectionJSON struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// ViewportResponse describes the active viewport.
type ViewportResponse struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Indexed int    `json:"indexed"`
	Backend string `json:"backend"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Intersections int `json:"intersections"`
	Roads         int `json:"roads"`
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`
	Components    int `json:"components"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrResponse is the JSON response for errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	ErrorCode     string   `json:"error"`
	Field         string   `json:"field,omitempty"`
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errResponse(status int, code, field string, err error) render.Renderer {
	if err == nil {
		err = errors.New(code)
	}
	return &ErrResponse{Err: err, HTTPStatusCode: status, ErrorCode: code, Field: field}
}

// ErrInvalidRequest is returned for bodies that cannot be decoded.
func ErrInvalidRequest(err error) render.Renderer {
	return errResponse(http.StatusBadRequest, "invalid_request", "", err)
}

// ErrValidation is returned for bodies that decode but fail validation.
func ErrValidation(err error, msgs []string) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		ErrorCode:      "invalid_request",
		ErrValidation:  msgs,
	}
}
