package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Converter converts a single grid coordinate.
type Converter interface {
	Convert(p osgb.Planar) (osgb.Geographic, error)
}

// Server exposes health, readiness, metrics and single-point conversion
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	converter  Converter
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/convert routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, converter Converter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		converter: converter,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/convert", s.handleConvert)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type convertResponse struct {
	osgb.Planar
	osgb.Geographic
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	easting, err := queryFloat(q.Get("easting"), "easting")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}
	northing, err := queryFloat(q.Get("northing"), "northing")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	p := osgb.Planar{Easting: easting, Northing: northing}
	g, err := s.converter.Convert(p)
	if err != nil {
		kind := osgb.ErrorKind(err)
		switch {
		case errors.Is(err, osgb.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, kind, err)
		case errors.Is(err, osgb.ErrConvergence):
			writeError(w, http.StatusUnprocessableEntity, kind, err)
		default:
			s.logger.Error("convert failed", "error", err, "easting", easting, "northing", northing)
			writeError(w, http.StatusInternalServerError, kind, err)
		}
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, convertResponse{Planar: p, Geographic: g})
}

func queryFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}
