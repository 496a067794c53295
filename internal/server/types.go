// Package server exposes one editing session over HTTP: JSON state
// endpoints for the map UI, HTML diagnostic charts, gated export
// downloads, a WebSocket for state push, and Prometheus metrics.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/export"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds server configuration.
type Config struct {
	Host       string `mapstructure:"host" yaml:"host" json:"host"`
	Port       int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// DefaultConfig returns server defaults for local use.
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       8080,
		CORSOrigin: "*",
		TimeoutSec: 30,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Server serves one session controller. The controller owns all session
// state; the server is a thin, stateless view over it.
type Server struct {
	ctrl    *session.Controller
	store   *export.Store
	cfg     Config
	logger  *slog.Logger
	basemap *basemap
}

// NewServer wraps a session controller. store may be nil, in which case
// the run-store endpoints report 503.
func NewServer(ctrl *session.Controller, store *export.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctrl: ctrl, store: store, cfg: cfg, logger: logger}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/session", s.corsMiddleware(s.sessionHandler))
	mux.HandleFunc("/api/profile", s.corsMiddleware(s.profileHandler))
	mux.HandleFunc("/api/assignment", s.corsMiddleware(s.assignmentHandler))
	mux.HandleFunc("/api/numbering", s.corsMiddleware(s.numberingHandler))
	mux.HandleFunc("/api/direction", s.corsMiddleware(s.directionHandler))
	mux.HandleFunc("/api/config", s.corsMiddleware(s.configHandler))
	mux.HandleFunc("/api/points", s.corsMiddleware(s.pointsHandler))
	mux.HandleFunc("/api/undo", s.corsMiddleware(s.undoHandler))
	mux.HandleFunc("/api/redo", s.corsMiddleware(s.redoHandler))
	mux.HandleFunc("/api/export.csv", s.corsMiddleware(s.exportCSVHandler))
	mux.HandleFunc("/api/export.geojson", s.corsMiddleware(s.exportGeoJSONHandler))
	mux.HandleFunc("/api/runs", s.corsMiddleware(s.runsHandler))
	mux.HandleFunc("/api/basemap", s.corsMiddleware(s.basemapHandler))
	mux.HandleFunc("/basemap/tile", s.corsMiddleware(s.basemapTileHandler))
	mux.HandleFunc("/chart/profile", s.corsMiddleware(s.chartProfileHandler))
	mux.HandleFunc("/chart/field", s.corsMiddleware(s.chartFieldHandler))
	mux.HandleFunc("/ws", s.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// HTTPServer builds a configured http.Server with all routes attached.
// The caller owns its lifecycle.
func (s *Server) HTTPServer() *http.Server {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  time.Duration(s.cfg.TimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.TimeoutSec) * time.Second,
	}
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type SessionResponse struct {
	SessionID    string         `json:"session_id"`
	Config       session.Config `json:"config"`
	Direction    *DirectionInfo `json:"direction,omitempty"`
	Stats        *ridge.Stats   `json:"stats,omitempty"`
	UndoDepth    int            `json:"undo_depth"`
	RedoDepth    int            `json:"redo_depth"`
	ReadyForSave bool           `json:"ready_for_save"`
	BlockReason  string         `json:"block_reason,omitempty"`
}

type DirectionInfo struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Source      string  `json:"source"`
	RotationDeg float64 `json:"rotation_deg"`
}

type ProfileResponse struct {
	Profile ridge.Profile `json:"profile"`
	Peaks   []ridge.Peak  `json:"peaks"`
}

type AssignmentResponse struct {
	Intervals   []ridge.Interval   `json:"intervals"`
	Lines       []ridge.Line       `json:"lines"`
	Assignments []ridge.Assignment `json:"assignments"`
	Stats       ridge.Stats        `json:"stats"`
}

type NumberingResponse struct {
	Records   []numbering.Record `json:"records"`
	Conflicts int                `json:"conflicts"`
	Examples  []string           `json:"conflict_examples,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
