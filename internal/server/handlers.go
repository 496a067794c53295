package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/export"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/session"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, HealthResponse{
		Status:  "healthy",
		Version: version.String(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// sessionHandler returns the session overview: config, direction, stats,
// and the save gate.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := SessionResponse{
		SessionID: s.ctrl.ID().String(),
		Config:    s.ctrl.ConfigSnapshot(),
	}
	resp.UndoDepth, resp.RedoDepth = s.ctrl.HistoryDepths()
	if dir, ok := s.ctrl.Direction(); ok {
		resp.Direction = &DirectionInfo{
			X:           dir.Vector.X,
			Y:           dir.Vector.Y,
			Source:      string(dir.Source),
			RotationDeg: dir.RotationDeg,
		}
	}
	if snap, err := s.snapshot(); err == nil {
		resp.Stats = &snap.Stats
	}
	if err := s.ctrl.ReadyForSave(); err != nil {
		resp.BlockReason = err.Error()
	} else {
		resp.ReadyForSave = true
	}
	s.writeJSON(w, resp)
}

// profileHandler returns the density profile and detected peaks.
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	s.writeJSON(w, ProfileResponse{Profile: snap.Profile, Peaks: snap.Peaks})
}

// assignmentHandler returns ridge bands, lines, and per-point assignments.
func (s *Server) assignmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	s.writeJSON(w, AssignmentResponse{
		Intervals:   snap.Intervals,
		Lines:       snap.Lines,
		Assignments: snap.Assignments,
		Stats:       snap.Stats,
	})
}

// numberingHandler returns per-point labels and conflict state.
func (s *Server) numberingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	s.writeJSON(w, NumberingResponse{
		Records:   snap.Numbering.Records,
		Conflicts: snap.Numbering.Conflicts,
		Examples:  snap.Numbering.ConflictExamples(5),
	})
}

type directionRequest struct {
	Mode   string  `json:"mode"` // "boundary" or "manual"
	Source string  `json:"source,omitempty"`
	X0     float64 `json:"x0,omitempty"`
	Y0     float64 `json:"y0,omitempty"`
	X1     float64 `json:"x1,omitempty"`
	Y1     float64 `json:"y1,omitempty"`
}

// directionHandler resolves the ridge direction from the boundary or from
// two drawn points.
func (s *Server) directionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req directionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var err error
	switch req.Mode {
	case "boundary":
		err = s.ctrl.UseBoundaryDirection(ridge.Source(req.Source))
	case "manual":
		err = s.ctrl.UseManualDirection(
			geom.Point{X: req.X0, Y: req.Y0},
			geom.Point{X: req.X1, Y: req.Y1},
		)
	default:
		s.writeError(w, "mode must be boundary or manual", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	dir, _ := s.ctrl.Direction()
	s.writeJSON(w, DirectionInfo{
		X: dir.Vector.X, Y: dir.Vector.Y,
		Source: string(dir.Source), RotationDeg: dir.RotationDeg,
	})
}

type configRequest struct {
	Density   *ridge.DensityConfig `json:"density,omitempty"`
	Assign    *ridge.AssignConfig  `json:"assign,omitempty"`
	Numbering *numbering.Config    `json:"numbering,omitempty"`
}

// configHandler applies partial stage-parameter updates.
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.ctrl.ConfigSnapshot())
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Density != nil {
		if err := s.ctrl.SetDensityConfig(*req.Density); err != nil {
			s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if req.Assign != nil {
		if err := s.ctrl.SetAssignConfig(*req.Assign); err != nil {
			s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if req.Numbering != nil {
		if err := s.ctrl.SetNumberingConfig(*req.Numbering); err != nil {
			s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	s.writeJSON(w, s.ctrl.ConfigSnapshot())
}

type pointEditRequest struct {
	Op string  `json:"op"` // "add", "move", "delete"
	ID int64   `json:"id,omitempty"`
	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
}

type pointEditResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id,omitempty"`
}

// pointsHandler applies interactive point edits.
func (s *Server) pointsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req pointEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp := pointEditResponse{Success: true, ID: req.ID}
	id, err := s.applyEdit(req.Op, req.ID, req.X, req.Y)
	if req.Op == "add" {
		resp.ID = id
	}
	if err != nil {
		editRequestsTotal.WithLabelValues(req.Op, "error").Inc()
		status := http.StatusUnprocessableEntity
		if errors.Is(err, session.ErrUnknownPoint) {
			status = http.StatusNotFound
		}
		s.writeError(w, err.Error(), status)
		return
	}
	editRequestsTotal.WithLabelValues(req.Op, "success").Inc()
	s.writeJSON(w, resp)
}

// applyEdit dispatches one point edit. For "add" the returned ID is the
// new point's.
func (s *Server) applyEdit(op string, id int64, x, y float64) (int64, error) {
	switch op {
	case "add":
		return s.ctrl.AddPoint(geom.Point{X: x, Y: y})
	case "move":
		return id, s.ctrl.MovePoint(id, geom.Point{X: x, Y: y})
	case "delete":
		return id, s.ctrl.DeletePoint(id)
	default:
		return id, fmt.Errorf("op must be add, move, or delete")
	}
}

func (s *Server) undoHandler(w http.ResponseWriter, r *http.Request) {
	s.historyOp(w, r, s.ctrl.Undo, session.ErrNothingToUndo)
}

func (s *Server) redoHandler(w http.ResponseWriter, r *http.Request) {
	s.historyOp(w, r, s.ctrl.Redo, session.ErrNothingToRedo)
}

func (s *Server) historyOp(w http.ResponseWriter, r *http.Request, op func() error, empty error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := op(); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, empty) {
			status = http.StatusConflict
		}
		s.writeError(w, err.Error(), status)
		return
	}
	s.writeJSON(w, pointEditResponse{Success: true})
}

// exportCSVHandler streams the numbered points as CSV. Export is refused
// while the save gate is closed.
func (s *Server) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	recs, _, ok := s.exportRecords(w, r, "csv")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="numbered_points.csv"`)
	if err := export.WriteCSV(w, recs); err != nil {
		s.logger.Error("writing csv export", "error", err)
		exportRequestsTotal.WithLabelValues("csv", "error").Inc()
		return
	}
	exportRequestsTotal.WithLabelValues("csv", "success").Inc()
}

// exportGeoJSONHandler streams the numbered points as GeoJSON.
func (s *Server) exportGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	recs, crs, ok := s.exportRecords(w, r, "geojson")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="numbered_points.geojson"`)
	if err := export.WriteGeoJSON(w, crs, recs); err != nil {
		s.logger.Error("writing geojson export", "error", err)
		exportRequestsTotal.WithLabelValues("geojson", "error").Inc()
		return
	}
	exportRequestsTotal.WithLabelValues("geojson", "success").Inc()
}

// exportRecords runs the save gate and builds export records. On failure
// it has already written the error response.
func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request, format string) ([]export.Record, string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, "", false
	}
	if err := s.ctrl.ReadyForSave(); err != nil {
		exportRequestsTotal.WithLabelValues(format, "blocked").Inc()
		s.writeError(w, err.Error(), http.StatusConflict)
		return nil, "", false
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return nil, "", false
	}
	recs, err := export.BuildRecords(snap.Points, snap.Assignments, snap.Numbering)
	if err != nil {
		exportRequestsTotal.WithLabelValues(format, "error").Inc()
		s.writeError(w, err.Error(), http.StatusConflict)
		return nil, "", false
	}
	// Persist the pass when a run store is attached; export still
	// succeeds if the store write fails.
	if s.store != nil {
		if _, err := s.store.SaveRun(snap.SessionID, snap.Points.CRS, recs); err != nil {
			s.logger.Error("saving run", "error", err)
		}
	}
	return recs, snap.Points.CRS, true
}

// runsHandler lists saved numbering runs.
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeError(w, "no run store attached", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.store.ListRuns()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]any{"runs": runs, "count": len(runs)})
}

// snapshot pulls the controller state and tracks the outcome.
func (s *Server) snapshot() (*session.Snapshot, error) {
	snap, err := s.ctrl.Snapshot()
	if err != nil {
		snapshotRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	snapshotRequestsTotal.WithLabelValues("success").Inc()
	return snap, nil
}

func (s *Server) writeSnapshotError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoDirection), errors.Is(err, field.ErrNoPoints):
		status = http.StatusConflict
	case errors.Is(err, ridge.ErrInvalidParameter):
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, fmt.Sprintf("pipeline unavailable: %v", err), status)
}
