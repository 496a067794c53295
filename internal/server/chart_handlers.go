package server

import (
	"net/http"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/chart"
)

// chartProfileHandler renders the density profile as an HTML chart.
func (s *Server) chartProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderProfile(w, snap.Profile, snap.Peaks, "Perpendicular density"); err != nil {
		s.logger.Error("rendering profile chart", "error", err)
	}
}

// chartFieldHandler renders the field map as an HTML chart.
func (s *Server) chartFieldHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderFieldMap(w, snap.Points, snap.Assignments, snap.Lines, "Field map"); err != nil {
		s.logger.Error("rendering field map", "error", err)
	}
}
