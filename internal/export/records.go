// Package export turns a finished numbering pass into durable artifacts:
// CSV and GeoJSON files for downstream GIS tools, and a SQLite run store
// for keeping multiple passes over the same field comparable.
package export

import (
	"errors"
	"fmt"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
)

// ErrConflicts blocks exporting while duplicate labels exist.
var ErrConflicts = errors.New("label conflicts block export")

// ErrLengthMismatch is returned when the assignment and numbering slices
// do not cover the same points.
var ErrLengthMismatch = errors.New("assignments and numbering cover different point sets")

// Record is one exported point. NewID is the rendered label; points that
// were outside the boundary or rejected as outliers keep their original
// ID and an empty NewID. InBoundary separates boundary-excluded points
// from in-boundary points that merely failed assignment.
type Record struct {
	OriginalID int64      `json:"original_id"`
	NewID      string     `json:"new_id"`
	RidgeID    int        `json:"ridge_id"`
	RidgeRank  int        `json:"ridge_rank"`
	PlantRank  int        `json:"plant_rank"`
	IsInlier   bool       `json:"is_inlier"`
	InBoundary bool       `json:"in_boundary"`
	Pos        geom.Point `json:"-"`
}

// BuildRecords assembles export records from one pipeline result. It
// refuses to build while label conflicts exist, naming a few offenders.
func BuildRecords(points *field.PointSet, assignments []ridge.Assignment, numbers numbering.ResultSet) ([]Record, error) {
	if points == nil || points.Len() == 0 {
		return nil, field.ErrNoPoints
	}
	if len(assignments) != points.Len() || len(numbers.Records) != points.Len() {
		return nil, ErrLengthMismatch
	}
	if numbers.Conflicts > 0 {
		return nil, fmt.Errorf("%w: %d records, e.g. %v",
			ErrConflicts, numbers.Conflicts, numbers.ConflictExamples(3))
	}
	out := make([]Record, points.Len())
	for i, rec := range points.Records {
		a := assignments[i]
		n := numbers.Records[i]
		if rec.ID != a.PointID || rec.ID != n.PointID {
			return nil, fmt.Errorf("%w: point %d out of order", ErrLengthMismatch, rec.ID)
		}
		out[i] = Record{
			OriginalID: rec.ID,
			NewID:      n.Label,
			RidgeID:    a.RidgeID,
			RidgeRank:  n.RidgeRank,
			PlantRank:  n.PlantRank,
			IsInlier:   a.IsInlier,
			InBoundary: rec.InBoundary,
			Pos:        rec.Pos,
		}
	}
	return out, nil
}
