package ridge

import (
	"fmt"
	"math"
)

// Unassigned is the sentinel RidgeID for points outside every ridge band.
const Unassigned = -1

// Assignment is the per-point ridge membership result. RidgeID of
// Unassigned always pairs with IsInlier false; an assigned point may still
// be flagged as an outlier by refinement, keeping its RidgeID.
type Assignment struct {
	PointID  int64 `json:"point_id"`
	RidgeID  int   `json:"ridge_id"`
	IsInlier bool  `json:"is_inlier"`
}

// AssignToRidges places each effective point into the ridge band covering
// its perpendicular projection. Projections inside overlapping bands go to
// the nearest band center. Ineffective points and points outside all bands
// get the Unassigned sentinel. Zero intervals leave every point
// unassigned; empty input yields an empty result.
func AssignToRidges(pointIDs []int64, perp []float64, effective []bool, intervals []Interval) ([]Assignment, error) {
	if len(pointIDs) != len(perp) || len(pointIDs) != len(effective) {
		return nil, fmt.Errorf("assign: ids/projections/mask lengths differ (%d/%d/%d)",
			len(pointIDs), len(perp), len(effective))
	}
	out := make([]Assignment, len(pointIDs))
	for i, id := range pointIDs {
		out[i] = Assignment{PointID: id, RidgeID: Unassigned, IsInlier: false}
		if !effective[i] {
			continue
		}
		if idx := pickInterval(perp[i], intervals); idx >= 0 {
			out[i].RidgeID = idx
			out[i].IsInlier = true
		}
	}
	return out, nil
}

// pickInterval returns the index of the band containing x, resolving
// overlaps by nearest center. Returns -1 when no band contains x.
func pickInterval(x float64, intervals []Interval) int {
	best := -1
	bestDist := math.Inf(1)
	for i, iv := range intervals {
		if !iv.Contains(x) {
			continue
		}
		d := math.Abs(x - iv.Center)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Stats summarises one assignment pass for the UI and downstream gating.
type Stats struct {
	TotalPoints     int `json:"total_points"`
	EffectivePoints int `json:"effective_points"`
	AssignedPoints  int `json:"assigned_points"`
	InlierPoints    int `json:"inlier_points"`
	IgnoredPoints   int `json:"ignored_points"`
	RidgeCount      int `json:"ridge_count"`
}

// BuildStats counts assignment outcomes.
func BuildStats(assignments []Assignment, effective []bool, ridgeCount int) Stats {
	s := Stats{TotalPoints: len(assignments), RidgeCount: ridgeCount}
	for _, e := range effective {
		if e {
			s.EffectivePoints++
		}
	}
	for _, a := range assignments {
		if a.RidgeID >= 0 {
			s.AssignedPoints++
			if a.IsInlier {
				s.InlierPoints++
			}
		} else {
			s.IgnoredPoints++
		}
	}
	return s
}

// MembersByRidge groups assignment slice indices by ridge ID, skipping
// unassigned points. Indices keep input order.
func MembersByRidge(assignments []Assignment) map[int][]int {
	out := make(map[int][]int)
	for i, a := range assignments {
		if a.RidgeID >= 0 {
			out[a.RidgeID] = append(out[a.RidgeID], i)
		}
	}
	return out
}

// ColorKey returns a stable palette index for a ridge ID, so the
// presentation layer can cache colors across recomputations. Unassigned
// points map to -1.
func ColorKey(ridgeID, paletteSize int) int {
	if ridgeID < 0 || paletteSize <= 0 {
		return -1
	}
	return ridgeID % paletteSize
}
