package numbering

import (
	"fmt"
	"sort"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
)

// Unranked marks points excluded from numbering (unassigned or outlier).
const Unranked = -1

// PointInput is one point's projection and membership state, as produced
// by the assignment stage.
type PointInput struct {
	ID       int64
	RidgeID  int
	IsInlier bool
	// Along is the projection onto the ridge-parallel axis, Perp onto
	// the perpendicular axis.
	Along float64
	Perp  float64
}

// Record is the final per-point labeling result.
type Record struct {
	PointID     int64  `json:"point_id"`
	RidgeRank   int    `json:"ridge_rank"`
	PlantRank   int    `json:"plant_rank"`
	Label       string `json:"label"`
	HasConflict bool   `json:"has_conflict"`
}

// ResultSet is a complete numbering pass over one assignment state.
// Records keep the input point order.
type ResultSet struct {
	Records   []Record `json:"records"`
	Conflicts int      `json:"conflicts"`
}

// ConflictExamples returns up to limit offending labels for user-facing
// messages.
func (rs ResultSet) ConflictExamples(limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rs.Records {
		if !r.HasConflict || seen[r.Label] {
			continue
		}
		seen[r.Label] = true
		out = append(out, r.Label)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Compute ranks ridges and plants and renders labels. Points that are
// unassigned or flagged as outliers receive Unranked ranks, an empty
// label, and never participate in conflict detection. The whole result is
// rebuilt on every call; nothing is patched incrementally.
func Compute(ridges []ridge.Interval, points []PointInput, cfg Config) (ResultSet, error) {
	if err := cfg.Validate(); err != nil {
		return ResultSet{}, err
	}

	ridgeRank := rankRidges(ridges, points, cfg.RidgeDescending)

	records := make([]Record, len(points))
	for i, p := range points {
		records[i] = Record{PointID: p.ID, RidgeRank: Unranked, PlantRank: Unranked}
		if p.RidgeID >= 0 && p.IsInlier {
			records[i].RidgeRank = ridgeRank[p.RidgeID]
		}
	}

	rankPlants(records, points, cfg.PlantDescending)
	renderLabels(records, cfg)
	conflicts := markConflicts(records)

	return ResultSet{Records: records, Conflicts: conflicts}, nil
}

// rankRidges maps ridge ID to its dense 0-based rank ordered by band
// center along the perpendicular axis. Ridges with no inlier members
// still rank; their slots simply stay unused.
func rankRidges(ridges []ridge.Interval, points []PointInput, descending bool) map[int]int {
	type rc struct {
		id     int
		center float64
	}
	order := make([]rc, len(ridges))
	for i, iv := range ridges {
		order[i] = rc{id: i, center: iv.Center}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return order[a].center > order[b].center
		}
		return order[a].center < order[b].center
	})
	out := make(map[int]int, len(order))
	for rank, r := range order {
		out[r.id] = rank
	}
	return out
}

// rankPlants assigns dense 0-based ranks within each ridge by
// along-direction projection, ties broken by point ID.
func rankPlants(records []Record, points []PointInput, descending bool) {
	byRidge := map[int][]int{}
	for i, p := range points {
		if p.RidgeID >= 0 && p.IsInlier {
			byRidge[p.RidgeID] = append(byRidge[p.RidgeID], i)
		}
	}
	for _, idxs := range byRidge {
		sort.SliceStable(idxs, func(a, b int) bool {
			pa, pb := points[idxs[a]], points[idxs[b]]
			if pa.Along != pb.Along {
				if descending {
					return pa.Along > pb.Along
				}
				return pa.Along < pb.Along
			}
			return pa.ID < pb.ID
		})
		for rank, idx := range idxs {
			records[idx].PlantRank = rank
		}
	}
}

func renderLabels(records []Record, cfg Config) {
	switch cfg.Mode {
	case ModeRidgePlant:
		for i := range records {
			if records[i].RidgeRank == Unranked {
				continue
			}
			records[i].Label = renderOrdinal(records[i].RidgeRank, cfg.Ridge) +
				cfg.Separator +
				renderOrdinal(records[i].PlantRank, cfg.Plant)
		}
	case ModeContinuous:
		// Global order: ridge rank, then plant rank.
		var numbered []int
		for i, r := range records {
			if r.RidgeRank != Unranked {
				numbered = append(numbered, i)
			}
		}
		sort.SliceStable(numbered, func(a, b int) bool {
			ra, rb := records[numbered[a]], records[numbered[b]]
			if ra.RidgeRank != rb.RidgeRank {
				return ra.RidgeRank < rb.RidgeRank
			}
			return ra.PlantRank < rb.PlantRank
		})
		for seq, idx := range numbered {
			records[idx].Label = renderOrdinal(seq, cfg.Continuous)
		}
	}
}

// markConflicts flags every numbered record whose label string is shared
// and returns the number of conflicted records.
func markConflicts(records []Record) int {
	byLabel := map[string][]int{}
	for i, r := range records {
		if r.RidgeRank == Unranked {
			continue
		}
		byLabel[r.Label] = append(byLabel[r.Label], i)
	}
	conflicts := 0
	for _, idxs := range byLabel {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			records[i].HasConflict = true
			conflicts++
		}
	}
	return conflicts
}

// Describe renders a short user-facing summary of a conflicted result.
func (rs ResultSet) Describe() string {
	if rs.Conflicts == 0 {
		return "no label conflicts"
	}
	return fmt.Sprintf("%d conflicting labels (e.g. %v)", rs.Conflicts, rs.ConflictExamples(3))
}
