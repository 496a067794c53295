// Package field holds the data contracts shared by the ridge pipeline:
// plant point records, the optional field boundary, and CRS consistency
// checks. Points and boundary reach this package already co-registered;
// the core never reprojects.
package field

import (
	"errors"
	"fmt"
	"sort"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
)

// ErrNoPoints is returned when an operation requires a non-empty point set.
var ErrNoPoints = errors.New("point set is empty")

// PointRecord is one detected or loaded plant location. ID is assigned at
// load time and never changes; Pos may be updated by interactive edits.
type PointRecord struct {
	ID         int64
	Pos        geom.Point
	InBoundary bool
}

// PointSet owns an ordered collection of point records plus the CRS they
// are expressed in. Record order is load order and is stable across edits.
type PointSet struct {
	CRS     string
	Records []PointRecord
}

// Clone returns a deep copy. Snapshots handed to consumers are clones so
// controller edits never alias published state.
func (ps *PointSet) Clone() *PointSet {
	out := &PointSet{CRS: ps.CRS, Records: make([]PointRecord, len(ps.Records))}
	copy(out.Records, ps.Records)
	return out
}

// Len returns the number of records.
func (ps *PointSet) Len() int { return len(ps.Records) }

// Positions returns all point positions in record order.
func (ps *PointSet) Positions() []geom.Point {
	out := make([]geom.Point, len(ps.Records))
	for i, r := range ps.Records {
		out[i] = r.Pos
	}
	return out
}

// IDs returns all point IDs in record order.
func (ps *PointSet) IDs() []int64 {
	out := make([]int64, len(ps.Records))
	for i, r := range ps.Records {
		out[i] = r.ID
	}
	return out
}

// IndexOf returns the record index for a point ID, or -1.
func (ps *PointSet) IndexOf(id int64) int {
	for i, r := range ps.Records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// NextID returns an ID one past the current maximum, for interactive adds.
func (ps *PointSet) NextID() int64 {
	var maxID int64 = -1
	for _, r := range ps.Records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}

// Normalize enforces the load contract: IDs must be unique, and a set
// loaded without usable IDs gets dense sequential ones assigned in record
// order.
func (ps *PointSet) Normalize() error {
	if len(ps.Records) == 0 {
		return ErrNoPoints
	}
	seen := make(map[int64]struct{}, len(ps.Records))
	reassign := false
	for _, r := range ps.Records {
		if r.ID < 0 {
			reassign = true
			break
		}
		if _, dup := seen[r.ID]; dup {
			reassign = true
			break
		}
		seen[r.ID] = struct{}{}
	}
	if reassign {
		for i := range ps.Records {
			ps.Records[i].ID = int64(i)
		}
	}
	return nil
}

// RefreshBoundaryFlags recomputes InBoundary for every record. A nil
// boundary marks all points in-boundary, matching the original
// application's "no boundary loaded" behaviour.
func (ps *PointSet) RefreshBoundaryFlags(b *Boundary) error {
	if b == nil {
		for i := range ps.Records {
			ps.Records[i].InBoundary = true
		}
		return nil
	}
	if err := EnsureSameCRS(ps.CRS, b.CRS); err != nil {
		return fmt.Errorf("refresh boundary flags: %w", err)
	}
	for i := range ps.Records {
		ps.Records[i].InBoundary = b.Polygon.Contains(ps.Records[i].Pos)
	}
	return nil
}

// EffectiveMask returns, per record, whether the point participates in
// ridge detection and numbering.
func (ps *PointSet) EffectiveMask() []bool {
	out := make([]bool, len(ps.Records))
	for i, r := range ps.Records {
		out[i] = r.InBoundary
	}
	return out
}

// SortedIDs returns all point IDs ascending; used for deterministic
// iteration in reports.
func (ps *PointSet) SortedIDs() []int64 {
	ids := ps.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
