// Package ridge implements crop-row discovery over a plant point cloud:
// resolving the row direction, building a density profile perpendicular to
// it, detecting row peaks, assigning points to rows, and refining
// membership with robust outlier rejection. All functions are pure; the
// stateful sequencing lives in internal/session.
package ridge

import (
	"errors"
	"fmt"
	"math"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
)

// ErrDegenerateVector is returned when two manual anchor points are too
// close to define a direction.
var ErrDegenerateVector = errors.New("manual direction points are coincident")

// manualEpsilon is the minimum distance between manual anchor points.
const manualEpsilon = 1e-9

// Source identifies where a direction came from.
type Source string

const (
	SourceBoundaryPrimary          Source = "boundary_primary"
	SourceBoundaryPrimaryNegated   Source = "boundary_primary_negated"
	SourceBoundarySecondary        Source = "boundary_secondary"
	SourceBoundarySecondaryNegated Source = "boundary_secondary_negated"
	SourceManual                   Source = "manual"
)

// BoundaryDerived reports whether the source depends on the loaded
// boundary. Removing the boundary invalidates such directions outright.
func (s Source) BoundaryDerived() bool { return s != SourceManual }

// Direction is a resolved ridge orientation. Instances are immutable;
// re-resolving replaces the whole value.
type Direction struct {
	Vector      geom.Vec
	Source      Source
	RotationDeg float64
}

// ResolveFromBoundary derives a direction from the boundary's minimum
// rotated rectangle axes.
func ResolveFromBoundary(b *field.Boundary, src Source) (Direction, error) {
	if b == nil {
		return Direction{}, field.ErrNoBoundary
	}
	axes, err := b.ComputeAxes()
	if err != nil {
		return Direction{}, err
	}
	var v geom.Vec
	switch src {
	case SourceBoundaryPrimary:
		v = axes.Primary
	case SourceBoundaryPrimaryNegated:
		v = axes.Primary.Neg()
	case SourceBoundarySecondary:
		v = axes.Secondary
	case SourceBoundarySecondaryNegated:
		v = axes.Secondary.Neg()
	default:
		return Direction{}, fmt.Errorf("unsupported boundary direction source: %q", src)
	}
	unit, err := geom.Normalize(v, manualEpsilon)
	if err != nil {
		return Direction{}, err
	}
	return Direction{Vector: unit, Source: src, RotationDeg: RotationAngleDeg(unit)}, nil
}

// ResolveManual builds a direction from two user-clicked points, p0 to p1.
func ResolveManual(p0, p1 geom.Point) (Direction, error) {
	unit, err := geom.Normalize(p1.Sub(p0), manualEpsilon)
	if err != nil {
		return Direction{}, ErrDegenerateVector
	}
	return Direction{Vector: unit, Source: SourceManual, RotationDeg: RotationAngleDeg(unit)}, nil
}

// RotationAngleDeg returns the signed angle in degrees that the display
// view must rotate so vec maps onto the canonical up axis (+Y). The view
// rotates by the negated data angle, hence the leading minus: for
// vec = (1, 0) the result is -90.
func RotationAngleDeg(vec geom.Vec) float64 {
	return -math.Atan2(vec.X, vec.Y) * 180 / math.Pi
}
