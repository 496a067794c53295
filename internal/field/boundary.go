package field

import (
	"errors"
	"fmt"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
)

// ErrNoBoundary is returned when a boundary-derived operation is requested
// with no boundary loaded.
var ErrNoBoundary = errors.New("no field boundary loaded")

// Boundary is the optional field boundary polygon.
type Boundary struct {
	CRS     string
	Polygon geom.Polygon
}

// Axes are the two edge directions of the boundary's minimum-area rotated
// rectangle. Primary follows the longest edge.
type Axes struct {
	Primary   geom.Vec
	Secondary geom.Vec
}

// Validate rejects boundaries that cannot bound anything.
func (b *Boundary) Validate() error {
	if b == nil || len(b.Polygon) == 0 {
		return ErrNoBoundary
	}
	if len(b.Polygon) < 3 {
		return fmt.Errorf("boundary: %w", geom.ErrDegeneratePolygon)
	}
	if b.CRS == "" {
		return fmt.Errorf("boundary: %w", ErrMissingCRS)
	}
	return nil
}

// ComputeAxes derives the boundary's axes from its minimum rotated
// rectangle.
func (b *Boundary) ComputeAxes() (Axes, error) {
	if err := b.Validate(); err != nil {
		return Axes{}, err
	}
	rect, err := geom.MinimumRotatedRect(b.Polygon)
	if err != nil {
		return Axes{}, fmt.Errorf("boundary axes: %w", err)
	}
	return Axes{Primary: rect.Primary, Secondary: rect.Secondary}, nil
}
