package geom

import (
	"errors"
	"math"
)

// ErrInvalidDirection is returned when a direction vector is zero-length
// or too far from unit length to project against.
var ErrInvalidDirection = errors.New("direction vector must be unit length")

// unitTolerance bounds how far a vector's norm may deviate from 1.
const unitTolerance = 1e-9

// Point represents a 2D coordinate in the field's projected CRS.
type Point struct {
	X float64
	Y float64
}

// Vec represents a 2D direction vector.
type Vec struct {
	X float64
	Y float64
}

// Norm returns the Euclidean length of the vector.
func (v Vec) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Perp returns the vector rotated 90 degrees counter-clockwise.
func (v Vec) Perp() Vec { return Vec{X: -v.Y, Y: v.X} }

// Neg returns the negated vector.
func (v Vec) Neg() Vec { return Vec{X: -v.X, Y: -v.Y} }

// Scale returns the vector scaled by s.
func (v Vec) Scale(s float64) Vec { return Vec{X: v.X * s, Y: v.Y * s} }

// Dot returns the dot product of two vectors.
func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y }

// Add returns the point translated by a vector.
func (p Point) Add(v Vec) Point { return Point{X: p.X + v.X, Y: p.Y + v.Y} }

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Vec { return Vec{X: p.X - o.X, Y: p.Y - o.Y} }

// Normalize returns the unit vector pointing in the direction of v.
// A zero-length vector (norm below eps) is an error.
func Normalize(v Vec, eps float64) (Vec, error) {
	n := v.Norm()
	if n <= eps {
		return Vec{}, ErrInvalidDirection
	}
	return Vec{X: v.X / n, Y: v.Y / n}, nil
}

// checkUnit rejects vectors that are not unit length within tolerance.
func checkUnit(dir Vec) error {
	if math.Abs(dir.Norm()-1.0) > unitTolerance {
		return ErrInvalidDirection
	}
	return nil
}

// Centroid returns the mean position of the points. Empty input yields the
// origin.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}

// Project computes the scalar projection of each point onto the unit
// direction dir, measured from the point set's centroid. The centroid
// origin keeps projections numerically small for UTM-scale coordinates.
func Project(pts []Point, dir Vec) ([]float64, error) {
	if err := checkUnit(dir); err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return []float64{}, nil
	}
	origin := Centroid(pts)
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(origin).Dot(dir)
	}
	return out, nil
}

// ProjectFrom computes scalar projections onto dir measured from an
// explicit origin. Used when parallel and perpendicular projections must
// share one origin.
func ProjectFrom(pts []Point, origin Point, dir Vec) ([]float64, error) {
	if err := checkUnit(dir); err != nil {
		return nil, err
	}
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(origin).Dot(dir)
	}
	return out, nil
}

// ProjectAxes projects points onto dir and its perpendicular from a shared
// centroid origin. The first slice holds along-direction coordinates, the
// second the perpendicular offsets.
func ProjectAxes(pts []Point, dir Vec) (along, perp []float64, err error) {
	if err := checkUnit(dir); err != nil {
		return nil, nil, err
	}
	if len(pts) == 0 {
		return []float64{}, []float64{}, nil
	}
	origin := Centroid(pts)
	pv := dir.Perp()
	along = make([]float64, len(pts))
	perp = make([]float64, len(pts))
	for i, p := range pts {
		d := p.Sub(origin)
		along[i] = d.Dot(dir)
		perp[i] = d.Dot(pv)
	}
	return along, perp, nil
}
