package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(size float64) Polygon {
	return Polygon{{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size}}
}

func TestPolygonContains(t *testing.T) {
	pg := square(10)
	assert.True(t, pg.Contains(Point{X: 5, Y: 5}))
	assert.True(t, pg.Contains(Point{X: 0, Y: 0}), "corner counts as covered")
	assert.True(t, pg.Contains(Point{X: 10, Y: 5}), "edge counts as covered")
	assert.False(t, pg.Contains(Point{X: 10.01, Y: 5}))
	assert.False(t, pg.Contains(Point{X: -1, Y: -1}))
}

func TestConvexHullDropsInterior(t *testing.T) {
	pts := []Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, {X: 2, Y: 3},
	}
	hull := ConvexHull(pts)
	assert.Len(t, hull, 4)
}

func TestMinimumRotatedRectAxisAligned(t *testing.T) {
	rect, err := MinimumRotatedRect([]Point{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 5}, {X: 0, Y: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, rect.Width, 1e-9)
	assert.InDelta(t, 5.0, rect.Height, 1e-9)
	// Primary axis tracks the long edge (x), up to sign.
	assert.InDelta(t, 1.0, math.Abs(rect.Primary.X), 1e-9)
	assert.InDelta(t, 0.0, rect.Primary.Y, 1e-9)
}

func TestMinimumRotatedRectRotated(t *testing.T) {
	// A 20x5 rectangle rotated by 30 degrees.
	rad := 30 * math.Pi / 180
	u := Vec{X: math.Cos(rad), Y: math.Sin(rad)}
	v := u.Perp()
	base := Point{X: 100, Y: 200}
	pts := []Point{
		base,
		base.Add(u.Scale(20)),
		base.Add(u.Scale(20)).Add(v.Scale(5)),
		base.Add(v.Scale(5)),
	}
	rect, err := MinimumRotatedRect(pts)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, rect.Width, 1e-6)
	assert.InDelta(t, 5.0, rect.Height, 1e-6)
	dot := math.Abs(rect.Primary.Dot(u))
	assert.InDelta(t, 1.0, dot, 1e-9, "primary axis aligned with long edge")
}

func TestMinimumRotatedRectDegenerate(t *testing.T) {
	_, err := MinimumRotatedRect([]Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrDegeneratePolygon)
}

func TestMinimumRotatedRectPrimaryPerpSecondary(t *testing.T) {
	rect, err := MinimumRotatedRect([]Point{
		{X: 0, Y: 0}, {X: 3, Y: 1}, {X: 2, Y: 8}, {X: -1, Y: 6}, {X: 1, Y: 3},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rect.Primary.Dot(rect.Secondary), 1e-9)
	assert.InDelta(t, 1.0, rect.Primary.Norm(), 1e-9)
	assert.InDelta(t, 1.0, rect.Secondary.Norm(), 1e-9)
}
