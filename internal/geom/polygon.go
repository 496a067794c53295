package geom

import (
	"errors"
	"math"
	"sort"
)

// ErrDegeneratePolygon is returned when a polygon has too few distinct
// vertices to carry an area.
var ErrDegeneratePolygon = errors.New("polygon requires at least 3 distinct vertices")

// Polygon is a simple closed ring. The closing vertex is implicit; callers
// should not repeat the first vertex.
type Polygon []Point

// Bounds returns the axis-aligned bounding box of the polygon.
func (pg Polygon) Bounds() (minX, minY, maxX, maxY float64) {
	if len(pg) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = pg[0].X, pg[0].X
	minY, maxY = pg[0].Y, pg[0].Y
	for _, p := range pg[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Contains reports whether p lies inside or on the boundary of the
// polygon, using the even-odd ray casting rule with an explicit edge
// check so boundary points count as covered.
func (pg Polygon) Contains(p Point) bool {
	n := len(pg)
	if n < 3 {
		return false
	}
	for i := range n {
		if onSegment(pg[i], pg[(i+1)%n], p) {
			return true
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pg[i], pg[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	const eps = 1e-9
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > eps*math.Max(1, a.Sub(b).Norm()) {
		return false
	}
	dot := p.Sub(a).Dot(b.Sub(a))
	return dot >= -eps && dot <= b.Sub(a).Dot(b.Sub(a))+eps
}

// ConvexHull returns the convex hull of the points in counter-clockwise
// order using the monotone chain algorithm. Collinear points on the hull
// edges are dropped.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		out := make([]Point, len(pts))
		copy(out, pts)
		return out
	}
	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// MinRect is a minimum-area rotated rectangle. Primary is the unit
// direction of the longest edge pair, Secondary the unit direction of the
// shorter pair.
type MinRect struct {
	Corners   [4]Point
	Primary   Vec
	Secondary Vec
	Width     float64 // extent along Primary
	Height    float64 // extent along Secondary
}

// MinimumRotatedRect computes the minimum-area bounding rectangle of the
// points via rotating calipers over the convex hull edges.
func MinimumRotatedRect(pts []Point) (MinRect, error) {
	hull := ConvexHull(pts)
	if len(hull) < 3 {
		return MinRect{}, ErrDegeneratePolygon
	}

	best := MinRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		edge := hull[(i+1)%len(hull)].Sub(hull[i])
		u, err := Normalize(edge, 1e-12)
		if err != nil {
			continue
		}
		v := u.Perp()

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			d := p.Sub(hull[i])
			pu, pv := d.Dot(u), d.Dot(v)
			minU = math.Min(minU, pu)
			maxU = math.Max(maxU, pu)
			minV = math.Min(minV, pv)
			maxV = math.Max(maxV, pv)
		}
		w, h := maxU-minU, maxV-minV
		area := w * h
		if area >= bestArea {
			continue
		}
		bestArea = area
		o := hull[i]
		c0 := o.Add(u.Scale(minU)).Add(v.Scale(minV))
		best = MinRect{
			Corners: [4]Point{
				c0,
				c0.Add(u.Scale(w)),
				c0.Add(u.Scale(w)).Add(v.Scale(h)),
				c0.Add(v.Scale(h)),
			},
			Primary:   u,
			Secondary: v,
			Width:     w,
			Height:    h,
		}
	}
	if math.IsInf(bestArea, 1) {
		return MinRect{}, ErrDegeneratePolygon
	}
	// Longest edge pair defines the primary axis, matching how a field
	// boundary's long side tracks the planting rows.
	if best.Height > best.Width {
		best.Primary, best.Secondary = best.Secondary, best.Primary.Neg()
		best.Width, best.Height = best.Height, best.Width
	}
	return best, nil
}
