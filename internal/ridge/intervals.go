package ridge

import (
	"fmt"
	"math"
	"sort"
)

// EdgePolicy controls how far the first and last ridge bands extend beyond
// their peaks.
type EdgePolicy string

const (
	// EdgeClampExtent bounds edge ridges by the neighbour half-gap (or
	// the configured buffer, whichever is larger). Far outliers beyond
	// that stay unassigned instead of being absorbed by edge ridges.
	EdgeClampExtent EdgePolicy = "clamp"
	// EdgeUnbounded extends the first and last bands to infinity.
	EdgeUnbounded EdgePolicy = "unbounded"
)

// Interval is one ridge band on the perpendicular axis.
type Interval struct {
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	Center float64 `json:"center"`
}

// Contains reports whether x falls inside the band (bounds inclusive).
func (iv Interval) Contains(x float64) bool { return iv.Lo <= x && x <= iv.Hi }

// BuildIntervals converts sorted peak centers into contiguous bands
// bounded by neighbour midpoints. A single peak gets a band of plus or
// minus buffer around it. Peaks are sorted internally; interval order
// matches ascending center order.
func BuildIntervals(peakCenters []float64, buffer float64, policy EdgePolicy) ([]Interval, error) {
	if buffer <= 0 {
		return nil, fmt.Errorf("%w: interval buffer must be > 0", ErrInvalidParameter)
	}
	switch policy {
	case EdgeClampExtent, EdgeUnbounded:
	default:
		return nil, fmt.Errorf("%w: unknown edge policy %q", ErrInvalidParameter, policy)
	}
	if len(peakCenters) == 0 {
		return []Interval{}, nil
	}
	centers := make([]float64, len(peakCenters))
	copy(centers, peakCenters)
	sort.Float64s(centers)

	if len(centers) == 1 {
		c := centers[0]
		lo, hi := c-buffer, c+buffer
		if policy == EdgeUnbounded {
			lo, hi = math.Inf(-1), math.Inf(1)
		}
		return []Interval{{Lo: lo, Hi: hi, Center: c}}, nil
	}

	out := make([]Interval, len(centers))
	for i, c := range centers {
		var lo, hi float64
		switch {
		case i == 0:
			lo = c - math.Max(buffer, (centers[1]-c)/2)
			hi = (c + centers[1]) / 2
			if policy == EdgeUnbounded {
				lo = math.Inf(-1)
			}
		case i == len(centers)-1:
			lo = (centers[i-1] + c) / 2
			hi = c + math.Max(buffer, (c-centers[i-1])/2)
			if policy == EdgeUnbounded {
				hi = math.Inf(1)
			}
		default:
			lo = (centers[i-1] + c) / 2
			hi = (c + centers[i+1]) / 2
		}
		out[i] = Interval{Lo: lo, Hi: hi, Center: c}
	}
	return out, nil
}
