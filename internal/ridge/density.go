package ridge

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidParameter is returned for non-positive bin widths and other
// out-of-range stage parameters.
var ErrInvalidParameter = errors.New("invalid stage parameter")

// Bin is one histogram cell of the density profile.
type Bin struct {
	Center float64 `json:"center"`
	Count  int     `json:"count"`
}

// Profile is a contiguous histogram of perpendicular projections. Bins
// cover the full projected range with no gaps; cells with no points are
// present with Count zero. Peak detection depends on the valley shape an
// empty bin carries, so sparse histograms are deliberately not produced.
type Profile struct {
	BinWidth float64 `json:"bin_width"`
	Min      float64 `json:"min"`
	Bins     []Bin   `json:"bins"`
}

// Counts returns the bin counts as a float slice for peak detection.
func (p Profile) Counts() []float64 {
	out := make([]float64, len(p.Bins))
	for i, b := range p.Bins {
		out[i] = float64(b.Count)
	}
	return out
}

// BuildDensityProfile projects points onto the axis perpendicular to the
// unit direction and bins the projections. Zero points yield an empty
// profile, not an error.
func BuildDensityProfile(pts []geom.Point, dir geom.Vec, binWidth float64) (Profile, error) {
	if binWidth <= 0 {
		return Profile{}, fmt.Errorf("%w: bin width must be > 0", ErrInvalidParameter)
	}
	perp, err := geom.Project(pts, dir.Perp())
	if err != nil {
		return Profile{}, err
	}
	return buildProfile(perp, binWidth), nil
}

// BuildProfileFromProjections bins already-projected perpendicular
// offsets. The session controller uses this form so projection runs once
// per recompute.
func BuildProfileFromProjections(perp []float64, binWidth float64) (Profile, error) {
	if binWidth <= 0 {
		return Profile{}, fmt.Errorf("%w: bin width must be > 0", ErrInvalidParameter)
	}
	return buildProfile(perp, binWidth), nil
}

func buildProfile(perp []float64, binWidth float64) Profile {
	if len(perp) == 0 {
		return Profile{BinWidth: binWidth, Bins: []Bin{}}
	}
	lo := floats.Min(perp)
	hi := floats.Max(perp)
	span := hi - lo
	n := int(math.Ceil(span / binWidth))
	if n < 1 {
		n = 1
	}
	counts := make([]int, n)
	for _, x := range perp {
		idx := int((x - lo) / binWidth)
		if idx >= n {
			idx = n - 1 // the upper range bound is inclusive
		}
		counts[idx]++
	}
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Center: lo + (float64(i)+0.5)*binWidth, Count: counts[i]}
	}
	return Profile{BinWidth: binWidth, Min: lo, Bins: bins}
}

// Peak is one detected ridge center on the perpendicular axis.
type Peak struct {
	Index  int     `json:"index"`
	Center float64 `json:"center"`
	Height float64 `json:"height"`
}

// SpacingToBins converts a minimum ridge separation in projected units to
// a bin count for DetectPeaks. Non-positive inputs collapse to 1.
func SpacingToBins(spacing, binWidth float64) int {
	if binWidth <= 0 || spacing <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(spacing/binWidth)))
}

// DetectPeaks finds local maxima in the profile with minimum spacing (in
// bins) and minimum height. Candidates closer than minSpacing to a taller
// kept peak are suppressed; height ties resolve to the lower bin position.
// Detection is fully deterministic: equal inputs give equal output.
func DetectPeaks(p Profile, minSpacing int, minHeight float64) []Peak {
	counts := p.Counts()
	candidates := localMaxima(counts, minHeight)
	if minSpacing > 1 && len(candidates) > 1 {
		candidates = suppressClose(candidates, counts, minSpacing)
	}
	peaks := make([]Peak, 0, len(candidates))
	for _, idx := range candidates {
		peaks = append(peaks, Peak{
			Index:  idx,
			Center: p.Bins[idx].Center,
			Height: counts[idx],
		})
	}
	return peaks
}

// PeakCenters returns the Center of each peak.
func PeakCenters(peaks []Peak) []float64 {
	out := make([]float64, len(peaks))
	for i, pk := range peaks {
		out[i] = pk.Center
	}
	return out
}

// localMaxima returns bin indices that are strict local maxima, with
// plateaus represented by their leftmost bin. Endpoints qualify when the
// profile rises toward or falls away from them on the single available
// side; a one-bin profile is its own maximum.
func localMaxima(counts []float64, minHeight float64) []int {
	n := len(counts)
	var out []int
	for i := 0; i < n; i++ {
		c := counts[i]
		if c < minHeight || c <= 0 {
			continue
		}
		if i > 0 && counts[i-1] >= c {
			continue
		}
		// Scan across a flat top; the left edge carries the peak.
		j := i
		for j+1 < n && counts[j+1] == c {
			j++
		}
		if j+1 < n && counts[j+1] > c {
			continue
		}
		out = append(out, i)
		i = j
	}
	return out
}

// suppressClose greedily keeps the tallest candidates first and removes
// any remaining candidate within minSpacing bins of a kept one.
func suppressClose(candidates []int, counts []float64, minSpacing int) []int {
	order := make([]int, len(candidates))
	copy(order, candidates)
	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return order[a] < order[b]
	})
	suppressed := make(map[int]bool, len(candidates))
	for _, idx := range order {
		if suppressed[idx] {
			continue
		}
		for _, other := range candidates {
			if other == idx || suppressed[other] {
				continue
			}
			if abs(other-idx) < minSpacing {
				suppressed[other] = true
			}
		}
	}
	kept := candidates[:0:0]
	for _, idx := range candidates {
		if !suppressed[idx] {
			kept = append(kept, idx)
		}
	}
	return kept
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
