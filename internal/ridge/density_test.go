package ridge

import (
	"math"
	"testing"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeRows returns 12 points in 3 rows of 4 along x (rows at y = 0, 10,
// 20; spacing 2 along x).
func threeRows() []geom.Point {
	var pts []geom.Point
	for _, y := range []float64{0, 10, 20} {
		for i := range 4 {
			pts = append(pts, geom.Point{X: float64(i) * 2, Y: y})
		}
	}
	return pts
}

func TestBuildDensityProfileEmpty(t *testing.T) {
	p, err := BuildDensityProfile(nil, geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)
	assert.Empty(t, p.Bins)
	assert.Empty(t, DetectPeaks(p, 1, 0))
}

func TestBuildDensityProfileInvalidBinWidth(t *testing.T) {
	_, err := BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, -0.5)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBuildDensityProfileRejectsNonUnitDirection(t *testing.T) {
	_, err := BuildDensityProfile(threeRows(), geom.Vec{X: 3, Y: 0}, 1.0)
	assert.ErrorIs(t, err, geom.ErrInvalidDirection)
}

func TestBuildDensityProfileContiguousBins(t *testing.T) {
	// Direction (1,0): perpendicular axis is y, projected range spans 20.
	p, err := BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)

	// len == ceil((max-min)/width), empty bins included.
	assert.Len(t, p.Bins, 20)
	empties := 0
	for i := 1; i < len(p.Bins); i++ {
		assert.InDelta(t, 1.0, p.Bins[i].Center-p.Bins[i-1].Center, 1e-9, "bins contiguous")
		if p.Bins[i].Count == 0 {
			empties++
		}
	}
	assert.Positive(t, empties, "gap bins must be present with count zero")

	total := 0
	for _, b := range p.Bins {
		total += b.Count
	}
	assert.Equal(t, 12, total)
}

func TestBuildDensityProfileSingleValue(t *testing.T) {
	pts := []geom.Point{{X: 0, Y: 5}, {X: 1, Y: 5}, {X: 2, Y: 5}}
	p, err := BuildDensityProfile(pts, geom.Vec{X: 1, Y: 0}, 0.5)
	require.NoError(t, err)
	require.Len(t, p.Bins, 1)
	assert.Equal(t, 3, p.Bins[0].Count)
}

func TestDetectPeaksThreeRows(t *testing.T) {
	p, err := BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)
	peaks := DetectPeaks(p, SpacingToBins(3.0, 1.0), 2)
	require.Len(t, peaks, 3)
	// Projections are centroid-relative: rows at y=0,10,20 project to
	// -10, 0, +10.
	for i, want := range []float64{-10, 0, 10} {
		assert.InDelta(t, want, peaks[i].Center, 1.0, "peak %d", i)
		assert.InDelta(t, 4.0, peaks[i].Height, 1e-9)
	}
}

func TestDetectPeaksIdempotent(t *testing.T) {
	p, err := BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)
	first := DetectPeaks(p, 3, 1)
	for range 10 {
		assert.Equal(t, first, DetectPeaks(p, 3, 1))
	}
}

func TestDetectPeaksSpacingSuppression(t *testing.T) {
	p := Profile{BinWidth: 1, Bins: []Bin{
		{Center: 0.5, Count: 1},
		{Center: 1.5, Count: 5},
		{Center: 2.5, Count: 1},
		{Center: 3.5, Count: 3},
		{Center: 4.5, Count: 1},
	}}
	// Without spacing both local maxima survive.
	assert.Len(t, DetectPeaks(p, 1, 0), 2)
	// Spacing of 3 bins suppresses the shorter peak at index 3.
	peaks := DetectPeaks(p, 3, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 1, peaks[0].Index)
}

func TestDetectPeaksHeightTieKeepsLowerPosition(t *testing.T) {
	p := Profile{BinWidth: 1, Bins: []Bin{
		{Center: 0.5, Count: 1},
		{Center: 1.5, Count: 4},
		{Center: 2.5, Count: 1},
		{Center: 3.5, Count: 4},
		{Center: 4.5, Count: 1},
	}}
	peaks := DetectPeaks(p, 4, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 1, peaks[0].Index, "tie resolves to the lower bin")
}

func TestDetectPeaksMinHeight(t *testing.T) {
	p := Profile{BinWidth: 1, Bins: []Bin{
		{Center: 0.5, Count: 1},
		{Center: 1.5, Count: 2},
		{Center: 2.5, Count: 1},
		{Center: 3.5, Count: 6},
		{Center: 4.5, Count: 1},
	}}
	peaks := DetectPeaks(p, 1, 3)
	require.Len(t, peaks, 1)
	assert.Equal(t, 3, peaks[0].Index)
}

func TestDetectPeaksZeroParamsLegal(t *testing.T) {
	p, err := BuildDensityProfile(threeRows(), geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)
	assert.NotPanics(t, func() { DetectPeaks(p, 0, 0) })
}

func TestDetectPeaksPlateau(t *testing.T) {
	p := Profile{BinWidth: 1, Bins: []Bin{
		{Center: 0.5, Count: 1},
		{Center: 1.5, Count: 3},
		{Center: 2.5, Count: 3},
		{Center: 3.5, Count: 1},
	}}
	peaks := DetectPeaks(p, 1, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 1, peaks[0].Index, "plateau reported at its left edge")
}

func TestSpacingToBins(t *testing.T) {
	assert.Equal(t, 1, SpacingToBins(0, 1))
	assert.Equal(t, 1, SpacingToBins(-2, 1))
	assert.Equal(t, 1, SpacingToBins(0.5, 1))
	assert.Equal(t, 3, SpacingToBins(0.3, 0.1))
	assert.Equal(t, 1, SpacingToBins(5, 0))
}

func TestBuildRidgeLines(t *testing.T) {
	pts := threeRows()
	p, err := BuildDensityProfile(pts, geom.Vec{X: 1, Y: 0}, 1.0)
	require.NoError(t, err)
	peaks := DetectPeaks(p, 3, 2)
	lines, err := BuildRidgeLines(peaks, pts, geom.Vec{X: 1, Y: 0})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for _, ln := range lines {
		// Segments run parallel to the direction (x) for the cloud's
		// full x extent.
		assert.InDelta(t, ln.Start.Y, ln.End.Y, 1e-9)
		assert.InDelta(t, 6.0, math.Abs(ln.End.X-ln.Start.X), 1e-9)
	}
}

func TestBuildRidgeLinesEmpty(t *testing.T) {
	lines, err := BuildRidgeLines(nil, threeRows(), geom.Vec{X: 1, Y: 0})
	require.NoError(t, err)
	assert.Empty(t, lines)
}
