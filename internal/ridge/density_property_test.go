package ridge

import (
	"math"
	"testing"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPoints() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
	).Map(func(vals []interface{}) geom.Point {
		return geom.Point{X: vals[0].(float64), Y: vals[1].(float64)}
	}))
}

func genUnitVec() gopter.Gen {
	return gen.Float64Range(0, 2*math.Pi).Map(func(theta float64) geom.Vec {
		return geom.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
	})
}

func TestDensityProfileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("bins are contiguous and cover every point", prop.ForAll(
		func(pts []geom.Point, dir geom.Vec, binWidth float64) bool {
			p, err := BuildDensityProfile(pts, dir, binWidth)
			if err != nil {
				return false
			}
			if len(pts) == 0 {
				return len(p.Bins) == 0
			}
			total := 0
			for i, b := range p.Bins {
				total += b.Count
				if i > 0 {
					gap := b.Center - p.Bins[i-1].Center
					if math.Abs(gap-binWidth) > 1e-6*binWidth {
						return false
					}
				}
			}
			return total == len(pts)
		},
		genPoints(), genUnitVec(), gen.Float64Range(0.01, 10),
	))

	properties.Property("bin count matches ceil(span/width)", prop.ForAll(
		func(pts []geom.Point, binWidth float64) bool {
			if len(pts) == 0 {
				return true
			}
			dir := geom.Vec{X: 1, Y: 0}
			perp, err := geom.Project(pts, dir.Perp())
			if err != nil {
				return false
			}
			lo, hi := perp[0], perp[0]
			for _, v := range perp {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			want := int(math.Ceil((hi - lo) / binWidth))
			if want < 1 {
				want = 1
			}
			p, err := BuildDensityProfile(pts, dir, binWidth)
			return err == nil && len(p.Bins) == want
		},
		genPoints(), gen.Float64Range(0.01, 10),
	))

	properties.Property("peak detection is deterministic", prop.ForAll(
		func(counts []int, spacing int) bool {
			bins := make([]Bin, len(counts))
			for i, c := range counts {
				bins[i] = Bin{Center: float64(i) + 0.5, Count: c}
			}
			p := Profile{BinWidth: 1, Bins: bins}
			first := DetectPeaks(p, spacing, 1)
			for range 3 {
				again := DetectPeaks(p, spacing, 1)
				if len(again) != len(first) {
					return false
				}
				for i := range first {
					if first[i] != again[i] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)), gen.IntRange(0, 10),
	))

	properties.Property("kept peaks honour the minimum spacing", prop.ForAll(
		func(counts []int, spacing int) bool {
			bins := make([]Bin, len(counts))
			for i, c := range counts {
				bins[i] = Bin{Center: float64(i) + 0.5, Count: c}
			}
			peaks := DetectPeaks(Profile{BinWidth: 1, Bins: bins}, spacing, 1)
			for i := 1; i < len(peaks); i++ {
				if peaks[i].Index-peaks[i-1].Index < spacing {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)), gen.IntRange(2, 8),
	))

	properties.TestingRun(t)
}

func TestAssignmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("assignment partitions points", prop.ForAll(
		func(perp []float64, centers []float64) bool {
			ivs, err := BuildIntervals(centers, 0.5, EdgeClampExtent)
			if err != nil {
				return false
			}
			ids := make([]int64, len(perp))
			eff := make([]bool, len(perp))
			for i := range ids {
				ids[i] = int64(i)
				eff[i] = true
			}
			asn, err := AssignToRidges(ids, perp, eff, ivs)
			if err != nil {
				return false
			}
			for _, a := range asn {
				validRidge := a.RidgeID >= 0 && a.RidgeID < len(ivs)
				if !validRidge && a.RidgeID != Unassigned {
					return false
				}
				if a.RidgeID == Unassigned && a.IsInlier {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-100, 100)),
		gen.SliceOf(gen.Float64Range(-100, 100)),
	))

	properties.Property("refinement never changes ridge ids", prop.ForAll(
		func(along []float64, seed int64) bool {
			n := len(along)
			perp := make([]float64, n)
			for i, a := range along {
				perp[i] = math.Mod(a, 3)
			}
			asn := make([]Assignment, n)
			for i := range asn {
				asn[i] = Assignment{PointID: int64(i), RidgeID: i % 3, IsInlier: true}
			}
			before := make([]int, n)
			for i, a := range asn {
				before[i] = a.RidgeID
			}
			cfg := RansacConfig{Enabled: true, ResidualThreshold: 0.5, MaxTrials: 50, Seed: seed}
			if err := RefineInliers(asn, along, perp, cfg); err != nil {
				return false
			}
			for i, a := range asn {
				if a.RidgeID != before[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-100, 100)),
		gen.Int64Range(1, 1<<30),
	))

	properties.TestingRun(t)
}
