package ridge

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RansacConfig tunes per-ridge robust outlier rejection.
type RansacConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ResidualThreshold float64 `mapstructure:"residual_threshold" yaml:"residual_threshold" json:"residual_threshold"`
	MaxTrials         int     `mapstructure:"max_trials" yaml:"max_trials" json:"max_trials"`
	Seed              int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// DefaultRansacConfig returns refinement defaults. Disabled by default,
// matching the original application's ordering tab.
func DefaultRansacConfig() RansacConfig {
	return RansacConfig{
		Enabled:           false,
		ResidualThreshold: 0.1,
		MaxTrials:         200,
		Seed:              1,
	}
}

// Validate checks refinement parameters.
func (c RansacConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ResidualThreshold <= 0 {
		return fmt.Errorf("%w: ransac residual threshold must be > 0", ErrInvalidParameter)
	}
	if c.MaxTrials < 1 {
		return fmt.Errorf("%w: ransac max trials must be >= 1", ErrInvalidParameter)
	}
	return nil
}

// RefineInliers runs an independent RANSAC pass over every ridge's member
// points and clears IsInlier on points whose perpendicular residual
// exceeds the threshold. RidgeID is never modified: an outlier stays
// attributed to its ridge, it just stops participating in numbering.
//
// The regression treats the perpendicular offset as the dependent
// variable and the along-ridge coordinate as the independent one, the
// same axis convention the original ordering implementation used.
// Ridges with fewer than two members are left all-inlier. The random
// sampler is seeded from cfg.Seed, so identical inputs always produce
// identical inlier sets.
func RefineInliers(assignments []Assignment, along, perp []float64, cfg RansacConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(assignments) != len(along) || len(assignments) != len(perp) {
		return fmt.Errorf("refine: assignments/projections lengths differ (%d/%d/%d)",
			len(assignments), len(along), len(perp))
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	members := MembersByRidge(assignments)
	for ridgeID := 0; ; ridgeID++ {
		idxs, ok := members[ridgeID]
		if !ok {
			if ridgeID > maxRidgeID(assignments) {
				break
			}
			continue
		}
		if len(idxs) < 2 {
			continue
		}
		inlier := ransacLine(idxs, along, perp, cfg, rng)
		for k, idx := range idxs {
			if !inlier[k] {
				assignments[idx].IsInlier = false
			}
		}
	}
	return nil
}

func maxRidgeID(assignments []Assignment) int {
	m := -1
	for _, a := range assignments {
		if a.RidgeID > m {
			m = a.RidgeID
		}
	}
	return m
}

// ransacLine fits perp = alpha + beta*along on random two-point samples
// and returns the consensus inlier mask for the best fit.
func ransacLine(idxs []int, along, perp []float64, cfg RansacConfig, rng *rand.Rand) []bool {
	n := len(idxs)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for k, idx := range idxs {
		xs[k] = along[idx]
		ys[k] = perp[idx]
	}

	bestCount := -1
	bestResid := math.Inf(1)
	var bestAlpha, bestBeta float64
	haveModel := false

	const degenerateSpan = 1e-12
	for trial := 0; trial < cfg.MaxTrials; trial++ {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		dx := xs[j] - xs[i]
		if math.Abs(dx) < degenerateSpan {
			continue
		}
		beta := (ys[j] - ys[i]) / dx
		alpha := ys[i] - beta*xs[i]
		count, resid := scoreModel(xs, ys, alpha, beta, cfg.ResidualThreshold)
		if count > bestCount || (count == bestCount && resid < bestResid) {
			bestCount, bestResid = count, resid
			bestAlpha, bestBeta = alpha, beta
			haveModel = true
		}
	}

	if !haveModel {
		// All along-coordinates coincide; no two-point line exists. Fall
		// back to the median offset, which stays robust to the very
		// outliers this pass is meant to reject.
		sorted := make([]float64, n)
		copy(sorted, ys)
		sort.Float64s(sorted)
		bestAlpha = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		bestBeta = 0
	} else {
		// Refit on the consensus set for a tighter final model.
		var cx, cy []float64
		for k := range xs {
			if math.Abs(ys[k]-(bestAlpha+bestBeta*xs[k])) <= cfg.ResidualThreshold {
				cx = append(cx, xs[k])
				cy = append(cy, ys[k])
			}
		}
		if len(cx) >= 2 && span(cx) > degenerateSpan {
			bestAlpha, bestBeta = stat.LinearRegression(cx, cy, nil, false)
		}
	}

	inlier := make([]bool, n)
	for k := range xs {
		inlier[k] = math.Abs(ys[k]-(bestAlpha+bestBeta*xs[k])) <= cfg.ResidualThreshold
	}
	return inlier
}

func scoreModel(xs, ys []float64, alpha, beta, threshold float64) (count int, meanResid float64) {
	var sum float64
	for k := range xs {
		r := math.Abs(ys[k] - (alpha + beta*xs[k]))
		if r <= threshold {
			count++
			sum += r
		}
	}
	if count == 0 {
		return 0, math.Inf(1)
	}
	return count, sum / float64(count)
}

func span(xs []float64) float64 {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return hi - lo
}
