package ridge

import "fmt"

// DensityConfig tunes the density profile and peak detection stage.
type DensityConfig struct {
	// BinWidth is the histogram cell width in projected units (metres
	// for UTM fields).
	BinWidth float64 `mapstructure:"bin_width" yaml:"bin_width" json:"bin_width"`
	// MinSpacing is the minimum ridge separation in projected units;
	// converted to bins with SpacingToBins.
	MinSpacing float64 `mapstructure:"min_spacing" yaml:"min_spacing" json:"min_spacing"`
	// MinHeight is the minimum peak count.
	MinHeight float64 `mapstructure:"min_height" yaml:"min_height" json:"min_height"`
}

// DefaultDensityConfig returns density stage defaults sized for typical
// row crops (rows ~0.7 m apart).
func DefaultDensityConfig() DensityConfig {
	return DensityConfig{
		BinWidth:   0.05,
		MinSpacing: 0.3,
		MinHeight:  3,
	}
}

// Validate checks density parameters. MinSpacing and MinHeight of zero
// are legal degenerate-permissive settings.
func (c DensityConfig) Validate() error {
	if c.BinWidth <= 0 {
		return fmt.Errorf("%w: bin width must be > 0", ErrInvalidParameter)
	}
	if c.MinSpacing < 0 {
		return fmt.Errorf("%w: min spacing must be >= 0", ErrInvalidParameter)
	}
	if c.MinHeight < 0 {
		return fmt.Errorf("%w: min height must be >= 0", ErrInvalidParameter)
	}
	return nil
}

// AssignConfig tunes ridge band construction and refinement.
type AssignConfig struct {
	// Buffer is the half width for a single-ridge band and the minimum
	// edge extension for the outermost bands.
	Buffer     float64      `mapstructure:"buffer" yaml:"buffer" json:"buffer"`
	EdgePolicy EdgePolicy   `mapstructure:"edge_policy" yaml:"edge_policy" json:"edge_policy"`
	Ransac     RansacConfig `mapstructure:"ransac" yaml:"ransac" json:"ransac"`
}

// DefaultAssignConfig returns assignment defaults. Edge bands clamp to
// the point-cloud extent so distant strays stay unassigned.
func DefaultAssignConfig() AssignConfig {
	return AssignConfig{
		Buffer:     0.35,
		EdgePolicy: EdgeClampExtent,
		Ransac:     DefaultRansacConfig(),
	}
}

// Validate checks assignment parameters.
func (c AssignConfig) Validate() error {
	if c.Buffer <= 0 {
		return fmt.Errorf("%w: interval buffer must be > 0", ErrInvalidParameter)
	}
	switch c.EdgePolicy {
	case EdgeClampExtent, EdgeUnbounded:
	default:
		return fmt.Errorf("%w: unknown edge policy %q", ErrInvalidParameter, c.EdgePolicy)
	}
	return c.Ransac.Validate()
}
