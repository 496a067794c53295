// Package numbering turns ridge assignments into stable per-plant labels:
// ranking ridges and plants along the resolved direction, rendering
// structured label strings, and flagging collisions.
package numbering

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a numbering configuration cannot be
// used.
var ErrInvalidConfig = errors.New("invalid numbering config")

// SequenceStyle selects how a rank renders as text.
type SequenceStyle string

const (
	// StyleNumeric renders ranks as decimal integers.
	StyleNumeric SequenceStyle = "numeric"
	// StyleAlphabetic renders ranks as spreadsheet columns: A..Z, AA...
	StyleAlphabetic SequenceStyle = "alphabetic"
)

// Mode is the closed set of labeling schemes.
type Mode string

const (
	// ModeRidgePlant labels each point with a ridge component and a
	// plant-within-ridge component, e.g. "R3-P12".
	ModeRidgePlant Mode = "ridge_plant"
	// ModeContinuous labels all numbered points with one global sequence
	// ordered by ridge rank then plant rank.
	ModeContinuous Mode = "continuous"
)

// Component configures one label part.
type Component struct {
	Style  SequenceStyle `mapstructure:"style" yaml:"style" json:"style"`
	Offset int           `mapstructure:"offset" yaml:"offset" json:"offset"`
	Prefix string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Suffix string        `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
}

func (c Component) validate(name string) error {
	switch c.Style {
	case StyleNumeric, StyleAlphabetic:
	default:
		return fmt.Errorf("%w: %s style must be numeric or alphabetic, got %q", ErrInvalidConfig, name, c.Style)
	}
	if c.Offset < 0 {
		return fmt.Errorf("%w: %s offset must be >= 0", ErrInvalidConfig, name)
	}
	return nil
}

// Config is the full numbering configuration, validated at construction
// rather than at use.
type Config struct {
	Mode Mode `mapstructure:"mode" yaml:"mode" json:"mode"`

	// RidgeDescending and PlantDescending flip the respective sort
	// directions.
	RidgeDescending bool `mapstructure:"ridge_descending" yaml:"ridge_descending" json:"ridge_descending"`
	PlantDescending bool `mapstructure:"plant_descending" yaml:"plant_descending" json:"plant_descending"`

	// Ridge and Plant configure the two components of ModeRidgePlant;
	// Separator joins them.
	Ridge     Component `mapstructure:"ridge" yaml:"ridge" json:"ridge"`
	Plant     Component `mapstructure:"plant" yaml:"plant" json:"plant"`
	Separator string    `mapstructure:"separator" yaml:"separator" json:"separator"`

	// Continuous configures the single component of ModeContinuous.
	Continuous Component `mapstructure:"continuous" yaml:"continuous" json:"continuous"`
}

// DefaultConfig returns the scheme the original application ships with:
// "R<ridge>-P<plant>", zero-based numeric components.
func DefaultConfig() Config {
	return Config{
		Mode:       ModeRidgePlant,
		Ridge:      Component{Style: StyleNumeric, Prefix: "R"},
		Plant:      Component{Style: StyleNumeric, Prefix: "P"},
		Separator:  "-",
		Continuous: Component{Style: StyleNumeric, Offset: 1},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeRidgePlant:
		if err := c.Ridge.validate("ridge"); err != nil {
			return err
		}
		return c.Plant.validate("plant")
	case ModeContinuous:
		return c.Continuous.validate("continuous")
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
}
