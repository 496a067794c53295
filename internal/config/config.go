// Package config loads the application configuration from files,
// environment variables, and flag bindings, in that order of increasing
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/server"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/session"
)

// Config represents the complete configuration for the application. It
// covers every command (rename, chart, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline stage parameters
	Session session.Config `mapstructure:"session" yaml:"session" json:"session"`

	// Server configuration (for serve command)
	Server server.Config `mapstructure:"server" yaml:"server" json:"server"`

	// Export configuration
	Export ExportConfig `mapstructure:"export" yaml:"export" json:"export"`

	// Basemap raster configuration
	Raster RasterConfig `mapstructure:"raster" yaml:"raster" json:"raster"`
}

// ExportConfig contains export destinations.
type ExportConfig struct {
	// RunStore is the SQLite file keeping past numbering runs. Empty
	// disables run persistence.
	RunStore string `mapstructure:"run_store" yaml:"run_store" json:"run_store"`
	// OutputDir is where rename writes its CSV/GeoJSON artifacts.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
}

// RasterConfig contains basemap loading settings.
type RasterConfig struct {
	// Dir holds orthomosaic tiles to draw under the point cloud.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
	// ThumbnailEdge is the longest display edge in pixels.
	ThumbnailEdge int `mapstructure:"thumbnail_edge" yaml:"thumbnail_edge" json:"thumbnail_edge"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Session:  session.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Export: ExportConfig{
			OutputDir: ".",
		},
		Raster: RasterConfig{
			ThumbnailEdge: 2048,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", c.LogLevel)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server timeout must be > 0, got %d", c.Server.TimeoutSec)
	}
	if c.Raster.ThumbnailEdge <= 0 {
		return fmt.Errorf("raster thumbnail edge must be > 0, got %d", c.Raster.ThumbnailEdge)
	}
	return nil
}
