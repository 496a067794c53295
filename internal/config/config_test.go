package config

import (
	"testing"
)

// TestDefaultConfig tests the default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.Verbose {
		t.Error("Expected verbose to default to false")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Session.Density.BinWidth != 0.05 {
		t.Errorf("Expected default bin width 0.05, got %f", cfg.Session.Density.BinWidth)
	}
	if cfg.Export.OutputDir != "." {
		t.Errorf("Expected default output dir '.', got %s", cfg.Export.OutputDir)
	}
	if cfg.Raster.ThumbnailEdge != 2048 {
		t.Errorf("Expected default thumbnail edge 2048, got %d", cfg.Raster.ThumbnailEdge)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() should validate, got error: %v", err)
	}
}

// TestConfigValidate tests configuration validation rules.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "debug level is valid",
			mutate:  func(c *Config) { c.LogLevel = "debug" },
			wantErr: false,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: true,
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Server.TimeoutSec = 0 },
			wantErr: true,
		},
		{
			name:    "negative bin width",
			mutate:  func(c *Config) { c.Session.Density.BinWidth = -1 },
			wantErr: true,
		},
		{
			name:    "zero thumbnail edge",
			mutate:  func(c *Config) { c.Raster.ThumbnailEdge = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
