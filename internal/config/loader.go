package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "agritess"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "AGRITESS"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader. It uses the global viper
// instance so cobra flag bindings resolve through it.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load loads configuration from search paths, environment variables, and
// defaults, then validates it. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal(true)
}

// LoadWithFile loads configuration from a specific file path. An empty
// path falls back to the search-path load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}
	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal(true)
}

func (l *Loader) unmarshal(validate bool) (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/agritess")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "agritess"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "agritess"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Stage defaults
	l.v.SetDefault("session.history_limit", defaults.Session.HistoryLimit)
	l.v.SetDefault("session.debounce_ms", defaults.Session.DebounceMS)
	l.v.SetDefault("session.density.bin_width", defaults.Session.Density.BinWidth)
	l.v.SetDefault("session.density.min_spacing", defaults.Session.Density.MinSpacing)
	l.v.SetDefault("session.density.min_height", defaults.Session.Density.MinHeight)
	l.v.SetDefault("session.assign.buffer", defaults.Session.Assign.Buffer)
	l.v.SetDefault("session.assign.edge_policy", string(defaults.Session.Assign.EdgePolicy))
	l.v.SetDefault("session.assign.ransac.enabled", defaults.Session.Assign.Ransac.Enabled)
	l.v.SetDefault("session.assign.ransac.residual_threshold", defaults.Session.Assign.Ransac.ResidualThreshold)
	l.v.SetDefault("session.assign.ransac.max_trials", defaults.Session.Assign.Ransac.MaxTrials)
	l.v.SetDefault("session.assign.ransac.seed", defaults.Session.Assign.Ransac.Seed)
	l.v.SetDefault("session.numbering.mode", string(defaults.Session.Numbering.Mode))
	l.v.SetDefault("session.numbering.separator", defaults.Session.Numbering.Separator)
	l.v.SetDefault("session.numbering.ridge.style", string(defaults.Session.Numbering.Ridge.Style))
	l.v.SetDefault("session.numbering.ridge.prefix", defaults.Session.Numbering.Ridge.Prefix)
	l.v.SetDefault("session.numbering.plant.style", string(defaults.Session.Numbering.Plant.Style))
	l.v.SetDefault("session.numbering.plant.prefix", defaults.Session.Numbering.Plant.Prefix)
	l.v.SetDefault("session.numbering.continuous.style", string(defaults.Session.Numbering.Continuous.Style))
	l.v.SetDefault("session.numbering.continuous.offset", defaults.Session.Numbering.Continuous.Offset)

	// Server defaults
	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)

	// Export defaults
	l.v.SetDefault("export.run_store", defaults.Export.RunStore)
	l.v.SetDefault("export.output_dir", defaults.Export.OutputDir)

	// Raster defaults
	l.v.SetDefault("raster.dir", defaults.Raster.Dir)
	l.v.SetDefault("raster.thumbnail_edge", defaults.Raster.ThumbnailEdge)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoader()
	loader.setDefaults()
	if filename == "" {
		filename = "agritess.yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "agritess"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "agritess"))
	}
	paths = append(paths, "/etc/agritess")
	return paths
}
