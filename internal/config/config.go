// Package config handles configuration loading and management for cldev.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for cldev.
type Config struct {
	Records    RecordsConfig    `mapstructure:"records"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Query      QueryConfig      `mapstructure:"query"`
}

// RecordsConfig locates the markdown records and the index database.
type RecordsConfig struct {
	// Dir is the directory holding the markdown learning records.
	Dir string `mapstructure:"dir"`
	// DBPath is the SQLite index file. Empty means <dir>/index.db.
	DBPath string `mapstructure:"db_path"`
}

// SimilarityConfig holds error-matching settings.
type SimilarityConfig struct {
	// Threshold is the minimum similarity score for a fuzzy error match.
	Threshold float64 `mapstructure:"threshold"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	// Limit is the default maximum number of results per query.
	Limit int `mapstructure:"limit"`
}

// DBPath resolves the index database location, defaulting to index.db
// inside the records directory.
func (c *Config) DBPath() string {
	if c.Records.DBPath != "" {
		return c.Records.DBPath
	}
	return filepath.Join(c.Records.Dir, "index.db")
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (CLDEV_RECORDS_DIR, CLDEV_DB_PATH)
// 2. Project config (.cldev.yaml in current directory or parent)
// 3. User config (~/.config/cldev/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence over the user config.
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("records.dir", "CLDEV_RECORDS_DIR")
	v.BindEnv("records.db_path", "CLDEV_DB_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in paths.
	cfg.Records.Dir = os.ExpandEnv(cfg.Records.Dir)
	cfg.Records.DBPath = os.ExpandEnv(cfg.Records.DBPath)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Records.Dir = os.ExpandEnv(cfg.Records.Dir)
	cfg.Records.DBPath = os.ExpandEnv(cfg.Records.DBPath)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("records.dir", cfg.Records.Dir)
	v.Set("records.db_path", cfg.Records.DBPath)
	v.Set("similarity.threshold", cfg.Similarity.Threshold)
	v.Set("query.limit", cfg.Query.Limit)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("records.dir", defaultRecordsDir())
	v.SetDefault("records.db_path", "")
	v.SetDefault("similarity.threshold", 0.7)
	v.SetDefault("query.limit", 10)
}

// defaultRecordsDir returns ~/.cldev/learning-records.
func defaultRecordsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cldev", "learning-records")
	}
	return filepath.Join(home, ".cldev", "learning-records")
}

// getUserConfigDir returns the XDG config directory for cldev.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cldev")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "cldev")
	}
	return filepath.Join(home, ".config", "cldev")
}

// findProjectConfig searches for .cldev.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".cldev.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Records: RecordsConfig{
			Dir: defaultRecordsDir(),
		},
		Similarity: SimilarityConfig{
			Threshold: 0.7,
		},
		Query: QueryConfig{
			Limit: 10,
		},
	}
}
