// Package config provides layered configuration for clearmodel: programmatic
// defaults, an optional config file, then CLEARMODEL_* environment overrides.
// The result is resolved once at startup into an immutable value; the engine
// never re-reads configuration mid-run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete configuration for a cleanup run.
type Config struct {
	// CachePaths are the trusted root directories to scan. "~" is allowed.
	CachePaths []string `mapstructure:"cache_paths"`

	// MaxCacheAgeDays is the age threshold for age-based selection.
	MaxCacheAgeDays int `mapstructure:"max_cache_age_days"`

	// MaxParallelOperations bounds the deletion worker pool.
	MaxParallelOperations int `mapstructure:"max_parallel_operations"`

	// FollowSymlinks permits traversal through symlinked directories.
	FollowSymlinks bool `mapstructure:"follow_symlinks"`

	// PythonCacheExtensions always qualify for deletion (".pyc" style).
	PythonCacheExtensions []string `mapstructure:"python_cache_extensions"`

	// SkipDirectories are names pruned during scanning without descent.
	SkipDirectories []string `mapstructure:"skip_directories"`

	// MinFreeSpaceGB is the free-space level below which cleanup is advised.
	MinFreeSpaceGB uint64 `mapstructure:"min_free_space_gb"`

	// DefaultDryRun makes runs simulate unless explicitly overridden.
	DefaultDryRun bool `mapstructure:"default_dry_run"`

	LogLevel string `mapstructure:"log_level"`

	Security SecurityConfig `mapstructure:"security"`
}

// SecurityConfig groups the safety knobs of the traversal engine.
type SecurityConfig struct {
	// ValidateCachePaths enables the path validator. Disabling it is a
	// documented risk escape hatch and is logged loudly at startup.
	ValidateCachePaths bool `mapstructure:"validate_cache_paths"`

	// CheckPathTraversal keeps the traversal/boundary checks on. Retained
	// for compatibility; the validator always applies them when enabled.
	CheckPathTraversal bool `mapstructure:"check_path_traversal"`

	// MaxPathDepth bounds components below a matched root.
	MaxPathDepth int `mapstructure:"max_path_depth"`

	// RequireConfirmationThresholdGB halts real deletions above this total
	// until the caller confirms. Zero disables the gate.
	RequireConfirmationThresholdGB int64 `mapstructure:"require_confirmation_threshold_gb"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CachePaths:            DefaultCachePaths(),
		MaxCacheAgeDays:       7,
		MaxParallelOperations: 10,
		FollowSymlinks:        false,
		PythonCacheExtensions: []string{".pyc", ".pyo", ".pyd"},
		SkipDirectories: []string{
			".git", ".svn", "node_modules", ".venv", "venv", "__pycache__",
		},
		MinFreeSpaceGB: 1,
		DefaultDryRun:  false,
		LogLevel:       "info",
		Security: SecurityConfig{
			ValidateCachePaths:             true,
			CheckPathTraversal:             true,
			MaxPathDepth:                   20,
			RequireConfirmationThresholdGB: 10,
		},
	}
}

// Load resolves the layered configuration. When path is empty, the standard
// locations are searched: ./clearmodel.{toml,yaml,json}, ~/.config/clearmodel/
// and the home directory. Environment variables win over the file, e.g.
// CLEARMODEL_MAX_CACHE_AGE_DAYS=14 or CLEARMODEL_SECURITY__MAX_PATH_DEPTH=10.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	setDefaults(v, def)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("clearmodel")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "clearmodel"))
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a malformed one is fatal.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CLEARMODEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	for i, p := range cfg.CachePaths {
		cfg.CachePaths[i] = ExpandHome(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every default under its mapstructure key so viper can
// layer the file and environment on top.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("cache_paths", def.CachePaths)
	v.SetDefault("max_cache_age_days", def.MaxCacheAgeDays)
	v.SetDefault("max_parallel_operations", def.MaxParallelOperations)
	v.SetDefault("follow_symlinks", def.FollowSymlinks)
	v.SetDefault("python_cache_extensions", def.PythonCacheExtensions)
	v.SetDefault("skip_directories", def.SkipDirectories)
	v.SetDefault("min_free_space_gb", def.MinFreeSpaceGB)
	v.SetDefault("default_dry_run", def.DefaultDryRun)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("security.validate_cache_paths", def.Security.ValidateCachePaths)
	v.SetDefault("security.check_path_traversal", def.Security.CheckPathTraversal)
	v.SetDefault("security.max_path_depth", def.Security.MaxPathDepth)
	v.SetDefault("security.require_confirmation_threshold_gb", def.Security.RequireConfirmationThresholdGB)
}

// Validate rejects configurations the engine cannot run with. Errors name
// the offending field; they are fatal before any scanning starts.
func (c *Config) Validate() error {
	if len(c.CachePaths) == 0 {
		return fmt.Errorf("cache_paths: no cache paths configured")
	}
	if c.MaxCacheAgeDays < 0 {
		return fmt.Errorf("max_cache_age_days: must be >= 0, got %d", c.MaxCacheAgeDays)
	}
	if c.MaxParallelOperations < 1 {
		return fmt.Errorf("max_parallel_operations: must be >= 1, got %d", c.MaxParallelOperations)
	}
	if c.Security.MaxPathDepth < 1 {
		return fmt.Errorf("security.max_path_depth: must be >= 1, got %d", c.Security.MaxPathDepth)
	}
	if c.Security.RequireConfirmationThresholdGB < 0 {
		return fmt.Errorf("security.require_confirmation_threshold_gb: must be >= 0, got %d", c.Security.RequireConfirmationThresholdGB)
	}
	for _, p := range c.CachePaths {
		if isUserDataPath(p) {
			return fmt.Errorf("cache_paths: refusing user data directory %q", p)
		}
	}
	return nil
}

// Warnings returns non-fatal configuration advisories: roots that are
// missing, or that do not look like cache directories at all.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, p := range c.CachePaths {
		if info, err := os.Stat(p); err != nil {
			warnings = append(warnings, fmt.Sprintf("cache path does not exist: %s", p))
		} else if !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("cache path is not a directory: %s", p))
		}
		if !looksLikeCachePath(p) {
			warnings = append(warnings, fmt.Sprintf("path does not look like a cache directory: %s", p))
		}
	}
	return warnings
}

// ExistingCachePaths filters the configured roots to those present on disk.
func (c *Config) ExistingCachePaths() []string {
	var existing []string
	for _, p := range c.CachePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			existing = append(existing, p)
		}
	}
	return existing
}

// ConfirmThresholdBytes converts the GB threshold to bytes (0 = disabled).
func (c *Config) ConfirmThresholdBytes() int64 {
	return c.Security.RequireConfirmationThresholdGB * 1 << 30
}

// cacheIndicators mark paths that plausibly hold framework caches.
var cacheIndicators = []string{
	"cache", "tmp", "temp", "huggingface", "torch", "tensorflow",
	"keras", "transformers", "anthropic", "openai", "pytorch", "models",
}

// userDataIndicators mark directories that hold a person's files; cleaning
// them is never acceptable whatever the rest of the path says.
var userDataIndicators = []string{
	"documents", "desktop", "downloads", "pictures",
	"music", "videos", "dropbox", "googledrive",
}

func looksLikeCachePath(p string) bool {
	lower := strings.ToLower(p)
	for _, ind := range cacheIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func isUserDataPath(p string) bool {
	lower := strings.ToLower(p)
	for _, ind := range userDataIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
