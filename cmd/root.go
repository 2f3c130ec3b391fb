// Package cmd wires the CLI. Commands stay thin: they parse flags, resolve
// configuration, hand an immutable config to the engine, and render what
// comes back.
package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/clearmodel/internal/clean"
	"github.com/GriffinCanCode/clearmodel/internal/config"
	"github.com/GriffinCanCode/clearmodel/internal/logging"
	"github.com/GriffinCanCode/clearmodel/internal/scan"
	"github.com/GriffinCanCode/clearmodel/internal/security"
)

var (
	// Global flags
	debug   bool
	verbose bool
	cfgFile string

	log zerolog.Logger

	// Version info populated from main
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets build-time version information.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "clearmodel",
	Short: "Secure ML model cache cleaner",
	Long: `ClearModel - Secure ML model cache cleaner.

Locates, validates, and selectively deletes machine-learning framework
caches (HuggingFace, PyTorch, TensorFlow, Keras, ...) with path traversal
protection, bounded-depth scanning, and confirmation gating for large
deletions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logging.Setup(debug, verbose)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")

	// Register all subcommands
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the layered configuration and logs advisories.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	return cfg, nil
}

// buildPipeline assembles the validator, scanner, and executor from an
// immutable config. Returns the existing roots the run will cover.
func buildPipeline(cfg *config.Config, dryRun, force bool) (*clean.Executor, *scan.Scanner, []string, error) {
	if !cfg.Security.ValidateCachePaths {
		log.Error().Msg("SECURITY: path validation is DISABLED (security.validate_cache_paths=false) — every scanned path will be accepted")
	}

	validator, err := security.NewValidator(cfg.CachePaths, security.Policy{
		MaxPathDepth:   cfg.Security.MaxPathDepth,
		FollowSymlinks: cfg.FollowSymlinks,
		Disabled:       !cfg.Security.ValidateCachePaths,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid cache roots: %w", err)
	}

	// Skip-directory pruning and the depth bound stay on even when the
	// validator is disabled.
	scanner := scan.New(validator, scan.Options{
		SkipDirectories: cfg.SkipDirectories,
		MaxDepth:        cfg.Security.MaxPathDepth,
		FollowSymlinks:  cfg.FollowSymlinks,
	})

	executor := &clean.Executor{
		Validator:             validator,
		Policy:                clean.NewPolicy(cfg.MaxCacheAgeDays, cfg.PythonCacheExtensions),
		Workers:               cfg.MaxParallelOperations,
		DryRun:                dryRun,
		Force:                 force,
		ConfirmThresholdBytes: cfg.ConfirmThresholdBytes(),
		Log:                   log,
	}

	roots := cfg.ExistingCachePaths()
	if len(roots) == 0 {
		return nil, nil, nil, fmt.Errorf("no readable cache roots: none of the configured cache_paths exist")
	}

	return executor, scanner, roots, nil
}
