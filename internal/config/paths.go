package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ExpandHome resolves a leading "~" against the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// DefaultCachePaths returns the standard ML framework cache locations for
// the current platform. Missing directories are reported as warnings at
// load time, not errors — most machines only have a few of these.
func DefaultCachePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	cacheDirs := []string{
		".cache/huggingface",
		".cache/torch",
		".cache/tensorflow",
		".cache/keras",
		".cache/transformers",
		".cache/anthropic",
		".cache/openai",
		".cache/pytorch",
		".cache/models",
		".keras",
		".transformers",
	}

	paths := make([]string, 0, len(cacheDirs)+3)
	for _, dir := range cacheDirs {
		paths = append(paths, filepath.Join(home, filepath.FromSlash(dir)))
	}

	if runtime.GOOS == "darwin" {
		for _, dir := range []string{
			"Library/Caches/torch",
			"Library/Caches/tensorflow",
			"Library/Caches/models",
		} {
			paths = append(paths, filepath.Join(home, filepath.FromSlash(dir)))
		}
	}

	return paths
}
