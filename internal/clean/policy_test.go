package clean

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/clearmodel/internal/scan"
)

func TestShouldClean(t *testing.T) {
	p := NewPolicy(7, []string{".pyc", ".pyo", ".pyd"})
	now := time.Now()

	tests := []struct {
		name   string
		entry  scan.Entry
		want   bool
		reason string
	}{
		{
			name:  "python cache extension always qualifies",
			entry: scan.Entry{Path: "/cache/torch/module.pyc", ModTime: now},
			want:  true,
		},
		{
			name:  "extension match is case-insensitive",
			entry: scan.Entry{Path: "/cache/torch/module.PYC", ModTime: now},
			want:  true,
		},
		{
			name:  "anything under __pycache__ qualifies",
			entry: scan.Entry{Path: "/cache/proj/__pycache__/mod.cpython-312.bin", ModTime: now},
			want:  true,
		},
		{
			name:  "old file qualifies by age",
			entry: scan.Entry{Path: "/cache/torch/model.bin", ModTime: now.Add(-10 * 24 * time.Hour)},
			want:  true,
		},
		{
			name:   "recent plain file is skipped",
			entry:  scan.Entry{Path: "/cache/torch/model.bin", ModTime: now.Add(-24 * time.Hour)},
			want:   false,
			reason: "too-recent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := p.ShouldClean(tt.entry, now)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.reason, reason)
		})
	}
}

func TestDirQualifies(t *testing.T) {
	p := NewPolicy(7, nil)
	now := time.Now()

	// A directory whose scanned children all qualified is removable.
	require.True(t, p.DirQualifies(scan.Entry{Path: "/cache/x", ModTime: now}, true, now))

	// An empty directory is only removed once it is old itself.
	require.False(t, p.DirQualifies(scan.Entry{Path: "/cache/x", ModTime: now}, false, now))
	require.True(t, p.DirQualifies(scan.Entry{Path: "/cache/x", ModTime: now.Add(-30 * 24 * time.Hour)}, false, now))

	// __pycache__ directories go regardless of their own mtime.
	require.True(t, p.DirQualifies(scan.Entry{Path: filepath.Join("/cache", "__pycache__"), ModTime: now}, false, now))
}
