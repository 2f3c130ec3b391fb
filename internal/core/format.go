// Package core holds small helpers shared across commands.
package core

import "fmt"

// FormatSize renders a byte count as a human-readable string.
// Examples: "312 B", "4.2 KB", "1.7 GB"
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSizeU is FormatSize for unsigned counts (free-space figures).
func FormatSizeU(bytes uint64) string {
	if bytes > 1<<62 {
		bytes = 1 << 62
	}
	return FormatSize(int64(bytes))
}
