package clean

import (
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
)

// freeSpace samples the free bytes of the filesystem holding the first
// existing root. Free-space deltas are informational only, so a failed
// sample degrades to zero rather than failing the run.
func freeSpace(roots []string) uint64 {
	for _, root := range roots {
		probe := root
		// Walk up until something exists so disk.Usage has a real mount.
		for probe != "" {
			if _, err := os.Stat(probe); err == nil {
				break
			}
			parent := filepath.Dir(probe)
			if parent == probe {
				break
			}
			probe = parent
		}
		usage, err := disk.Usage(probe)
		if err != nil {
			continue
		}
		return usage.Free
	}
	return 0
}

// DirSize totals the apparent size of all files under path. Used by the
// paths command for per-root size listings; not part of the deletion path.
func DirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, count what we can
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total, err
}
