package clean

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/clearmodel/internal/scan"
)

// pycacheDir is the Python bytecode cache directory name. Anything inside
// one is fair game regardless of age or extension.
const pycacheDir = "__pycache__"

// Policy decides whether a scanned entry qualifies for deletion. Entries are
// already validated upstream; the policy only looks at age, extension, and
// location.
type Policy struct {
	maxAge     time.Duration
	extensions map[string]bool
}

// NewPolicy builds a Policy from the configured age limit (days) and the
// Python cache extension list (".pyc" style, matched case-insensitively).
func NewPolicy(maxAgeDays int, extensions []string) *Policy {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Policy{
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		extensions: exts,
	}
}

// ShouldClean reports whether a file entry qualifies for deletion and, when
// it does not, the skip reason. A file qualifies when it is older than the
// age limit, OR its extension is a Python cache extension, OR it sits under
// a __pycache__ directory. Everything under a cache root is age-eligible;
// the extension rules only widen the net.
func (p *Policy) ShouldClean(e scan.Entry, now time.Time) (bool, string) {
	if p.extensions[strings.ToLower(filepath.Ext(e.Path))] {
		return true, ""
	}
	if underPycache(e.Path) {
		return true, ""
	}
	if now.Sub(e.ModTime) > p.maxAge {
		return true, ""
	}
	return false, "too-recent"
}

// DirQualifies reports whether a directory with no surviving children may
// itself be removed. Directories qualify bottom-up: every scanned child must
// already qualify (enforced by the executor's keep-marking), and an empty
// directory is only removed once it is older than the age limit — a freshly
// created empty cache directory is left alone.
func (p *Policy) DirQualifies(e scan.Entry, hadChildren bool, now time.Time) bool {
	if hadChildren {
		return true
	}
	if filepath.Base(e.Path) == pycacheDir {
		return true
	}
	return now.Sub(e.ModTime) > p.maxAge
}

// underPycache reports whether any ancestor component is __pycache__.
func underPycache(path string) bool {
	dir := filepath.Dir(path)
	for _, c := range strings.Split(filepath.ToSlash(dir), "/") {
		if c == pycacheDir {
			return true
		}
	}
	return false
}
