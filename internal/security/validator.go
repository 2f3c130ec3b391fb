// Package security implements path validation and boundary enforcement for
// cache cleanup. Every path that is ultimately deleted passes through the
// Validator twice: once at scan discovery and once immediately before the
// removal syscall, so a path swapped out between check and use is re-checked.
package security

import (
	"os"
	"path/filepath"
	"strings"
)

// Reason explains why a path was rejected.
type Reason string

const (
	ReasonTraversal     Reason = "traversal-attempt"
	ReasonOutsideRoot   Reason = "outside-root"
	ReasonSystemPath    Reason = "system-path"
	ReasonDepthExceeded Reason = "depth-exceeded"
	ReasonSymlinkDenied Reason = "symlink-denied"
)

// Decision is the result of validating a single path. A decision is either
// fully accepted (normalized path plus the matched root) or rejected with a
// reason — never partially valid.
type Decision struct {
	Allowed bool
	Path    string // normalized absolute path, set when allowed
	Root    string // the allowed root the path falls under, set when allowed
	Reason  Reason // set when rejected
}

// Policy controls the optional checks the Validator performs.
type Policy struct {
	// MaxPathDepth is the maximum number of path components below the
	// matched root. Zero disables the depth check.
	MaxPathDepth int

	// FollowSymlinks permits symlinked components on the way to a path.
	// When false, any symlink between the root and the target rejects it.
	FollowSymlinks bool

	// Disabled bypasses all checks and accepts every path after
	// normalization. Callers must log loudly before using this.
	Disabled bool
}

// systemComponents are directory names that mark system-critical areas.
// A path containing one of these outside the user's home directory is
// never accepted, whatever the configured roots say.
var systemComponents = map[string]bool{
	"bin":      true,
	"boot":     true,
	"dev":      true,
	"etc":      true,
	"proc":     true,
	"sbin":     true,
	"sys":      true,
	"system":   true,
	"system32": true,
	"windows":  true,
}

// Validator checks candidate paths against a fixed set of allowed roots.
// It reads filesystem metadata for symlink detection but never modifies
// anything, and a given path always produces the same decision for an
// unchanged filesystem.
type Validator struct {
	roots  []string // normalized, absolute
	home   string
	policy Policy
}

// NewValidator normalizes the allowed roots and returns a Validator.
// Roots may use a leading "~"; they do not need to exist yet.
func NewValidator(roots []string, policy Policy) (*Validator, error) {
	home, _ := os.UserHomeDir()

	normalized := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := normalize(r, home)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, abs)
	}

	return &Validator{roots: normalized, home: home, policy: policy}, nil
}

// Roots returns the normalized allowed roots.
func (v *Validator) Roots() []string {
	return append([]string(nil), v.roots...)
}

// Validate runs the full check sequence against a candidate path:
// normalize, boundary, component, depth, then symlink. Each step can reject
// independently; the first rejection wins.
func (v *Validator) Validate(path string) Decision {
	abs, err := normalize(path, v.home)
	if err != nil {
		return Decision{Reason: ReasonTraversal}
	}

	if v.policy.Disabled {
		return Decision{Allowed: true, Path: abs}
	}

	comps := splitComponents(abs)

	// Control characters and NUL bytes never appear in legitimate cache
	// entries; treat them as spoofing attempts.
	for _, c := range comps {
		if c == ".." {
			return Decision{Reason: ReasonTraversal}
		}
		if hasControlChars(c) {
			return Decision{Reason: ReasonTraversal}
		}
	}

	root, below := v.matchRoot(comps)
	if root == "" {
		return Decision{Reason: ReasonOutsideRoot}
	}

	// System-critical names are only suspicious outside the user's home:
	// a root like /var/cache/etc would otherwise smuggle deletions into
	// non-user areas.
	if v.home == "" || !isUnder(abs, v.home) {
		for _, c := range comps {
			if systemComponents[strings.ToLower(c)] {
				return Decision{Reason: ReasonSystemPath}
			}
		}
	}

	if v.policy.MaxPathDepth > 0 && len(below) > v.policy.MaxPathDepth {
		return Decision{Reason: ReasonDepthExceeded}
	}

	if !v.policy.FollowSymlinks {
		if denied := symlinkBetween(root, below); denied {
			return Decision{Reason: ReasonSymlinkDenied}
		}
	}

	return Decision{Allowed: true, Path: abs, Root: root}
}

// matchRoot finds the allowed root whose components are a strict prefix of
// the candidate's components. It returns the root and the components below
// it, or "" when no root matches.
func (v *Validator) matchRoot(comps []string) (string, []string) {
	for _, root := range v.roots {
		rootComps := splitComponents(root)
		if len(comps) <= len(rootComps) {
			continue
		}
		matched := true
		for i, rc := range rootComps {
			if comps[i] != rc {
				matched = false
				break
			}
		}
		if matched {
			return root, comps[len(rootComps):]
		}
	}
	return "", nil
}

// symlinkBetween reports whether any component from root down to the final
// target is a symbolic link. Lstat failures (entry vanished mid-scan) are
// not treated as symlinks; the deletion step surfaces those.
func symlinkBetween(root string, below []string) bool {
	cur := root
	for _, c := range below {
		cur = filepath.Join(cur, c)
		info, err := os.Lstat(cur)
		if err != nil {
			return false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

// normalize expands a leading "~", resolves "."/".." lexically, and makes
// the path absolute. It never resolves symlinks; the symlink policy is
// enforced separately so the decision can name the precise reason.
func normalize(path string, home string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func splitComponents(path string) []string {
	path = filepath.ToSlash(path)
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

func isUnder(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}
