// Package scan walks configured cache roots and yields validated candidate
// entries for the cleanup pipeline.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/clearmodel/internal/security"
)

// Kind classifies a discovered filesystem entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

// Entry is a filesystem entry discovered during a scan. Entries are owned by
// the scan pipeline until consumed; they are classified, never mutated.
type Entry struct {
	Path    string
	Root    string // the cache root this entry was discovered under
	Kind    Kind
	Depth   int // components below Root
	Size    int64
	ModTime time.Time
}

// Options control traversal behavior.
type Options struct {
	// SkipDirectories are directory names (case-insensitive) that are
	// pruned immediately, without descending.
	SkipDirectories []string

	// MaxDepth bounds descent below each root. Zero means unbounded;
	// the validator's depth check still applies either way.
	MaxDepth int

	// FollowSymlinks permits descending into symlinked directories.
	// Symlinked directories are never descended into when false.
	FollowSymlinks bool

	// IncludeSymlinkFiles emits symlinked files as candidates. Default
	// (false) excludes them.
	IncludeSymlinkFiles bool
}

// Scanner performs bounded-depth traversal of cache roots. A fresh Scan call
// re-walks from scratch; the scanner keeps only side-channel counters.
type Scanner struct {
	validator *security.Validator
	skip      map[string]bool
	opts      Options

	rejected atomic.Int64

	mu       sync.Mutex
	warnings []string
}

// New creates a Scanner. The validator is consulted for every visited entry;
// entries it rejects are excluded from the output and counted.
func New(validator *security.Validator, opts Options) *Scanner {
	skip := make(map[string]bool, len(opts.SkipDirectories))
	for _, d := range opts.SkipDirectories {
		skip[strings.ToLower(d)] = true
	}
	return &Scanner{validator: validator, skip: skip, opts: opts}
}

// Rejected returns the number of entries excluded for security reasons.
func (s *Scanner) Rejected() int64 {
	return s.rejected.Load()
}

// Warnings returns any non-fatal problems hit during scanning.
func (s *Scanner) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

func (s *Scanner) addWarning(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.warnings) < 500 {
		s.warnings = append(s.warnings, msg)
	}
}

// frame is one pending directory on the explicit work stack.
type frame struct {
	dir   string
	root  string
	depth int
}

// Scan walks every root and sends validated entries to out. The traversal is
// iterative — an explicit stack, never recursion — so adversarial directory
// depth cannot exhaust the goroutine stack. Children of a directory are
// visited in lexical order (os.ReadDir guarantees it), which keeps dry-run
// output reproducible for an unchanged filesystem. Scan does not close out.
func (s *Scanner) Scan(ctx context.Context, roots []string, out chan<- Entry) error {
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := os.Lstat(root)
		if err != nil || !info.IsDir() {
			s.addWarning("cache root missing or not a directory: " + root)
			continue
		}
		if s.skip[strings.ToLower(filepath.Base(root))] {
			// A root that matches a skip name was configured on purpose;
			// the skip list only prunes descendants.
			s.addWarning("cache root matches a skip-directory name, scanning anyway: " + root)
		}

		stack := []frame{{dir: root, root: root, depth: 0}}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entries, err := os.ReadDir(f.dir)
			if err != nil {
				s.addWarning("cannot read " + f.dir + ": " + err.Error())
				continue
			}

			// Descend in lexical order. The stack is LIFO, so push
			// subdirectories in reverse to pop them in order.
			var subdirs []frame

			for _, de := range entries {
				name := de.Name()
				childPath := filepath.Join(f.dir, name)
				childDepth := f.depth + 1

				if de.IsDir() && s.skip[strings.ToLower(name)] {
					continue
				}

				info, err := de.Info()
				if err != nil {
					s.addWarning("cannot stat " + childPath + ": " + err.Error())
					continue
				}

				entry, ok := s.classify(childPath, f.root, childDepth, info)
				if !ok {
					continue
				}

				select {
				case out <- entry:
				case <-ctx.Done():
					return ctx.Err()
				}

				if s.opts.MaxDepth > 0 && childDepth >= s.opts.MaxDepth {
					continue
				}
				switch entry.Kind {
				case KindDir:
					subdirs = append(subdirs, frame{dir: childPath, root: f.root, depth: childDepth})
				case KindSymlink:
					// Descend through a symlinked directory only when the
					// policy explicitly follows symlinks. The depth bound
					// above keeps link cycles finite.
					if s.opts.FollowSymlinks {
						if ti, err := os.Stat(childPath); err == nil && ti.IsDir() {
							subdirs = append(subdirs, frame{dir: childPath, root: f.root, depth: childDepth})
						}
					}
				}
			}

			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, subdirs[i])
			}
		}
	}

	return nil
}

// classify validates a visited entry and converts it into an Entry. It
// returns ok=false for entries excluded by security or symlink policy.
func (s *Scanner) classify(path, root string, depth int, info os.FileInfo) (Entry, bool) {
	isSymlink := info.Mode()&os.ModeSymlink != 0

	if isSymlink {
		// Symlinked directories are never descended into when symlink
		// following is off; symlinked files are candidates only when
		// explicitly allowed.
		if !s.opts.FollowSymlinks && !s.opts.IncludeSymlinkFiles {
			return Entry{}, false
		}
	}

	decision := s.validator.Validate(path)
	if !decision.Allowed {
		s.rejected.Add(1)
		return Entry{}, false
	}

	kind := KindFile
	switch {
	case isSymlink:
		kind = KindSymlink
	case info.IsDir():
		kind = KindDir
	}

	return Entry{
		Path:    decision.Path,
		Root:    root,
		Kind:    kind,
		Depth:   depth,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}
