// Package clean implements the deletion engine: selection policy,
// concurrency-limited execution with dry-run and confirmation gating, and
// the immutable cleanup report.
package clean

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/clearmodel/internal/scan"
	"github.com/GriffinCanCode/clearmodel/internal/security"
)

// ErrConfirmationRequired signals that the qualifying set exceeds the
// confirmation threshold and no destructive work has started. The caller
// decides how to obtain approval; the engine never prompts.
var ErrConfirmationRequired = errors.New("cleanup exceeds confirmation threshold")

// scanQueueDepth bounds the channel between the scanner and the executor.
// A full queue suspends the scanner, applying backpressure.
const scanQueueDepth = 256

// Executor drives a full cleanup run: scan, select, gate, delete, report.
type Executor struct {
	Validator *security.Validator
	Policy    *Policy
	Workers   int
	DryRun    bool

	// Force skips the confirmation gate. Set by the caller after external
	// approval has been obtained.
	Force bool

	// ConfirmThresholdBytes halts the run with ErrConfirmationRequired when
	// the qualifying total exceeds it. Zero disables the gate.
	ConfirmThresholdBytes int64

	// OnOutcome, when set, observes every outcome as it is produced.
	// Called from worker goroutines; it must be cheap and thread-safe.
	OnOutcome func(Outcome)

	Log zerolog.Logger

	rejected atomic.Int64 // time-of-use security rejections
}

// Run executes one cleanup over the given roots and produces the report.
// Per-entry failures never abort the run; only context cancellation does.
func (e *Executor) Run(ctx context.Context, scanner *scan.Scanner, roots []string) (*Report, error) {
	start := time.Now()
	now := start
	freeBefore := freeSpace(roots)

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	entries := make(chan scan.Entry, scanQueueDepth)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- scanner.Scan(ctx, roots, entries)
		close(entries)
	}()

	col := newCollector(e.OnOutcome)

	// Collect and select. The confirmation gate needs the qualifying total
	// before any destructive work, so selection drains the scan stream
	// fully; the bounded channel still paces the scanner.
	var (
		files      []scan.Entry
		dirs       []scan.Entry
		pending    int64
		childCount = make(map[string]int)
		keep       = make(map[string]bool)
	)
	for ent := range entries {
		childCount[filepath.Dir(ent.Path)]++
		if ent.Kind == scan.KindDir {
			dirs = append(dirs, ent)
			continue
		}
		ok, reason := e.Policy.ShouldClean(ent, now)
		if !ok {
			col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusSkipped, Reason: reason})
			markKeep(keep, ent.Path, ent.Root)
			continue
		}
		files = append(files, ent)
		pending += ent.Size
	}
	if err := <-scanErr; err != nil {
		return nil, err
	}

	e.Log.Debug().
		Int("candidates", len(files)).
		Int64("pending_bytes", pending).
		Bool("dry_run", e.DryRun).
		Msg("selection complete")

	// Pre-flight gate: nothing is deleted until the whole batch clears it.
	if !e.DryRun && !e.Force && e.ConfirmThresholdBytes > 0 && pending > e.ConfirmThresholdBytes {
		r := col.finalize()
		r.PendingConfirmation = true
		r.PendingBytes = pending
		r.SecurityRejected = scanner.Rejected()
		r.Warnings = scanner.Warnings()
		r.Elapsed = time.Since(start)
		r.FreeSpaceBefore = freeBefore
		r.FreeSpaceAfter = freeBefore
		return r, ErrConfirmationRequired
	}

	// Bounded worker pool over the file candidates. Workers share only the
	// append-only collector and the keep marks.
	var keepMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, ent := range files {
		// Cooperative cancellation: checked between entries, never
		// mid-deletion of a single entry.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.processFile(ent, col, keep, &keepMu)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() == nil {
		e.removeDirs(ctx, dirs, childCount, keep, col, now)
	}

	r := col.finalize()
	r.SecurityRejected = scanner.Rejected() + e.rejected.Load()
	r.Warnings = scanner.Warnings()
	r.Elapsed = time.Since(start)
	r.FreeSpaceBefore = freeBefore
	r.FreeSpaceAfter = freeSpace(roots)
	return r, ctx.Err()
}

// processFile re-validates, sizes, and deletes (or simulates) one file.
// Exactly one outcome is produced whatever happens.
func (e *Executor) processFile(ent scan.Entry, col *collector, keep map[string]bool, keepMu *sync.Mutex) {
	hold := func() {
		keepMu.Lock()
		markKeep(keep, ent.Path, ent.Root)
		keepMu.Unlock()
	}

	// Time-of-use re-validation: the path may have been swapped since scan.
	decision := e.Validator.Validate(ent.Path)
	if !decision.Allowed {
		e.rejected.Add(1)
		col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusSkipped, Reason: "security: " + string(decision.Reason)})
		hold()
		return
	}

	info, err := os.Lstat(ent.Path)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			reason = "entry vanished before deletion"
		}
		col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusFailed, Reason: reason})
		hold()
		return
	}
	size := info.Size()

	if e.DryRun {
		col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusSimulated, Bytes: size})
		return
	}

	if err := os.Remove(ent.Path); err != nil {
		col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusFailed, Reason: err.Error()})
		hold()
		return
	}
	e.Log.Debug().Str("path", ent.Path).Int64("bytes", size).Msg("deleted")
	col.add(Outcome{Path: ent.Path, Root: ent.Root, Status: StatusDeleted, Bytes: size})
}

// removeDirs removes qualifying directories deepest-first, after every file
// worker has finished. A directory is attempted only when none of its
// descendants were kept, and os.Remove refuses non-empty directories, so a
// parent is never removed while it still contains anything.
func (e *Executor) removeDirs(ctx context.Context, dirs []scan.Entry, childCount map[string]int, keep map[string]bool, col *collector, now time.Time) {
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Depth > dirs[j].Depth })

	for _, d := range dirs {
		if ctx.Err() != nil {
			return
		}
		if keep[d.Path] {
			continue
		}
		if !e.Policy.DirQualifies(d, childCount[d.Path] > 0, now) {
			continue
		}

		if e.DryRun {
			col.add(Outcome{Path: d.Path, Root: d.Root, Status: StatusSimulated, IsDir: true})
			continue
		}

		// Time-of-use re-validation, same as files.
		decision := e.Validator.Validate(d.Path)
		if !decision.Allowed {
			e.rejected.Add(1)
			col.add(Outcome{Path: d.Path, Root: d.Root, Status: StatusSkipped, Reason: "security: " + string(decision.Reason), IsDir: true})
			markKeep(keep, d.Path, d.Root)
			continue
		}

		err := os.Remove(d.Path)
		switch {
		case err == nil:
			col.add(Outcome{Path: d.Path, Root: d.Root, Status: StatusDeleted, IsDir: true})
		case errors.Is(err, fs.ErrNotExist):
			// Already gone, nothing to report.
		case isNotEmpty(err):
			// Something unscanned or undeletable remains inside; keep the
			// directory and everything above it.
			markKeep(keep, d.Path, d.Root)
		default:
			col.add(Outcome{Path: d.Path, Root: d.Root, Status: StatusFailed, Reason: err.Error(), IsDir: true})
			markKeep(keep, d.Path, d.Root)
		}
	}
}

// markKeep flags every ancestor directory of path, up to (excluding) root,
// so no parent of a surviving entry is ever removed.
func markKeep(keep map[string]bool, path, root string) {
	dir := filepath.Dir(path)
	for dir != root && len(dir) > len(root) {
		keep[dir] = true
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	keep[path] = true
}

// isNotEmpty reports whether err is the "directory not empty" error from
// os.Remove. Matched by string because syscall numbers differ per platform.
func isNotEmpty(err error) bool {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		msg := pe.Err.Error()
		return msg == "directory not empty" || msg == "The directory is not empty."
	}
	return false
}
