package clean

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/clearmodel/internal/scan"
	"github.com/GriffinCanCode/clearmodel/internal/security"
)

// testPipeline bundles a freshly built executor and scanner over one root.
type testPipeline struct {
	executor *Executor
	scanner  *scan.Scanner
	root     string
}

func newPipeline(t *testing.T, root string, mutate func(*Executor)) *testPipeline {
	t.Helper()
	validator, err := security.NewValidator([]string{root}, security.Policy{MaxPathDepth: 20})
	require.NoError(t, err)

	e := &Executor{
		Validator: validator,
		Policy:    NewPolicy(7, []string{".pyc", ".pyo", ".pyd"}),
		Workers:   4,
		Log:       zerolog.Nop(),
	}
	if mutate != nil {
		mutate(e)
	}
	return &testPipeline{
		executor: e,
		scanner:  scan.New(validator, scan.Options{SkipDirectories: []string{".git"}}),
		root:     root,
	}
}

func (p *testPipeline) run(t *testing.T) (*Report, error) {
	t.Helper()
	return p.executor.Run(context.Background(), p.scanner, []string{p.root})
}

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

const day = 24 * time.Hour

func TestRun_DeletesOldKeepsRecent(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "model.bin")
	recent := filepath.Join(root, "fresh.bin")
	writeAged(t, old, 2048, 10*day)
	writeAged(t, recent, 512, 1*day)

	report, err := newPipeline(t, root, nil).run(t)
	require.NoError(t, err)

	require.NoFileExists(t, old)
	require.FileExists(t, recent)

	require.Equal(t, 1, report.FilesDeleted)
	require.Equal(t, 1, report.SkippedCount)
	require.Equal(t, int64(2048), report.BytesReclaimed)
	require.Equal(t, int64(2048), report.PerRoot[root])

	var skipped *Outcome
	for i := range report.Outcomes {
		if report.Outcomes[i].Status == StatusSkipped {
			skipped = &report.Outcomes[i]
		}
	}
	require.NotNil(t, skipped)
	require.Equal(t, recent, skipped.Path)
	require.Equal(t, "too-recent", skipped.Reason)
}

func TestRun_DryRunHasNoSideEffects(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a.bin"), 1000, 10*day)
	writeAged(t, filepath.Join(root, "sub", "b.pyc"), 500, 0)
	writeAged(t, filepath.Join(root, "keep.bin"), 123, 1*day)

	dry, err := newPipeline(t, root, func(e *Executor) { e.DryRun = true }).run(t)
	require.NoError(t, err)

	// Simulation touched nothing.
	require.FileExists(t, filepath.Join(root, "a.bin"))
	require.FileExists(t, filepath.Join(root, "sub", "b.pyc"))
	require.Equal(t, 0, dry.FilesDeleted)
	require.Equal(t, 2, dry.FilesSimulated)
	require.Equal(t, int64(1500), dry.BytesReclaimed)

	// A real run over the unchanged tree reclaims exactly what the dry run
	// reported, over the same entry set.
	real, err := newPipeline(t, root, nil).run(t)
	require.NoError(t, err)
	require.Equal(t, dry.BytesReclaimed, real.BytesReclaimed)
	require.Equal(t, dry.FilesSimulated, real.FilesDeleted)
	require.ElementsMatch(t, affectedPaths(dry), affectedPaths(real))
}

func affectedPaths(r *Report) []string {
	var out []string
	for _, o := range r.Outcomes {
		if !o.IsDir && (o.Status == StatusDeleted || o.Status == StatusSimulated) {
			out = append(out, o.Path)
		}
	}
	sort.Strings(out)
	return out
}

func TestRun_MixedDirectoryNeverDeletedAsUnit(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mixed")
	qualifying := filepath.Join(dir, "old.bin")
	surviving := filepath.Join(dir, "fresh.bin")
	writeAged(t, qualifying, 100, 30*day)
	writeAged(t, surviving, 100, 1*day)

	_, err := newPipeline(t, root, nil).run(t)
	require.NoError(t, err)

	require.NoFileExists(t, qualifying)
	require.FileExists(t, surviving)
	require.DirExists(t, dir)
}

func TestRun_FullyQualifyingDirectoryRemovedChildrenFirst(t *testing.T) {
	root := t.TempDir()
	pycache := filepath.Join(root, "proj", "__pycache__")
	writeAged(t, filepath.Join(pycache, "mod.pyc"), 64, 0)
	writeAged(t, filepath.Join(pycache, "other.pyc"), 64, 0)
	// Keep proj itself alive with a recent file.
	writeAged(t, filepath.Join(root, "proj", "source.txt"), 10, 0)

	report, err := newPipeline(t, root, nil).run(t)
	require.NoError(t, err)

	require.NoDirExists(t, pycache)
	require.DirExists(t, filepath.Join(root, "proj"))
	require.Equal(t, 2, report.FilesDeleted)
	require.Equal(t, 1, report.DirsRemoved)
}

func TestRun_ConfirmationGateHaltsBeforeAnyDeletion(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "huge.bin")
	writeAged(t, big, 4096, 10*day)

	report, err := newPipeline(t, root, func(e *Executor) {
		e.ConfirmThresholdBytes = 1024
	}).run(t)

	require.ErrorIs(t, err, ErrConfirmationRequired)
	require.True(t, report.PendingConfirmation)
	require.Equal(t, int64(4096), report.PendingBytes)
	require.Equal(t, 0, report.FilesDeleted)
	require.FileExists(t, big)
}

func TestRun_ForceBypassesConfirmationGate(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "huge.bin")
	writeAged(t, big, 4096, 10*day)

	report, err := newPipeline(t, root, func(e *Executor) {
		e.ConfirmThresholdBytes = 1024
		e.Force = true
	}).run(t)

	require.NoError(t, err)
	require.False(t, report.PendingConfirmation)
	require.NoFileExists(t, big)
}

func TestRun_DryRunIgnoresConfirmationGate(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "huge.bin"), 4096, 10*day)

	report, err := newPipeline(t, root, func(e *Executor) {
		e.ConfirmThresholdBytes = 1024
		e.DryRun = true
	}).run(t)

	require.NoError(t, err)
	require.Equal(t, int64(4096), report.BytesReclaimed)
}

func TestRun_WorkerCountDoesNotChangeTotals(t *testing.T) {
	build := func(t *testing.T) string {
		root := t.TempDir()
		for i := 0; i < 40; i++ {
			writeAged(t, filepath.Join(root, "sub", fmt.Sprintf("mod%02d.pyc", i)), 100+i, 30*day)
		}
		writeAged(t, filepath.Join(root, "keep.txt"), 55, 0)
		return root
	}

	rootSerial := build(t)
	serial, err := newPipeline(t, rootSerial, func(e *Executor) { e.Workers = 1 }).run(t)
	require.NoError(t, err)

	rootParallel := build(t)
	parallel, err := newPipeline(t, rootParallel, func(e *Executor) { e.Workers = 8 }).run(t)
	require.NoError(t, err)

	require.Equal(t, serial.FilesDeleted, parallel.FilesDeleted)
	require.Equal(t, serial.BytesReclaimed, parallel.BytesReclaimed)
	require.Equal(t, serial.SkippedCount, parallel.SkippedCount)
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not bind root")
	}

	root := t.TempDir()
	gone := filepath.Join(root, "gone.bin")
	stays := filepath.Join(root, "old.bin")
	writeAged(t, gone, 100, 10*day)
	writeAged(t, stays, 100, 10*day)

	p := newPipeline(t, root, nil)

	// A read-only parent makes every unlink fail with EACCES.
	require.NoError(t, os.Chmod(root, 0o555))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	report, err := p.run(t)
	require.NoError(t, err)

	// Both deletions fail (read-only parent), both are recorded, and the
	// run completes rather than aborting on the first error.
	require.Equal(t, 2, report.FailedCount)
	require.Equal(t, 0, report.FilesDeleted)
	require.FileExists(t, gone)
	require.FileExists(t, stays)
}

func TestRun_CancellationStopsBetweenEntries(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a.bin"), 10, 10*day)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, root, nil)
	_, err := p.executor.Run(ctx, p.scanner, []string{root})
	require.Error(t, err)
	require.FileExists(t, filepath.Join(root, "a.bin"))
}
