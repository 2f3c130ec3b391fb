package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/clearmodel/internal/security"
)

// collect drains a full scan of the given roots into a slice.
func collect(t *testing.T, s *Scanner, roots []string) []Entry {
	t.Helper()
	out := make(chan Entry, 1024)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Scan(context.Background(), roots, out)
		close(out)
	}()
	var entries []Entry
	for e := range out {
		entries = append(entries, e)
	}
	require.NoError(t, <-errCh)
	return entries
}

func newScanner(t *testing.T, roots []string, opts Options) *Scanner {
	t.Helper()
	v, err := security.NewValidator(roots, security.Policy{
		MaxPathDepth:   20,
		FollowSymlinks: opts.FollowSymlinks,
	})
	require.NoError(t, err)
	return New(v, opts)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestScan_SkipDirectoriesArePruned(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "config"))
	writeFile(t, filepath.Join(root, "models", "a.bin"))

	s := newScanner(t, []string{root}, Options{SkipDirectories: []string{".git"}})
	entries := collect(t, s, []string{root})

	for _, e := range entries {
		require.NotContains(t, e.Path, ".git", "skip directory must never be yielded")
	}
	require.Contains(t, paths(entries), filepath.Join(root, "models", "a.bin"))
}

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"zeta.bin", "alpha.bin", "mid/beta.bin", "mid/gamma.bin"} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(f)))
	}

	s1 := newScanner(t, []string{root}, Options{})
	s2 := newScanner(t, []string{root}, Options{})

	require.Equal(t, paths(collect(t, s1, []string{root})), paths(collect(t, s2, []string{root})))
}

func TestScan_DepthBound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "c", "deep.bin"))

	s := newScanner(t, []string{root}, Options{MaxDepth: 2})
	entries := collect(t, s, []string{root})

	for _, e := range entries {
		require.LessOrEqual(t, e.Depth, 2)
	}
	require.NotContains(t, paths(entries), filepath.Join(root, "a", "b", "c", "deep.bin"))
}

func TestScan_EntryMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "file.pyc"))

	s := newScanner(t, []string{root}, Options{})
	entries := collect(t, s, []string{root})
	require.Len(t, entries, 2)

	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}

	dir := byPath[filepath.Join(root, "sub")]
	require.Equal(t, KindDir, dir.Kind)
	require.Equal(t, 1, dir.Depth)
	require.Equal(t, root, dir.Root)

	file := byPath[filepath.Join(root, "sub", "file.pyc")]
	require.Equal(t, KindFile, file.Kind)
	require.Equal(t, 2, file.Depth)
	require.Equal(t, int64(1), file.Size)
}

func TestScan_SymlinkedFilesExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.bin"))
	require.NoError(t, os.Symlink(filepath.Join(root, "real.bin"), filepath.Join(root, "link.bin")))

	s := newScanner(t, []string{root}, Options{})
	entries := collect(t, s, []string{root})

	require.NotContains(t, paths(entries), filepath.Join(root, "link.bin"))
	require.Contains(t, paths(entries), filepath.Join(root, "real.bin"))
}

func TestScan_SymlinkedDirectoriesNotDescended(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "target", "inner.bin"))
	require.NoError(t, os.Symlink(filepath.Join(root, "target"), filepath.Join(root, "alias")))

	s := newScanner(t, []string{root}, Options{})
	entries := collect(t, s, []string{root})

	for _, e := range entries {
		require.NotContains(t, e.Path, "alias")
	}
}

func TestScan_RejectedCounter(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "stray.bin"))

	// The validator only trusts `allowed`; scanning `other` rejects all.
	v, err := security.NewValidator([]string{allowed}, security.Policy{MaxPathDepth: 20})
	require.NoError(t, err)
	s := New(v, Options{})

	entries := collect(t, s, []string{other})
	require.Empty(t, entries)
	require.Equal(t, int64(1), s.Rejected())
}

func TestScan_MissingRootIsWarningNotError(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "does-not-exist")

	s := newScanner(t, []string{root}, Options{})
	entries := collect(t, s, []string{missing})

	require.Empty(t, entries)
	require.NotEmpty(t, s.Warnings())
}
