package scanner

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner() *Scanner {
	return New(4, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// "+rel+"\n"), 0o644))
	return path
}

func Test_Scanner_Scan_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	a := touch(t, root, "a.rs")
	b := touch(t, root, "b.rs")
	touch(t, root, "c.py")

	files, err := newTestScanner().Scan(Options{Root: root, Extension: "rs", RespectIgnoreRules: true})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func Test_Scanner_Scan_ExtensionIsCaseSensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "upper.RS")
	lower := touch(t, root, "lower.rs")

	files, err := newTestScanner().Scan(Options{Root: root, Extension: ".rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{lower}, files)
}

func Test_Scanner_Scan_Recursive(t *testing.T) {
	root := t.TempDir()
	var want []string
	for i := range 40 {
		want = append(want, touch(t, root, fmt.Sprintf("pkg%02d/sub/mod%02d.go", i, i)))
	}

	files, err := New(2, slog.New(slog.NewTextHandler(io.Discard, nil))).Scan(Options{Root: root, Extension: "go"})
	require.NoError(t, err)
	assert.Len(t, files, 40)
	assert.ElementsMatch(t, want, files)
}

func Test_Scanner_Scan_HiddenEntries(t *testing.T) {
	root := t.TempDir()
	visible := touch(t, root, "src/lib.rs")
	hidden := touch(t, root, ".cache/gen.rs")
	dotFile := touch(t, root, "src/.scratch.rs")

	files, err := newTestScanner().Scan(Options{Root: root, Extension: "rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{visible}, files)

	files, err = newTestScanner().Scan(Options{Root: root, Extension: "rs", IncludeHidden: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{visible, hidden, dotFile}, files)
}

func Test_Scanner_Scan_RespectsIgnoreRules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0o644))
	kept := touch(t, root, "src/main.rs")
	ignoredByFile := touch(t, root, "generated/out.rs")
	ignoredByDefault := touch(t, root, "target/debug/build.rs")

	files, err := newTestScanner().Scan(Options{Root: root, Extension: "rs", RespectIgnoreRules: true})
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, files)

	files, err = newTestScanner().Scan(Options{Root: root, Extension: "rs"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{kept, ignoredByFile, ignoredByDefault}, files)
}

func Test_Scanner_Scan_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	core := touch(t, root, "core/engine.rs")
	touch(t, root, "core/engine_bench.rs")
	touch(t, root, "cli/main.rs")

	files, err := newTestScanner().Scan(Options{
		Root:      root,
		Extension: "rs",
		Include:   []string{"core/**"},
		Exclude:   []string{"*_bench.rs"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{core}, files)
}

func Test_Scanner_WithExclude_AppliesToEveryScan(t *testing.T) {
	root := t.TempDir()
	kept := touch(t, root, "src/lib.rs")
	touch(t, root, "generated/api.rs")
	touch(t, root, "src/lib_bench.rs")

	sc := newTestScanner().WithExclude([]string{"generated/**"})
	files, err := sc.Scan(Options{Root: root, Extension: "rs", Exclude: []string{"*_bench.rs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, files)

	files, err = newTestScanner().Scan(Options{Root: root, Extension: "rs"})
	require.NoError(t, err)
	assert.Len(t, files, 3, "the base scanner keeps its own defaults")
}

func Test_Scanner_Scan_MalformedPattern(t *testing.T) {
	_, err := newTestScanner().Scan(Options{Root: t.TempDir(), Include: []string{"[oops"}})
	assert.ErrorIs(t, err, ErrMalformedPattern)

	_, err = newTestScanner().Scan(Options{Root: t.TempDir(), Exclude: []string{"[oops"}})
	assert.ErrorIs(t, err, ErrMalformedPattern)
}

func Test_Scanner_Scan_NoMatches(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "readme.md")

	files, err := newTestScanner().Scan(Options{Root: root, Extension: "rs"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func Test_Scanner_Scan_InvalidRoot(t *testing.T) {
	_, err := newTestScanner().Scan(Options{Root: filepath.Join(t.TempDir(), "missing"), Extension: "rs"})
	assert.ErrorIs(t, err, ErrInvalidDirectory)

	file := touch(t, t.TempDir(), "plain.rs")
	_, err = newTestScanner().Scan(Options{Root: file, Extension: "rs"})
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

func Test_Scanner_Scan_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	regular := touch(t, root, "real.rs")
	if err := os.Symlink(regular, filepath.Join(root, "link.rs")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	files, err := newTestScanner().Scan(Options{Root: root, Extension: "rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{regular}, files)
}
