package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/edit"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(
		scanner.New(2, logger),
		engine.New(engine.Options{Workers: 4}, logger),
		analyzer.New(analyzer.NewCache(), analyzer.Options{}, logger),
		logger,
	)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func entries(log []engine.Result, prefix string) []engine.Result {
	var out []engine.Result
	for _, r := range log {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func Test_Runner_Evolve_DryRunNeverConverges(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.rs", "fn a() { x.unwrap(); }\n")
	writeFile(t, dir, "b.rs", "use std::io;\nuse std::io;\nfn b() { y.unwrap(); }\n")

	log, stats, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir, Extension: "rs"},
		EvolveStep{MaxIterations: 3, DryRun: true},
	}})
	require.NoError(t, err)

	iterations := entries(log, "EVOLVE_ITER_")
	require.Len(t, iterations, 3)
	for i, entry := range iterations {
		assert.Equal(t, "EVOLVE_ITER_"+string(rune('1'+i)), entry.Path)
		assert.Equal(t, []string{"Issues: 2, Fixes: 0 (dry_run: true)"}, entry.Findings)
	}
	assert.Empty(t, entries(log, EvolveComplete))
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, "fn a() { x.unwrap(); }\n", readFile(t, a))
}

func Test_Runner_Evolve_ConvergesOnCleanFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.rs", "fn main() {}\n")

	log, _, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir},
		EvolveStep{MaxIterations: 3, DryRun: true},
	}})
	require.NoError(t, err)

	require.Len(t, log, 2)
	assert.Equal(t, EvolveComplete, log[1].Path)
	assert.Equal(t, []string{"No more issues after 0 iterations"}, log[1].Findings)
}

func Test_Runner_Evolve_RepairsWhenNotDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lib.rs", "use std::io;\nuse std::io;\nfn f() { v.unwrap(); }   \n")

	log, stats, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir, Extension: "rs"},
		EvolveStep{MaxIterations: 2, DryRun: false},
	}})
	require.NoError(t, err)

	iterations := entries(log, "EVOLVE_ITER_")
	require.Len(t, iterations, 2)
	assert.Equal(t, []string{"Issues: 1, Fixes: 1 (dry_run: false)"}, iterations[0].Findings)
	assert.Equal(t, "use std::io;\nfn f() { v.unwrap(); }\n", readFile(t, path))
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, stats.TotalFiles, stats.Successful+stats.Errors+stats.Warnings+stats.Skipped)
}

func Test_Runner_Evolve_RequestDryRunWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lib.rs", "use a;\nuse a;\nfn f() { v.unwrap(); }\n")

	_, _, err := newTestRunner().Run(context.Background(), Request{DryRun: true, Steps: []Step{
		ScanStep{Path: dir},
		EvolveStep{MaxIterations: 1, DryRun: false},
	}})
	require.NoError(t, err)
	assert.Equal(t, "use a;\nuse a;\nfn f() { v.unwrap(); }\n", readFile(t, path))
}

func Test_Runner_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "fn a() {}\n")
	secret := writeFile(t, dir, "b.rs", "let password = \"x\";\n")
	writeFile(t, dir, "c.rs", "fn c() {}\n")

	log, _, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir, Extension: "rs"},
		FilterStep{Pattern: `password\s*=`},
		AnalyzeStep{},
	}})
	require.NoError(t, err)

	require.Len(t, log, 3)
	assert.Equal(t, []string{"Scanned 3 files"}, log[0].Findings)
	assert.Equal(t, FilterEntry, log[1].Path)
	assert.Equal(t, []string{"kept: 1, rejected: 2"}, log[1].Findings)
	assert.Equal(t, secret, log[2].Path)

	log, _, err = newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir, Extension: "rs"},
		FilterStep{Pattern: `password`, Invert: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept: 2, rejected: 1"}, log[1].Findings)
}

func Test_Runner_Filter_UsesEngineReader(t *testing.T) {
	dir := t.TempDir()
	hit := writeFile(t, dir, "big.rs", strings.Repeat("// padding\n", 100)+"fn f() { x.unwrap(); }\n")
	writeFile(t, dir, "small.rs", "fn g() {}\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.Options{Workers: 2, LargeFileThreshold: 64, ReadBufferSize: 16}, logger)
	runner := NewRunner(scanner.New(2, logger), eng, analyzer.New(analyzer.NewCache(), analyzer.Options{}, logger), logger)

	log, _, err := runner.Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir, Extension: "rs"},
		FilterStep{Pattern: `unwrap\(\)`},
		AnalyzeStep{},
	}})
	require.NoError(t, err)

	analyzed := log[2:]
	require.Len(t, analyzed, 1)
	assert.Equal(t, hit, analyzed[0].Path)
}

func Test_Runner_Filter_MalformedPatternAborts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.rs", "fn a() {}\n")

	log, _, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir},
		FilterStep{Pattern: `(unclosed`},
		EditStep{Operations: []edit.Operation{edit.Append{Content: "x"}}},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPattern)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, "filter", stepErr.Action)
	assert.Len(t, log, 1)
	assert.Equal(t, "fn a() {}\n", readFile(t, path))
}

func Test_Runner_Scan_InvalidDirectory(t *testing.T) {
	_, _, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: filepath.Join(t.TempDir(), "missing")},
		AnalyzeStep{},
	}})
	assert.ErrorIs(t, err, scanner.ErrInvalidDirectory)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 0, stepErr.Index)
}

func Test_Runner_Analyze_Findings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.rs", "// TODO rotate\nlet password = \"x\";\n")

	log, stats, err := newTestRunner().Run(context.Background(), Request{Steps: []Step{
		ScanStep{Path: dir},
		AnalyzeStep{},
	}})
	require.NoError(t, err)

	require.Len(t, log, 2)
	assert.Equal(t, engine.Success, log[1].Status)
	require.Len(t, log[1].Findings, 3)
	assert.True(t, strings.HasPrefix(log[1].Findings[0], "Complexity: "))
	assert.True(t, strings.HasPrefix(log[1].Findings[1], "Low Security Score: "))
	assert.Equal(t, "Has TODO", log[1].Findings[2])
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 1, stats.Successful)
}

func Test_Runner_EditAndRepair(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.py", "import os\nimport os\nx = old\n")

	steps := []Step{
		ScanStep{Path: dir, Extension: "py"},
		EditStep{Operations: []edit.Operation{edit.Replace{Target: "old", Replacement: "new"}}},
		RepairStep{},
	}

	log, stats, err := newTestRunner().Run(context.Background(), Request{Steps: steps, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Applied 1 edits"}, log[1].Findings)
	assert.Equal(t, engine.Warning, log[2].Status)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, "import os\nimport os\nx = old\n", readFile(t, path))

	_, _, err = newTestRunner().Run(context.Background(), Request{Steps: steps, MaxTasks: 1})
	require.NoError(t, err)
	assert.Equal(t, "import os\nx = new\n", readFile(t, path))
}

func Test_Runner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log, _, err := newTestRunner().Run(ctx, Request{Steps: []Step{ScanStep{Path: t.TempDir()}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
}

func Test_Parse(t *testing.T) {
	req, err := Parse([]byte(`
maxTasks: 2
dryRun: true
steps:
  - action: Scan
    params: {path: ./src, extension: rs}
  - action: filter
    params: {pattern: unwrap, invert: true}
  - action: edit
    params:
      operations:
        - {type: replace, target: a, replacement: b}
  - action: evolve
  - action: evolve
    params: {maxIterations: 2, dryRun: false}
`))
	require.NoError(t, err)

	assert.Equal(t, 2, req.MaxTasks)
	assert.True(t, req.DryRun)
	require.Len(t, req.Steps, 5)
	assert.Equal(t, ScanStep{Path: "./src", Extension: "rs"}, req.Steps[0])
	assert.Equal(t, FilterStep{Pattern: "unwrap", Invert: true}, req.Steps[1])
	assert.Equal(t, EditStep{Operations: []edit.Operation{edit.Replace{Target: "a", Replacement: "b"}}}, req.Steps[2])
	assert.Equal(t, EvolveStep{MaxIterations: DefaultMaxIterations, DryRun: true}, req.Steps[3])
	assert.Equal(t, EvolveStep{MaxIterations: 2, DryRun: false}, req.Steps[4])
}

func Test_Parse_JSONAndUnknownAction(t *testing.T) {
	req, err := Parse([]byte(`{"steps": [{"action": "ANALYZE"}, {"action": "repair"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Step{AnalyzeStep{}, RepairStep{}}, req.Steps)

	_, err = Parse([]byte(`steps: [{action: compile}]`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Parse([]byte(`steps: [{action: edit, params: {operations: [{type: rename}]}}]`))
	assert.ErrorIs(t, err, edit.ErrUnknownOperation)
}

func Test_LoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "flow.yaml", "steps:\n  - action: repair\n")
	req, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Step{RepairStep{}}, req.Steps)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
