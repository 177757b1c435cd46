package analyzer

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const rustSample = `use std::io;
use std::fs;

// entry point
fn main() {
    let v = Vec::new();
    if v.is_empty() {
        println!("empty");
    } else {
        for x in v.iter() {
            println!("{}", x);
        }
    }
}

struct Point {
    x: i32,
}
`

func Test_AnalyzeContent_RustMetrics(t *testing.T) {
	analysis := AnalyzeContent("src/main.rs", rustSample)

	assert.Equal(t, language.Rust, analysis.Language)
	assert.Equal(t, 18, analysis.TotalLines)
	assert.Equal(t, 2, analysis.BlankLines)
	assert.Equal(t, 1, analysis.CommentLines)
	assert.Equal(t, 15, analysis.CodeLines)
	assert.Equal(t, 2, analysis.Imports)
	assert.Equal(t, 1, analysis.Functions)
	assert.Equal(t, 1, analysis.Structs)
	// 1 base + 0.5 fn + 1.5 if + 0.5 else + 1.5 for
	assert.InDelta(t, 5.0, analysis.Complexity, 1e-9)
	assert.Equal(t, []string{"Vec::new() without capacity hints"}, analysis.Warnings)
	assert.Equal(t, 95, analysis.SecurityScore)
}

func Test_AnalyzeContent_LineInvariant(t *testing.T) {
	inputs := []string{"", "\n", "a\n\n\n", "# only\n", "x = 1\r\ny = 2", "\t\n  \n//c\ncode"}
	for _, input := range inputs {
		a := AnalyzeContent("f.py", input)
		assert.Equal(t, a.TotalLines, a.CodeLines+a.BlankLines+a.CommentLines, "input %q", input)
		assert.GreaterOrEqual(t, a.CodeLines, 0)
	}
}

func Test_AnalyzeContent_PerLanguageWarnings(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    string
	}{
		{"rust unsafe", "a.rs", "fn f() { unsafe { ptr.read() } }", "unsafe block"},
		{"rust unwrap", "a.rs", "let x = y.unwrap();", "unwrap() may panic"},
		{"python eval", "a.py", "eval(user_input)", "eval() executes arbitrary code"},
		{"python pickle", "a.py", "data = pickle.load(f)", "pickle deserialization"},
		{"go empty interface", "a.go", "var x interface{}", "empty interface"},
		{"typescript any", "a.ts", "let x: any = 1;", "explicit any"},
		{"typescript ignore", "a.tsx", "// @ts-ignore\nfoo()", "@ts-ignore"},
		{"julia global", "a.jl", "global counter = 0", "global variable"},
		{"chapel forall", "a.chpl", "forall i in 1..n do a[i] = i;", "forall without an intent"},
		{"rust static mut", "a.rs", "static mut COUNTER: u32 = 0;", "static mut"},
		{"python no entry point", "script.py", "print('hi')", "without a clear entry point"},
		{"mojo fn without struct", "a.mojo", "fn main():\n    pass", "fn without struct"},
		{"mojo interop", "a.mojo", "struct S:\n    pass\nvar np = Python.import_module(\"numpy\")", "Python interop"},
		{"bend fold without case", "a.bend", "def main:\n  fold xs", "fold without case"},
		{"bend missing main", "x.bend", "x = 1", "missing def main:"},
		{"bend return without run-cu", "a.bend", "def main:\n  return 1", "run-cu"},
		{"hvm missing main", "x.hvm", "x = 1", "missing def main:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeContent(tt.path, tt.content)
			require.NotEmpty(t, analysis.Warnings)
			assert.Contains(t, strings.Join(analysis.Warnings, "\n"), tt.want)
		})
	}
}

func Test_AnalyzeContent_AdvisoryScores(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    int
	}{
		{"python without entry point", "script.py", "print('hi')", 95},
		{"python with main", "script.py", "def main():\n    print('hi')\n", 100},
		{"python with name guard", "script.py", "if __name__ == '__main__':\n    run()\n", 100},
		{"rust static mut", "a.rs", "static mut COUNTER: u32 = 0;", 95},
		{"rust unsafe", "a.rs", "unsafe { x() }", 85},
		{"bend complete", "a.bend", "def main:\n  x = 1", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeContent(tt.path, tt.content).SecurityScore)
		})
	}
}

func Test_AnalyzeContent_SecretsAndScore(t *testing.T) {
	analysis := AnalyzeContent("b.rs", "fn login() {\n    let password = \"hunter2\";\n}\n")

	assert.LessOrEqual(t, analysis.SecurityScore, 75)
	assert.Equal(t, 1, analysis.SecurityRisks)
	assert.Contains(t, strings.Join(analysis.Warnings, "\n"), "hard-coded credential")

	key := "const KEY: &str = \"AIza" + strings.Repeat("A", 35) + "\";"
	analysis = AnalyzeContent("keys.ts", key)
	assert.Contains(t, analysis.Warnings, "hard-coded credential: Google API key")
}

func Test_Score_Clamps(t *testing.T) {
	var warnings []Warning
	for range 6 {
		warnings = append(warnings, Warning{Class: SecurityRisk})
	}
	assert.Equal(t, 0, Score(warnings))
	assert.Equal(t, 100, Score(nil))
	assert.Equal(t, 80, Score([]Warning{{Class: UnsafeMemory}, {Class: Advisory}}))
}

func Test_Analyzer_CacheHitIsIdentical(t *testing.T) {
	path := writeSource(t, t.TempDir(), "lib.rs", rustSample)

	var computed atomic.Int64
	a := New(NewCache(), Options{OnAnalyzed: func(FileAnalysis) { computed.Add(1) }}, testLogger())

	first, err := a.Analyze(path)
	require.NoError(t, err)
	second, err := a.Analyze(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), computed.Load())
	assert.Equal(t, 1, a.Cache().Len())
	hits, _ := a.Cache().HitRate()
	assert.Equal(t, int64(1), hits)
}

func Test_Analyzer_ModificationInvalidates(t *testing.T) {
	path := writeSource(t, t.TempDir(), "lib.rs", "fn a() {}\n")
	a := New(NewCache(), Options{}, testLogger())

	first, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Functions)

	require.NoError(t, os.WriteFile(path, []byte("fn a() {}\nfn b() {}\n"), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Functions)
	assert.Equal(t, 1, a.Cache().Len())
}

func Test_Analyzer_MappedAndBufferedAgree(t *testing.T) {
	content := strings.Repeat(rustSample, 50)
	path := writeSource(t, t.TempDir(), "big.rs", content)

	mapped, err := New(NewCache(), Options{LargeFileThreshold: 1}, testLogger()).Analyze(path)
	require.NoError(t, err)
	buffered, err := New(NewCache(), Options{LargeFileThreshold: 1 << 30}, testLogger()).Analyze(path)
	require.NoError(t, err)

	assert.Equal(t, buffered, mapped)
}

func Test_Analyzer_InvalidUTF8IsLossy(t *testing.T) {
	path := writeSource(t, t.TempDir(), "legacy.py", "name = 'caf\xe9'\ndef run():\n    pass\n")

	analysis, err := New(NewCache(), Options{LargeFileThreshold: 1}, testLogger()).Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, 3, analysis.TotalLines)
	assert.Equal(t, 1, analysis.Functions)
}

func Test_Analyzer_FileNotFound(t *testing.T) {
	_, err := New(NewCache(), Options{}, testLogger()).Analyze(filepath.Join(t.TempDir(), "nope.rs"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func Test_Analyzer_ConcurrentCallersShareComputation(t *testing.T) {
	path := writeSource(t, t.TempDir(), "hot.rs", rustSample)

	var computed atomic.Int64
	a := New(NewCache(), Options{OnAnalyzed: func(FileAnalysis) { computed.Add(1) }}, testLogger())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Analyze(path)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), computed.Load())
}

func Test_Analyzer_CachedWarningsAreNotShared(t *testing.T) {
	path := writeSource(t, t.TempDir(), "w.rs", "let v = Vec::new();\n")
	a := New(NewCache(), Options{}, testLogger())

	first, err := a.Analyze(path)
	require.NoError(t, err)
	first.Warnings[0] = "mutated"

	second, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, "Vec::new() without capacity hints", second.Warnings[0])
}

func Test_Analyzer_Operation_Statuses(t *testing.T) {
	dir := t.TempDir()
	clean := writeSource(t, dir, "clean.rs", "fn main() {}\n")
	warned := writeSource(t, dir, "warned.rs", "let v = Vec::new();\n")
	secret := writeSource(t, dir, "secret.rs", "let password = \"x\";\n")
	missing := filepath.Join(dir, "missing.rs")

	a := New(NewCache(), Options{}, testLogger())
	op := a.Operation(Full)

	_, status, err := op(clean, "")
	require.NoError(t, err)
	assert.Equal(t, engine.Success, status)

	findings, status, err := op(warned, "")
	require.NoError(t, err)
	assert.Equal(t, engine.Warning, status)
	assert.Len(t, findings, 2)

	_, status, err = op(secret, "")
	require.NoError(t, err)
	assert.Equal(t, engine.Error, status)

	_, _, err = op(missing, "")
	assert.ErrorIs(t, err, ErrFileNotFound)

	findings, _, err = a.Operation(Metrics)(warned, "")
	require.NoError(t, err)
	assert.Len(t, findings, 1)
	assert.Contains(t, findings[0], "security 95/100")
}
