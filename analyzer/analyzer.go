// Package analyzer computes heuristic per-file metrics and warnings, memoized by
// modification time.
package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/fileio"
	"github.com/lexandro/batchforge-mcp/language"
	"golang.org/x/sync/singleflight"
)

// ErrFileNotFound is returned when the analyzed path does not exist.
var ErrFileNotFound = errors.New("file not found")

// FileAnalysis is the immutable result of analyzing one file version.
type FileAnalysis struct {
	Path          string            `json:"path"`
	Language      language.Language `json:"language"`
	TotalLines    int               `json:"totalLines"`
	CodeLines     int               `json:"codeLines"`
	BlankLines    int               `json:"blankLines"`
	CommentLines  int               `json:"commentLines"`
	Complexity    float64           `json:"complexity"`
	Functions     int               `json:"functions"`
	Structs       int               `json:"structs"`
	Imports       int               `json:"imports"`
	Warnings      []string          `json:"warnings"`
	SecurityScore int               `json:"securityScore"`
	// SecurityRisks counts the warnings of class SecurityRisk.
	SecurityRisks int `json:"securityRisks"`
}

// Options configures an Analyzer.
type Options struct {
	LargeFileThreshold int64
	ReadBufferSize     int
	// OnAnalyzed is called after every fresh computation, never on cache hits.
	OnAnalyzed func(FileAnalysis)
}

// Analyzer produces FileAnalysis values through a shared Cache.
type Analyzer struct {
	cache      *Cache
	reader     fileio.Reader
	flight     singleflight.Group
	onAnalyzed func(FileAnalysis)
	logger     *slog.Logger
}

// New creates an analyzer backed by cache.
func New(cache *Cache, options Options, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cache: cache,
		reader: fileio.Reader{
			LargeFileThreshold: options.LargeFileThreshold,
			ReadBufferSize:     options.ReadBufferSize,
			Lossy:              true,
		},
		onAnalyzed: options.OnAnalyzed,
		logger:     logger,
	}
}

// Cache returns the cache the analyzer reads through.
func (a *Analyzer) Cache() *Cache {
	return a.cache
}

// Analyze returns the analysis of path, computing it only when the cached entry is
// missing or was recorded for a different modification time. Concurrent callers for
// the same file version share one computation.
func (a *Analyzer) Analyze(path string) (FileAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileAnalysis{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return FileAnalysis{}, fmt.Errorf("stat %s: %w", path, err)
	}
	modTime := info.ModTime()
	if analysis, ok := a.cache.Get(path, modTime); ok {
		return analysis, nil
	}

	key := fmt.Sprintf("%s@%d", path, modTime.UnixNano())
	value, err, _ := a.flight.Do(key, func() (any, error) {
		if analysis, ok := a.cache.Get(path, modTime); ok {
			return analysis, nil
		}
		return a.compute(path, info.Size(), modTime)
	})
	if err != nil {
		return FileAnalysis{}, err
	}
	return value.(FileAnalysis).clone(), nil
}

func (a *Analyzer) compute(path string, size int64, modTime time.Time) (FileAnalysis, error) {
	var analysis FileAnalysis
	var mode fileio.Mode
	err := a.reader.View(path, size, func(content string, m fileio.Mode) error {
		analysis = AnalyzeContent(path, content)
		mode = m
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileAnalysis{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return FileAnalysis{}, fmt.Errorf("reading %s: %w", path, err)
	}

	a.cache.Put(path, modTime, analysis)
	a.logger.Debug("analyzed file", "path", path, "read", mode, "warnings", len(analysis.Warnings))
	if a.onAnalyzed != nil {
		a.onAnalyzed(analysis)
	}
	return analysis, nil
}

// Detail selects how much of an analysis an Operation reports.
type Detail int

const (
	// Full reports the metrics line followed by every warning.
	Full Detail = iota
	// Metrics reports only the metrics line.
	Metrics
)

// Operation adapts the analyzer to the batch engine. The status is Error when the file
// carries a security-class warning, Warning when it carries any other warning and
// Success otherwise. Analysis failures surface as Error results.
func (a *Analyzer) Operation(detail Detail) engine.Operation {
	return func(path, _ string) ([]string, engine.Status, error) {
		analysis, err := a.Analyze(path)
		if err != nil {
			return nil, engine.Error, err
		}

		findings := []string{analysis.Summary()}
		if detail == Full {
			findings = append(findings, analysis.Warnings...)
		}

		switch {
		case analysis.SecurityRisks > 0:
			return findings, engine.Error, nil
		case len(analysis.Warnings) > 0:
			return findings, engine.Warning, nil
		default:
			return findings, engine.Success, nil
		}
	}
}

// Summary renders the metrics as one line.
func (a FileAnalysis) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d lines (code %d, comment %d, blank %d)",
		a.Language, a.TotalLines, a.CodeLines, a.CommentLines, a.BlankLines)
	fmt.Fprintf(&b, " | complexity %.1f | functions %d | types %d | imports %d | security %d/100",
		a.Complexity, a.Functions, a.Structs, a.Imports, a.SecurityScore)
	return b.String()
}
