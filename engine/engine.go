package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lexandro/batchforge-mcp/fileio"
)

// ErrBatchInconsistency is returned when a non-empty batch did not produce one result per input.
var ErrBatchInconsistency = errors.New("batch produced fewer results than inputs")

// Options configures an Engine.
type Options struct {
	// Workers is the pool size; 0 means one per CPU.
	Workers int
	// ChunkSize groups files into tasks for batches of ChunkingThreshold or more.
	ChunkSize int
	// LargeFileThreshold: files strictly larger are memory-mapped.
	LargeFileThreshold int64
	// ReadBufferSize sizes buffered reads.
	ReadBufferSize int
}

// Engine applies an Operation to a batch of files concurrently.
// A submitted batch always runs to completion.
type Engine struct {
	options Options
	exec    *Executor
	reader  fileio.Reader
	logger  *slog.Logger
}

// New creates an engine.
func New(options Options, logger *slog.Logger) *Engine {
	return &Engine{
		options: options,
		exec:    NewExecutor(options.Workers, options.ChunkSize),
		reader: fileio.Reader{
			LargeFileThreshold: options.LargeFileThreshold,
			ReadBufferSize:     options.ReadBufferSize,
		},
		logger: logger,
	}
}

// Reader returns the file reader configured from the engine's options.
func (e *Engine) Reader() fileio.Reader {
	return e.reader
}

// Executor returns the worker pool shared by every batch producer built on this engine.
func (e *Engine) Executor() *Executor {
	return e.exec
}

// WithWorkers returns an engine sharing this engine's settings but with a different pool size.
func (e *Engine) WithWorkers(workers int) *Engine {
	options := e.options
	options.Workers = workers
	return New(options, e.logger)
}

// Process runs op over every path and returns one result per path plus the batch stats.
func (e *Engine) Process(paths []string, op Operation) ([]Result, Stats, error) {
	start := time.Now()
	var totalBytes atomic.Int64

	results := Map(e.exec, paths, func(path string) Result {
		return e.processFile(path, op, &totalBytes)
	})
	if err := checkComplete(paths, results); err != nil {
		return results, Stats{}, err
	}

	stats := Summarize(results)
	stats.TotalBytes = totalBytes.Load()
	stats.Duration = time.Since(start)

	e.logger.Debug("batch complete",
		"files", stats.TotalFiles,
		"successful", stats.Successful,
		"warnings", stats.Warnings,
		"errors", stats.Errors,
		"skipped", stats.Skipped,
		"bytes", stats.TotalBytes,
		"duration", stats.Duration,
	)
	return results, stats, nil
}

// checkComplete verifies that every input has a result carrying its path.
func checkComplete(paths []string, results []Result) error {
	produced := 0
	for i, result := range results {
		if i < len(paths) && result.Path == paths[i] {
			produced++
		}
	}
	if produced != len(paths) {
		return fmt.Errorf("%w: %d inputs, %d results", ErrBatchInconsistency, len(paths), produced)
	}
	return nil
}

func (e *Engine) processFile(path string, op Operation, totalBytes *atomic.Int64) Result {
	info, err := os.Stat(path)
	if err != nil {
		return NewResult(path, Error, err.Error())
	}
	if info.IsDir() {
		return NewResult(path, Error, "is a directory")
	}

	var findings []string
	var status Status
	var opErr error
	readErr := e.reader.View(path, info.Size(), func(content string, _ fileio.Mode) error {
		findings, status, opErr = op(path, content)
		return nil
	})
	if readErr != nil {
		return NewResult(path, Error, readErr.Error())
	}
	if opErr != nil {
		return NewResult(path, Error, opErr.Error())
	}

	totalBytes.Add(info.Size())
	if findings == nil {
		findings = []string{}
	}
	return Result{Path: path, Status: status, Findings: findings}
}
