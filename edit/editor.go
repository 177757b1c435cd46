// Package edit applies content edits, deletions and repairs to batches of files.
package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/fileio"
)

// Editor applies FileChanges and deletions using the engine's worker pool.
type Editor struct {
	exec   *engine.Executor
	logger *slog.Logger
}

// NewEditor creates an editor that schedules work on exec.
func NewEditor(exec *engine.Executor, logger *slog.Logger) *Editor {
	return &Editor{exec: exec, logger: logger}
}

// Apply applies every change independently. Missing files (and their parent
// directories) are created first, also in dry-run mode, so the edit can be evaluated.
// A file is written once, with all its edits, and only when at least one applied.
func (e *Editor) Apply(changes []FileChange, dryRun bool) ([]engine.Result, engine.Stats) {
	start := time.Now()
	results := engine.Map(e.exec, changes, func(change FileChange) engine.Result {
		return e.applyChange(change, dryRun)
	})

	stats := engine.Summarize(results)
	stats.Duration = time.Since(start)
	e.logger.Info("edit batch complete",
		"files", stats.TotalFiles,
		"applied", stats.Successful,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"dryRun", dryRun,
	)
	return results, stats
}

func (e *Editor) applyChange(change FileChange, dryRun bool) engine.Result {
	path := change.Path

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Stat error: %v", err))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Failed to create parent dir: %v", err))
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Failed to create new file: %v", err))
		}
		if f != nil {
			f.Close()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return engine.NewResult(path, engine.Error, fmt.Sprintf("Read error: %v", err))
	}

	content := string(data)
	applied := 0
	for _, op := range change.Operations {
		if rr, ok := op.(RegexReplace); ok && rr.Err() != nil {
			e.logger.Warn("skipping malformed pattern", "path", path, "pattern", rr.Pattern, "error", rr.Err())
			continue
		}
		updated := op.Apply(content)
		if updated != content {
			content = updated
			applied++
		}
	}

	if applied == 0 {
		return engine.NewResult(path, engine.Skipped, "No match found for edits")
	}
	if !dryRun {
		if err := fileio.WriteFileAtomic(path, []byte(content), fileio.FileMode(path)); err != nil {
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Write error: %v", err))
		}
	}
	return engine.NewResult(path, engine.Success, fmt.Sprintf("Applied %d edits", applied))
}

// Delete removes each path (file or directory tree) independently.
func (e *Editor) Delete(paths []string, dryRun bool) ([]engine.Result, engine.Stats) {
	start := time.Now()
	results := engine.Map(e.exec, paths, func(path string) engine.Result {
		if _, err := os.Lstat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return engine.NewResult(path, engine.Skipped, "File does not exist")
			}
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Delete failed: %v", err))
		}
		if dryRun {
			return engine.NewResult(path, engine.Warning, "[DRY_RUN] Would delete this file")
		}
		if err := os.RemoveAll(path); err != nil {
			return engine.NewResult(path, engine.Error, fmt.Sprintf("Delete failed: %v", err))
		}
		return engine.NewResult(path, engine.Success, "Deleted successfully")
	})

	stats := engine.Summarize(results)
	stats.Duration = time.Since(start)
	e.logger.Info("delete batch complete", "paths", stats.TotalFiles, "deleted", stats.Successful, "dryRun", dryRun)
	return results, stats
}
