package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/ignore"
	"github.com/lexandro/batchforge-mcp/index"
	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/lexandro/batchforge-mcp/watcher"
)

// liveAnalysis keeps the analysis cache and the findings index in step with the
// files below the root.
type liveAnalysis struct {
	root     string
	interval time.Duration
	matcher  *ignore.Matcher
	scanner  *scanner.Scanner
	engine   *engine.Engine
	analyzer *analyzer.Analyzer
	index    *index.FindingsIndex
	logger   *slog.Logger
}

// SyncResult counts what one batch of changes did.
type SyncResult struct {
	Analyzed int
	Removed  int
	Failed   int
}

func newLiveAnalysis(c *components) (*liveAnalysis, error) {
	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:            c.cfg.Root,
		CustomPatterns:     c.cfg.Exclude,
		RespectIgnoreRules: true,
	})
	if err != nil {
		return nil, err
	}
	return &liveAnalysis{
		root:     c.cfg.Root,
		interval: time.Duration(c.cfg.Watch.DebounceMS) * time.Millisecond,
		matcher:  matcher,
		scanner:  c.scanner,
		engine:   c.engine,
		analyzer: c.analyzer,
		index:    c.index,
		logger:   c.logger,
	}, nil
}

func (l *liveAnalysis) watch() (*watcher.Watcher, error) {
	return watcher.New(l.root, l.matcher, l.interval, l.logger)
}

// warm analyzes every non-ignored file below the root.
func (l *liveAnalysis) warm() {
	start := time.Now()
	files, err := l.scanner.Scan(scanner.Options{
		Root:               l.root,
		RespectIgnoreRules: true,
	})
	if err != nil {
		l.logger.Warn("initial analysis skipped", "root", l.root, "error", err)
		return
	}
	_, stats, err := l.engine.Process(files, l.analyzer.Operation(analyzer.Metrics))
	if err != nil {
		l.logger.Warn("initial analysis incomplete", "error", err)
		return
	}
	l.logger.Info("initial analysis complete",
		"files", stats.TotalFiles,
		"errors", stats.Errors,
		"indexed", l.index.DocCount(),
		"duration", time.Since(start),
	)
}

// run applies change batches until ctx is done or changes is closed.
func (l *liveAnalysis) run(ctx context.Context, changes <-chan []watcher.Change) {
	l.logger.Info("live analysis started", "root", l.root)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("live analysis stopped")
			return
		case batch, ok := <-changes:
			if !ok {
				return
			}
			result := l.apply(batch)
			if result.Analyzed+result.Removed+result.Failed > 0 {
				l.logger.Info("live analysis batch",
					"analyzed", result.Analyzed,
					"removed", result.Removed,
					"failed", result.Failed,
				)
			}
		}
	}
}

// apply re-analyzes changed files and drops removed ones from the index.
// A change to a root ignore file reloads the ignore rules.
func (l *liveAnalysis) apply(batch []watcher.Change) SyncResult {
	var result SyncResult
	var changed []string

	for _, change := range batch {
		if ignore.IsIgnoreFile(change.Path) {
			l.matcher.Reload()
			l.logger.Info("ignore rules reloaded", "path", change.Path)
			continue
		}
		if change.Kind == watcher.Removed {
			l.remove(change.Path, &result)
			continue
		}
		info, err := os.Stat(change.Path)
		if err != nil {
			l.remove(change.Path, &result)
			continue
		}
		if info.Mode().IsRegular() {
			changed = append(changed, change.Path)
		}
	}

	if len(changed) == 0 {
		return result
	}
	errs := engine.Map(l.engine.Executor(), changed, func(path string) error {
		_, err := l.analyzer.Analyze(path)
		return err
	})
	for i, err := range errs {
		if err != nil {
			l.logger.Debug("live analysis failed", "path", changed[i], "error", err)
			result.Failed++
			continue
		}
		result.Analyzed++
	}
	return result
}

func (l *liveAnalysis) remove(path string, result *SyncResult) {
	if err := l.index.Remove(path); err != nil {
		l.logger.Warn("failed to drop analysis", "path", path, "error", err)
		return
	}
	result.Removed++
}
