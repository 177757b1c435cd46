// Package scanner discovers candidate files below a root directory.
package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/batchforge-mcp/ignore"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidDirectory is returned when the scan root is missing or not a directory.
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrMalformedPattern is returned for an include or exclude glob that does not parse.
	ErrMalformedPattern = errors.New("malformed pattern")
)

// Options describes one scan.
type Options struct {
	Root string
	// Extension is matched exactly and case-sensitively; a leading dot is optional.
	// An empty extension keeps every file.
	Extension          string
	RespectIgnoreRules bool
	IncludeHidden      bool
	// Include keeps only files whose relative path matches one of these globs.
	Include []string
	// Exclude drops files and directories matching any of these globs.
	Exclude []string
}

// Scanner walks directory trees in parallel.
type Scanner struct {
	workers int
	exclude []string
	logger  *slog.Logger
}

// New creates a scanner with the given directory-reading parallelism (0 = one per CPU).
func New(workers int, logger *slog.Logger) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{workers: workers, logger: logger}
}

// WithExclude returns a scanner that also drops paths matching patterns on every scan.
func (s *Scanner) WithExclude(patterns []string) *Scanner {
	return &Scanner{workers: s.workers, exclude: slices.Clone(patterns), logger: s.logger}
}

// Scan returns the regular files below options.Root with the requested extension.
// Symlinks are not followed. The result is sorted.
func (s *Scanner) Scan(options Options) ([]string, error) {
	info, err := os.Stat(options.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, options.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, options.Root)
	}

	root, err := filepath.Abs(options.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, options.Root, err)
	}

	for _, pattern := range options.Include {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPattern, pattern)
		}
	}
	matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:            root,
		CustomPatterns:     append(slices.Clone(s.exclude), options.Exclude...),
		RespectIgnoreRules: options.RespectIgnoreRules,
		IncludeHidden:      options.IncludeHidden,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPattern, err)
	}

	suffix := ""
	if ext := strings.TrimPrefix(options.Extension, "."); ext != "" {
		suffix = "." + ext
	}
	w := &walk{
		root:    root,
		suffix:  suffix,
		include: options.Include,
		matcher: matcher,
		logger:  s.logger,
	}
	w.group.SetLimit(s.workers)
	w.group.Go(func() error {
		w.readDir(root)
		return nil
	})
	w.group.Wait()

	slices.Sort(w.found)
	s.logger.Debug("scan complete", "root", root, "extension", options.Extension, "files", len(w.found))
	return w.found, nil
}

type walk struct {
	root    string
	suffix  string
	include []string
	matcher *ignore.Matcher
	logger  *slog.Logger

	group errgroup.Group
	mu    sync.Mutex
	found []string
}

// readDir lists one directory. Subdirectories are handed to the pool when a
// slot is free and walked inline otherwise, so a worker never waits on itself.
func (w *walk) readDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Debug("skipped unreadable directory", "path", dir, "error", err)
		return
	}

	var matched []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			if w.matcher.ShouldIgnoreDir(path) {
				continue
			}
			if !w.group.TryGo(func() error {
				w.readDir(path)
				return nil
			}) {
				w.readDir(path)
			}
		case entry.Type().IsRegular():
			if w.keep(path) {
				matched = append(matched, path)
			}
		}
	}

	if len(matched) > 0 {
		w.mu.Lock()
		w.found = append(w.found, matched...)
		w.mu.Unlock()
	}
}

func (w *walk) keep(path string) bool {
	if w.suffix != "" && filepath.Ext(path) != w.suffix {
		return false
	}
	if w.matcher.ShouldIgnore(path) {
		return false
	}
	if len(w.include) == 0 {
		return true
	}
	relativePath, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	relativePath = filepath.ToSlash(relativePath)
	for _, pattern := range w.include {
		if matched, _ := doublestar.Match(filepath.ToSlash(pattern), relativePath); matched {
			return true
		}
	}
	return false
}
