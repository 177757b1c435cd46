package ignore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// ErrInvalidPattern is returned when a custom exclude pattern is not a valid glob.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// IgnoreFileNames are the per-root ignore files honored when ignore rules are respected.
var IgnoreFileNames = []string{".gitignore", ".ignore"}

// Matcher determines whether a path below the root should be skipped.
// It combines default patterns, root .gitignore and .ignore rules, the hidden-entry
// rule and custom exclude globs.
// Thread-safe: Reload() acquires a write lock, ShouldIgnore()/ShouldIgnoreDir() acquire a read lock.
type Matcher struct {
	mu             sync.RWMutex
	rootDir        string
	ignoreFiles    []gitignore.GitIgnore
	customPatterns []string
	respectRules   bool
	includeHidden  bool
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir string
	// CustomPatterns are doublestar globs matched against the slash-separated relative path
	// and the base name. They apply even when ignore rules are not respected.
	CustomPatterns []string
	// RespectIgnoreRules enables the default patterns and the root ignore files.
	RespectIgnoreRules bool
	// IncludeHidden keeps dot-prefixed entries.
	IncludeHidden bool
}

// NewMatcher creates an ignore matcher for the given root.
func NewMatcher(options MatcherOptions) (*Matcher, error) {
	for _, pattern := range options.CustomPatterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	matcher := &Matcher{
		rootDir:        options.RootDir,
		customPatterns: options.CustomPatterns,
		respectRules:   options.RespectIgnoreRules,
		includeHidden:  options.IncludeHidden,
	}
	if matcher.respectRules {
		matcher.ignoreFiles = loadIgnoreFiles(options.RootDir)
	}
	return matcher, nil
}

// RootDir returns the directory the matcher resolves relative paths against.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// ShouldIgnore returns true if the given file path should be skipped.
// The path must be absolute or relative to the process working directory.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	return m.shouldIgnore(absolutePath, false)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if m.respectRules {
		// Fast path for directories that are always noise.
		switch filepath.Base(absolutePath) {
		case ".git", ".svn", ".hg", "node_modules", "__pycache__", "target", ".venv", "venv":
			return true
		}
	}
	return m.shouldIgnore(absolutePath, true)
}

func (m *Matcher) shouldIgnore(absolutePath string, isDir bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == "." {
		return false
	}

	if !m.includeHidden && hasHiddenComponent(relativePath) {
		return true
	}

	if m.respectRules {
		if matchesDefaultPatterns(relativePath) {
			return true
		}
		for _, gi := range m.ignoreFiles {
			// Relative() doesn't require the file to exist on disk
			match := gi.Relative(relativePath, isDir)
			if match != nil && match.Ignore() {
				return true
			}
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// hasHiddenComponent reports whether any path component starts with a dot.
func hasHiddenComponent(relativePath string) bool {
	for _, part := range strings.Split(relativePath, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// matchesDefaultPatterns checks the path against DefaultIgnorePatterns.
// Plain names match any path component, globs match the base name.
func matchesDefaultPatterns(relativePath string) bool {
	parts := strings.Split(strings.ToLower(relativePath), "/")
	baseName := parts[len(parts)-1]

	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			for _, part := range parts {
				if part == pattern {
					return true
				}
			}
			continue
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// matchesCustomPatterns checks if the path matches any user-provided exclude glob.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		pattern = filepath.ToSlash(pattern)
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, baseName); matched {
			return true
		}
	}
	return false
}

// Reload re-reads the root ignore files from disk.
// Used when the watcher detects changes to these files.
func (m *Matcher) Reload() {
	if !m.respectRules {
		return
	}
	reloaded := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = reloaded
}

// IsIgnoreFile reports whether a path names one of the root ignore files.
func IsIgnoreFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range IgnoreFileNames {
		if base == name {
			return true
		}
	}
	return false
}

func loadIgnoreFiles(rootDir string) []gitignore.GitIgnore {
	var loaded []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			loaded = append(loaded, gi)
		}
	}
	return loaded
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses the io.Reader constructor so the file handle is closed promptly on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
