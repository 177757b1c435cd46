package engine

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome class of one per-file result.
type Status int

const (
	Success Status = iota
	Warning
	Error
	Skipped
)

var statusNames = [...]string{"success", "warning", "error", "skipped"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a lowercase status name.
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, candidate := range statusNames {
		if candidate == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Result is the outcome of processing one file (or one pipeline event).
type Result struct {
	Path     string   `json:"path"`
	Status   Status   `json:"status"`
	Findings []string `json:"findings"`
}

// NewResult builds a result with a single finding.
func NewResult(path string, status Status, finding string) Result {
	return Result{Path: path, Status: status, Findings: []string{finding}}
}

// Stats aggregates a batch. Successful+Errors+Warnings+Skipped == TotalFiles.
type Stats struct {
	TotalFiles int           `json:"totalFiles"`
	Successful int           `json:"successful"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
	Skipped    int           `json:"skipped"`
	TotalBytes int64         `json:"totalBytes"`
	Duration   time.Duration `json:"duration"`
}

// Summarize derives status counts from results. Bytes and duration are left to the caller.
func Summarize(results []Result) Stats {
	stats := Stats{TotalFiles: len(results)}
	for _, result := range results {
		switch result.Status {
		case Success:
			stats.Successful++
		case Warning:
			stats.Warnings++
		case Error:
			stats.Errors++
		case Skipped:
			stats.Skipped++
		}
	}
	return stats
}

// Merge adds another batch's counts, bytes and duration into s.
func (s *Stats) Merge(other Stats) {
	s.TotalFiles += other.TotalFiles
	s.Successful += other.Successful
	s.Errors += other.Errors
	s.Warnings += other.Warnings
	s.Skipped += other.Skipped
	s.TotalBytes += other.TotalBytes
	s.Duration += other.Duration
}

// Operation transforms or inspects one file's content. content is only valid for the
// duration of the call. A returned error becomes an Error result carrying its text.
type Operation func(path string, content string) (findings []string, status Status, err error)
