package edit

import (
	"fmt"
	"strings"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/fileio"
	"github.com/lexandro/batchforge-mcp/language"
)

// maxBlankRun is the longest run of blank lines a repair keeps.
const maxBlankRun = 2

// RepairReport counts what a repair changed.
type RepairReport struct {
	DuplicateImports int
	TrimmedLines     int
	CollapsedBlanks  int
	AddedFinalEOL    bool
}

// Changed reports whether any repair applied.
func (r RepairReport) Changed() bool {
	return r.DuplicateImports > 0 || r.TrimmedLines > 0 || r.CollapsedBlanks > 0 || r.AddedFinalEOL
}

func (r RepairReport) String() string {
	var parts []string
	if r.DuplicateImports > 0 {
		parts = append(parts, fmt.Sprintf("removed %d duplicate imports", r.DuplicateImports))
	}
	if r.TrimmedLines > 0 {
		parts = append(parts, fmt.Sprintf("trimmed %d lines", r.TrimmedLines))
	}
	if r.CollapsedBlanks > 0 {
		parts = append(parts, fmt.Sprintf("collapsed %d blank lines", r.CollapsedBlanks))
	}
	if r.AddedFinalEOL {
		parts = append(parts, "added final newline")
	}
	if len(parts) == 0 {
		return "no repairs needed"
	}
	return strings.Join(parts, ", ")
}

// RepairContent removes duplicate import-equivalent lines (the first occurrence wins),
// trims trailing whitespace, collapses blank runs longer than two and normalizes line
// endings to a single trailing "\n". Repairing repaired content changes nothing.
func RepairContent(lang language.Language, content string) (string, RepairReport) {
	var report RepairReport
	if content == "" {
		return "", report
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		report.AddedFinalEOL = true
	}

	seenImports := make(map[string]bool)
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		if line != raw {
			report.TrimmedLines++
		}

		if line == "" {
			blankRun++
			if blankRun > maxBlankRun {
				report.CollapsedBlanks++
				continue
			}
			out = append(out, line)
			continue
		}

		if lang.IsImportLine(line) {
			key := strings.TrimSpace(line)
			if seenImports[key] {
				report.DuplicateImports++
				continue
			}
			seenImports[key] = true
		}
		// A dropped duplicate must not split a blank run, or a second pass would collapse it.
		blankRun = 0
		out = append(out, line)
	}

	return strings.Join(out, "\n") + "\n", report
}

// Repairer is the repair operation for the batch engine.
type Repairer struct {
	// DryRun reports the repair without writing.
	DryRun bool
}

// Operation returns the engine operation. Files are rewritten only when the repair
// changed their content; unchanged files report a no-op.
func (r Repairer) Operation() engine.Operation {
	return func(path, content string) ([]string, engine.Status, error) {
		repaired, report := RepairContent(language.Detect(path), content)
		if repaired == content {
			return []string{"no repairs needed"}, engine.Success, nil
		}
		if r.DryRun {
			return []string{"[DRY_RUN] would repair: " + report.String()}, engine.Warning, nil
		}
		if err := fileio.WriteFileAtomic(path, []byte(repaired), fileio.FileMode(path)); err != nil {
			return []string{fmt.Sprintf("Write error: %v", err)}, engine.Error, nil
		}
		return []string{"repaired: " + report.String()}, engine.Success, nil
	}
}
