package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxListedResults caps the per-file lines in a batch report.
const maxListedResults = 500

// FormatBatch renders a batch's stats followed by one block per file.
func FormatBatch(title string, results []engine.Result, stats engine.Stats) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s: %d files in %s (%d ok, %d warnings, %d errors, %d skipped, %s read)\n",
		title,
		stats.TotalFiles,
		stats.Duration.Round(time.Millisecond),
		stats.Successful,
		stats.Warnings,
		stats.Errors,
		stats.Skipped,
		formatFileSize(stats.TotalBytes),
	))

	for i, result := range results {
		if i == maxListedResults {
			builder.WriteString(fmt.Sprintf("\n... %d more results not shown\n", len(results)-maxListedResults))
			break
		}
		builder.WriteString(fmt.Sprintf("\n[%s] %s\n", result.Status, result.Path))
		for _, finding := range result.Findings {
			builder.WriteString(fmt.Sprintf("  %s\n", finding))
		}
	}
	return builder.String()
}

// FormatFileList renders scanned paths.
func FormatFileList(paths []string) string {
	if len(paths) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(paths)))
	for _, path := range paths {
		builder.WriteString(path)
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatFindings renders findings index hits.
func FormatFindings(hits []index.Hit, total uint64) string {
	if len(hits) == 0 {
		return "No findings matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d analyses (%d index hits):\n", len(hits), total))
	for _, hit := range hits {
		builder.WriteString(fmt.Sprintf("\n── %s ── (%s, security %d/100, complexity %.1f)\n",
			hit.Path, hit.Language, hit.SecurityScore, hit.Complexity))
		for _, warning := range hit.Warnings {
			builder.WriteString(fmt.Sprintf("  %s\n", warning))
		}
	}
	return builder.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
