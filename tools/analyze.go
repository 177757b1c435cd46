package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Analysis modes.
const (
	ModeDeep     = "deep"
	ModeQuick    = "quick"
	ModeOverview = "overview"
)

// AnalyzeArgs defines the input parameters for the batchforge_analyze tool.
type AnalyzeArgs struct {
	Path               string `json:"path" jsonschema:"File or directory to analyze"`
	Mode               string `json:"mode,omitempty" jsonschema:"deep (metrics and warnings per file), quick (metrics only) or overview (aggregate); default deep"`
	Extension          string `json:"extension,omitempty" jsonschema:"Keep only files with this extension when path is a directory"`
	RespectIgnoreRules *bool  `json:"respectIgnoreRules,omitempty" jsonschema:"Honor ignore files (default true)"`
	IncludeHidden      bool   `json:"includeHidden,omitempty" jsonschema:"Include dot-prefixed entries"`
	MaxTasks           int    `json:"maxTasks,omitempty" jsonschema:"Worker count override for this request"`
}

// AnalyzeHandler holds the dependencies for the analyze tool.
type AnalyzeHandler struct {
	Scanner  *scanner.Scanner
	Engine   *engine.Engine
	Analyzer *analyzer.Analyzer
	Logger   *slog.Logger
}

// Handle processes a batchforge_analyze request.
func (h *AnalyzeHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	mode := strings.ToLower(args.Mode)
	if mode == "" {
		mode = ModeDeep
	}
	var detail analyzer.Detail
	switch mode {
	case ModeDeep:
		detail = analyzer.Full
	case ModeQuick, ModeOverview:
		detail = analyzer.Metrics
	default:
		h.Logger.Warn("batchforge_analyze unknown mode", "mode", args.Mode)
		return errorResult("Error: %v: mode %q (use deep, quick or overview)", ErrUnsupportedOperation, args.Mode), nil, nil
	}

	files, err := resolveTargets(h.Scanner, scanOptions(args.Path, args.Extension, args.RespectIgnoreRules, args.IncludeHidden, nil, nil))
	if err != nil {
		h.Logger.Error("batchforge_analyze scan failed", "path", args.Path, "error", err)
		return errorResult("Scan error: %v", err), nil, nil
	}

	eng := h.Engine
	if args.MaxTasks > 0 {
		eng = eng.WithWorkers(args.MaxTasks)
	}
	results, stats, err := eng.Process(files, h.Analyzer.Operation(detail))
	if err != nil {
		h.Logger.Error("batchforge_analyze failed", "path", args.Path, "error", err)
		return errorResult("Analyze error: %v", err), nil, nil
	}

	hits, misses := h.Analyzer.Cache().HitRate()
	h.Logger.Info("batchforge_analyze",
		"path", args.Path,
		"mode", mode,
		"files", stats.TotalFiles,
		"errors", stats.Errors,
		"cacheHits", hits,
		"cacheMisses", misses,
		"elapsed", stats.Duration,
	)

	if mode == ModeOverview {
		return textResult(h.overview(results, stats)), nil, nil
	}
	return textResult(FormatBatch("Analyzed", results, stats)), nil, nil
}

// overview aggregates cached analyses of the batch by language.
func (h *AnalyzeHandler) overview(results []engine.Result, stats engine.Stats) string {
	type languageTotals struct {
		files, lines, warnings, scoreSum int
		complexity                       float64
	}
	totals := make(map[string]*languageTotals)
	var lowest []analyzer.FileAnalysis

	for _, result := range results {
		analysis, err := h.Analyzer.Analyze(result.Path)
		if err != nil {
			continue
		}
		name := analysis.Language.String()
		t, ok := totals[name]
		if !ok {
			t = &languageTotals{}
			totals[name] = t
		}
		t.files++
		t.lines += analysis.TotalLines
		t.warnings += len(analysis.Warnings)
		t.scoreSum += analysis.SecurityScore
		t.complexity += analysis.Complexity
		lowest = append(lowest, analysis)
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]].files != totals[names[j]].files {
			return totals[names[i]].files > totals[names[j]].files
		}
		return names[i] < names[j]
	})

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Overview: %d files, %d errors, %s read\n\nLanguages:\n",
		stats.TotalFiles, stats.Errors, formatFileSize(stats.TotalBytes)))
	for _, name := range names {
		t := totals[name]
		builder.WriteString(fmt.Sprintf("  %-12s %4d files %7d lines %4d warnings  avg complexity %.1f  avg security %d/100\n",
			name, t.files, t.lines, t.warnings, t.complexity/float64(t.files), t.scoreSum/t.files))
	}

	sort.Slice(lowest, func(i, j int) bool {
		if lowest[i].SecurityScore != lowest[j].SecurityScore {
			return lowest[i].SecurityScore < lowest[j].SecurityScore
		}
		return lowest[i].Path < lowest[j].Path
	})
	if len(lowest) > 5 {
		lowest = lowest[:5]
	}
	if len(lowest) > 0 {
		builder.WriteString("\nLowest security scores:\n")
		for _, analysis := range lowest {
			builder.WriteString(fmt.Sprintf("  %3d/100  %s\n", analysis.SecurityScore, analysis.Path))
		}
	}
	return builder.String()
}
