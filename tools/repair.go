package tools

import (
	"context"
	"log/slog"

	"github.com/lexandro/batchforge-mcp/edit"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RepairArgs defines the input parameters for the batchforge_repair tool.
type RepairArgs struct {
	Path      string `json:"path" jsonschema:"File or directory to repair"`
	Extension string `json:"extension,omitempty" jsonschema:"Keep only files with this extension when path is a directory"`
	DryRun    bool   `json:"dryRun,omitempty" jsonschema:"Report the repairs without writing"`
}

// RepairHandler holds the dependencies for the repair tool.
type RepairHandler struct {
	Scanner *scanner.Scanner
	Engine  *engine.Engine
	Logger  *slog.Logger
}

// Handle processes a batchforge_repair request.
func (h *RepairHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RepairArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}

	files, err := resolveTargets(h.Scanner, scanOptions(args.Path, args.Extension, nil, false, nil, nil))
	if err != nil {
		h.Logger.Error("batchforge_repair scan failed", "path", args.Path, "error", err)
		return errorResult("Scan error: %v", err), nil, nil
	}

	results, stats, err := h.Engine.Process(files, edit.Repairer{DryRun: args.DryRun}.Operation())
	if err != nil {
		h.Logger.Error("batchforge_repair failed", "path", args.Path, "error", err)
		return errorResult("Repair error: %v", err), nil, nil
	}

	h.Logger.Info("batchforge_repair",
		"path", args.Path,
		"files", stats.TotalFiles,
		"warnings", stats.Warnings,
		"dryRun", args.DryRun,
		"elapsed", stats.Duration,
	)
	return textResult(FormatBatch("Repaired", results, stats)), nil, nil
}
