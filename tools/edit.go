package tools

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lexandro/batchforge-mcp/edit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// EditArgs defines the input parameters for the batchforge_edit tool.
type EditArgs struct {
	Mode    string                `json:"mode,omitempty" jsonschema:"replace, regex, append or delete (default replace); the default type for operations without one"`
	Changes []edit.FileChangeSpec `json:"changes,omitempty" jsonschema:"Per-file ordered operations (replace, regex and append modes)"`
	Paths   []string              `json:"paths,omitempty" jsonschema:"Files or directories to delete (delete mode)"`
	DryRun  *bool                 `json:"dryRun,omitempty" jsonschema:"Report without writing (default true)"`
}

// EditHandler holds the dependencies for the edit tool.
type EditHandler struct {
	Editor *edit.Editor
	Logger *slog.Logger
}

// Handle processes a batchforge_edit request.
func (h *EditHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args EditArgs) (*mcp.CallToolResult, any, error) {
	dryRun := true
	if args.DryRun != nil {
		dryRun = *args.DryRun
	}

	mode := strings.ToLower(args.Mode)
	if mode == "" {
		mode = "replace"
	}

	switch mode {
	case "delete":
		if len(args.Paths) == 0 {
			return errorResult("Error: paths parameter is required for delete"), nil, nil
		}
		results, stats := h.Editor.Delete(args.Paths, dryRun)
		h.Logger.Info("batchforge_edit", "mode", mode, "paths", len(args.Paths), "dryRun", dryRun)
		return textResult(FormatBatch("Deleted", results, stats)), nil, nil
	case "replace", "regex", "regex_replace", "append":
	default:
		h.Logger.Warn("batchforge_edit unknown mode", "mode", args.Mode)
		return errorResult("Error: %v: mode %q (use replace, regex, append or delete)", ErrUnsupportedOperation, args.Mode), nil, nil
	}

	if len(args.Changes) == 0 {
		return errorResult("Error: changes parameter is required"), nil, nil
	}
	specs := make([]edit.FileChangeSpec, len(args.Changes))
	for i, change := range args.Changes {
		ops := make([]edit.OperationSpec, len(change.Operations))
		for j, op := range change.Operations {
			if op.Type == "" {
				op.Type = mode
			}
			ops[j] = op
		}
		specs[i] = edit.FileChangeSpec{Path: change.Path, Operations: ops}
	}

	changes, err := edit.DecodeChanges(specs)
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	results, stats := h.Editor.Apply(changes, dryRun)
	h.Logger.Info("batchforge_edit",
		"mode", mode,
		"files", stats.TotalFiles,
		"applied", stats.Successful,
		"dryRun", dryRun,
	)

	title := "Edited"
	if dryRun {
		title = "Edited (dry run)"
	}
	return textResult(FormatBatch(title, results, stats)), nil, nil
}
