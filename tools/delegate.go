package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lexandro/batchforge-mcp/accelerator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DelegateArgs defines the input parameters for the batchforge_delegate tool.
type DelegateArgs struct {
	Name           string         `json:"name" jsonschema:"Job name"`
	Logic          string         `json:"logic" jsonschema:"Program text run by the external tool"`
	Parameters     map[string]any `json:"parameters,omitempty" jsonschema:"Job parameters"`
	UseAccelerator bool           `json:"useAccelerator,omitempty" jsonschema:"Ask the external tool to use its accelerator"`
}

// DelegateHandler holds the dependencies for the delegate tool.
type DelegateHandler struct {
	Backend accelerator.Backend
	Logger  *slog.Logger
}

// Handle processes a batchforge_delegate request.
func (h *DelegateHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args DelegateArgs) (*mcp.CallToolResult, any, error) {
	out, err := h.Backend.Submit(ctx, accelerator.Job{
		Name:           args.Name,
		Logic:          args.Logic,
		Parameters:     args.Parameters,
		UseAccelerator: args.UseAccelerator,
	})
	if err != nil {
		if errors.Is(err, accelerator.ErrExternalToolUnavailable) {
			h.Logger.Warn("batchforge_delegate unavailable", "job", args.Name, "error", err)
		} else {
			h.Logger.Error("batchforge_delegate failed", "job", args.Name, "error", err)
		}
		return errorResult("Delegate error: %v", err), nil, nil
	}

	h.Logger.Info("batchforge_delegate", "job", args.Name, "bytes", len(out))
	return textResult(out), nil, nil
}
