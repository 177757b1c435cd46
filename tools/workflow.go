package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lexandro/batchforge-mcp/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WorkflowArgs defines the input parameters for the batchforge_workflow tool.
type WorkflowArgs struct {
	Steps    []workflow.StepSpec `json:"steps" jsonschema:"Ordered steps: scan, filter, analyze, edit, repair, evolve"`
	MaxTasks int                 `json:"maxTasks,omitempty" jsonschema:"Worker count override for this run"`
	DryRun   bool                `json:"dryRun,omitempty" jsonschema:"Edit and repair steps report without writing; evolve never writes"`
}

// WorkflowHandler holds the dependencies for the workflow tool.
type WorkflowHandler struct {
	Runner *workflow.Runner
	Logger *slog.Logger
}

// Handle processes a batchforge_workflow request.
func (h *WorkflowHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args WorkflowArgs) (*mcp.CallToolResult, any, error) {
	if len(args.Steps) == 0 {
		return errorResult("Error: steps parameter is required"), nil, nil
	}
	steps, err := workflow.DecodeSteps(args.Steps)
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	log, stats, err := h.Runner.Run(ctx, workflow.Request{Steps: steps, MaxTasks: args.MaxTasks, DryRun: args.DryRun})
	if err != nil {
		var stepErr *workflow.StepError
		if errors.As(err, &stepErr) {
			h.Logger.Warn("batchforge_workflow aborted", "step", stepErr.Index, "action", stepErr.Action, "error", stepErr.Err)
		}
		return errorResult("Workflow error: %v", err), nil, nil
	}

	h.Logger.Info("batchforge_workflow",
		"steps", len(steps),
		"entries", len(log),
		"files", stats.TotalFiles,
		"elapsed", stats.Duration,
	)
	return textResult(FormatBatch("Workflow", log, stats)), nil, nil
}
