// Package accelerator delegates named jobs to an external tool server.
package accelerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrExternalToolUnavailable is returned when no backend is configured or it cannot be reached.
	ErrExternalToolUnavailable = errors.New("external tool unavailable")
	// ErrUnexpectedResponse is returned when the backend answers without text content.
	ErrUnexpectedResponse = errors.New("unexpected response from external tool")
)

// DefaultTool is the remote tool a job is submitted to.
const DefaultTool = "create_simulation"

// Job is one delegated unit of work.
type Job struct {
	Name           string         `json:"name" validate:"required"`
	Logic          string         `json:"logic" validate:"required"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	UseAccelerator bool           `json:"useAccelerator"`
}

// Backend runs jobs and returns their text result.
type Backend interface {
	Submit(ctx context.Context, job Job) (string, error)
}

// Unavailable is the backend used when delegation is not configured.
type Unavailable struct{}

func (Unavailable) Submit(context.Context, Job) (string, error) {
	return "", fmt.Errorf("%w: no accelerator endpoint configured", ErrExternalToolUnavailable)
}

var validate = validator.New()

// MCPBackend calls a tool on a remote MCP server, one session per job.
type MCPBackend struct {
	tool      string
	transport func() mcp.Transport
	client    *mcp.Client
	logger    *slog.Logger
}

// NewMCPBackend creates a backend for the streamable HTTP MCP endpoint.
func NewMCPBackend(endpoint, tool string, logger *slog.Logger) *MCPBackend {
	return newMCPBackend(func() mcp.Transport {
		return &mcp.StreamableClientTransport{Endpoint: endpoint}
	}, tool, logger)
}

func newMCPBackend(transport func() mcp.Transport, tool string, logger *slog.Logger) *MCPBackend {
	if tool == "" {
		tool = DefaultTool
	}
	return &MCPBackend{
		tool:      tool,
		transport: transport,
		client:    mcp.NewClient(&mcp.Implementation{Name: "batchforge-mcp", Version: "0.1.0"}, nil),
		logger:    logger,
	}
}

// Submit validates the job, calls the remote tool and returns its first text content.
func (b *MCPBackend) Submit(ctx context.Context, job Job) (string, error) {
	if err := validate.Struct(job); err != nil {
		return "", fmt.Errorf("invalid job: %w", err)
	}

	session, err := b.client.Connect(ctx, b.transport(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalToolUnavailable, err)
	}
	defer session.Close()

	parameters := job.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: b.tool,
		Arguments: map[string]any{
			"name":       job.Name,
			"logic":      job.Logic,
			"parameters": parameters,
			"use_gpu":    job.UseAccelerator,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalToolUnavailable, err)
	}

	text := firstText(result)
	if result.IsError {
		return "", fmt.Errorf("external tool %s failed: %s", b.tool, text)
	}
	if text == "" {
		return "", ErrUnexpectedResponse
	}
	b.logger.Debug("job delegated", "tool", b.tool, "job", job.Name, "bytes", len(text))
	return text, nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return strings.TrimSpace(text.Text)
		}
	}
	return ""
}
