// Package tools implements the MCP tool handlers.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrUnsupportedOperation is returned for an unknown mode.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ScanArgs defines the input parameters for the batchforge_scan tool.
type ScanArgs struct {
	Path               string   `json:"path" jsonschema:"Root directory to scan"`
	Extension          string   `json:"extension,omitempty" jsonschema:"Keep only files with this extension (exact, case-sensitive, e.g. rs)"`
	RespectIgnoreRules *bool    `json:"respectIgnoreRules,omitempty" jsonschema:"Honor .gitignore/.ignore files and default ignores (default true)"`
	IncludeHidden      bool     `json:"includeHidden,omitempty" jsonschema:"Include dot-prefixed files and directories"`
	Include            []string `json:"include,omitempty" jsonschema:"Glob patterns a relative path must match (e.g. src/**)"`
	Exclude            []string `json:"exclude,omitempty" jsonschema:"Glob patterns of paths to skip"`
}

// ScanHandler holds the dependencies for the scan tool.
type ScanHandler struct {
	Scanner *scanner.Scanner
	Logger  *slog.Logger
}

// Handle processes a batchforge_scan request.
func (h *ScanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ScanArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}

	start := time.Now()
	files, err := h.Scanner.Scan(scanOptions(args.Path, args.Extension, args.RespectIgnoreRules, args.IncludeHidden, args.Include, args.Exclude))
	if err != nil {
		h.Logger.Error("batchforge_scan failed", "path", args.Path, "error", err)
		return errorResult("Scan error: %v", err), nil, nil
	}

	h.Logger.Info("batchforge_scan",
		"path", args.Path,
		"extension", args.Extension,
		"files", len(files),
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileList(files)), nil, nil
}

func scanOptions(root, extension string, respect *bool, hidden bool, include, exclude []string) scanner.Options {
	respectIgnoreRules := true
	if respect != nil {
		respectIgnoreRules = *respect
	}
	return scanner.Options{
		Root:               root,
		Extension:          extension,
		RespectIgnoreRules: respectIgnoreRules,
		IncludeHidden:      hidden,
		Include:            include,
		Exclude:            exclude,
	}
}

// resolveTargets returns path itself when it is a regular file, otherwise the scan of path.
func resolveTargets(sc *scanner.Scanner, options scanner.Options) ([]string, error) {
	info, err := os.Stat(options.Root)
	if err == nil && info.Mode().IsRegular() {
		abs, err := filepath.Abs(options.Root)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", options.Root, err)
		}
		return []string{abs}, nil
	}
	return sc.Scan(options)
}
