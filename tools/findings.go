package tools

import (
	"context"
	"log/slog"

	"github.com/lexandro/batchforge-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindingsArgs defines the input parameters for the batchforge_findings tool.
type FindingsArgs struct {
	Query            string `json:"query,omitempty" jsonschema:"Warning text. Plain words, \"quoted phrase\" or /regex/. Empty lists every analysis by ascending security score"`
	MaxSecurityScore *int   `json:"maxSecurityScore,omitempty" jsonschema:"Keep analyses with a security score at or below this value"`
	PathGlob         string `json:"pathGlob,omitempty" jsonschema:"Glob on the analyzed path (e.g. *.rs or **/src/**)"`
	MaxResults       int    `json:"maxResults,omitempty" jsonschema:"Maximum number of analyses to return (default 50)"`
}

// FindingsHandler holds the dependencies for the findings tool.
type FindingsHandler struct {
	Index  *index.FindingsIndex
	Logger *slog.Logger
}

// Handle processes a batchforge_findings request.
func (h *FindingsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FindingsArgs) (*mcp.CallToolResult, any, error) {
	hits, total, err := h.Index.Search(index.SearchOptions{
		Query:            args.Query,
		MaxSecurityScore: args.MaxSecurityScore,
		PathGlob:         args.PathGlob,
		MaxResults:       args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("batchforge_findings failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("batchforge_findings", "query", args.Query, "pathGlob", args.PathGlob, "hits", len(hits))
	return textResult(FormatFindings(hits, total)), nil, nil
}
