package server

import (
	"github.com/lexandro/batchforge-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Name and Version identify the server to MCP clients.
const (
	Name    = "batchforge-mcp"
	Version = "0.1.0"
)

// Handlers groups the tool handlers the server exposes.
type Handlers struct {
	Scan     *tools.ScanHandler
	Analyze  *tools.AnalyzeHandler
	Edit     *tools.EditHandler
	Repair   *tools.RepairHandler
	Workflow *tools.WorkflowHandler
	Findings *tools.FindingsHandler
	Status   *tools.StatusHandler
	Delegate *tools.DelegateHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    Name,
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server runs file operations over many files in parallel. Prefer it to reading or editing files one by one whenever a task touches more than a handful of files.

- Use batchforge_scan to list files under a directory, filtered by extension and ignore rules
- Use batchforge_analyze for per-file metrics, warnings and security scores (results are cached per file version)
- Use batchforge_findings to query warnings from every analysis made so far
- Use batchforge_edit for batched replace, regex and append edits or deletes (dry run by default)
- Use batchforge_repair to remove duplicate imports and whitespace noise
- Use batchforge_workflow to chain scan, filter, analyze, edit, repair and evolve steps in one call`,
		},
	)

	// Register batchforge_scan tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "batchforge_scan",
		Description: `List files under a directory. Walks in parallel and honors .gitignore/.ignore files unless respectIgnoreRules is false.

Filtering:
  - extension: exact, case-sensitive (e.g. "rs" or ".rs")
  - include / exclude: glob patterns on the relative path (e.g. "src/**", "**/*_test.go")`,
	}, h.Scan.Handle)

	// Register batchforge_analyze tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "batchforge_analyze",
		Description: `Analyze a file or every file under a directory: line counts, complexity, functions, types, imports, heuristic warnings and a 0-100 security score.

Modes:
  - deep: metrics and warnings per file (default)
  - quick: metrics only
  - overview: per-language totals and the lowest security scores

Status per file: error when a security risk was found, warning for other warnings, success otherwise.`,
	}, h.Analyze.Handle)

	// Register batchforge_findings tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "batchforge_findings",
		Description: `Search the warnings of every analysis made so far.

Query formats:
  - Plain text: word-level matching (e.g. "unwrap")
  - "quoted text": exact phrase matching
  - /regex/: regular expression matching

Filtering:
  - maxSecurityScore: keep analyses at or below this score
  - pathGlob: glob on the analyzed path (e.g. "**/*.rs")`,
	}, h.Findings.Handle)

	// Register batchforge_edit tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "batchforge_edit",
		Description: `Apply ordered edits to many files in parallel, or delete files. Dry run unless dryRun is false.

Operation types: replace (target, replacement), regex_replace (pattern, replacement; $1 expands groups), append (content).
Missing files are created empty before editing. A file with no effective edit is reported as skipped.`,
	}, h.Edit.Handle)

	// Register batchforge_repair tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "batchforge_repair",
		Description: "Repair a file or directory: drop duplicate import lines, trim trailing whitespace, collapse long blank runs and normalize the final newline. Repairing twice changes nothing.",
	}, h.Repair.Handle)

	// Register batchforge_workflow tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "batchforge_workflow",
		Description: `Run an ordered pipeline over a working file set.

Steps (action + params):
  - scan {path, extension}: replace the working set
  - filter {pattern, invert}: keep files whose content matches the regex
  - analyze: complexity and security findings per file
  - edit {operations}: apply operations to every file in the set
  - repair: repair every file in the set
  - evolve {maxIterations, dryRun}: detect and repair fixable issues until none remain

The first failing step aborts the run.`,
	}, h.Workflow.Handle)

	// Register batchforge_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "batchforge_status",
		Description: "Show server status: workers, analysis cache size and hit rate, indexed analyses, configuration, memory usage and uptime.",
	}, h.Status.Handle)

	// Register batchforge_delegate tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "batchforge_delegate",
		Description: "Submit a named job to the configured external accelerator tool and return its reply. Fails when no accelerator endpoint is configured.",
	}, h.Delegate.Handle)

	return mcpServer
}
