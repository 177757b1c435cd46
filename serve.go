package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexandro/batchforge-mcp/accelerator"
	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/config"
	"github.com/lexandro/batchforge-mcp/edit"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/index"
	"github.com/lexandro/batchforge-mcp/scanner"
	"github.com/lexandro/batchforge-mcp/server"
	"github.com/lexandro/batchforge-mcp/tools"
	"github.com/lexandro/batchforge-mcp/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the batch tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// components is the wired processing stack shared by serve and run.
type components struct {
	cfg      config.Config
	logger   *slog.Logger
	scanner  *scanner.Scanner
	engine   *engine.Engine
	analyzer *analyzer.Analyzer
	index    *index.FindingsIndex
	editor   *edit.Editor
	runner   *workflow.Runner
	backend  accelerator.Backend
}

// newComponents builds the stack. Every fresh analysis is added to the findings index.
func newComponents(cfg config.Config, logger *slog.Logger) (*components, error) {
	fi, err := index.NewFindingsIndex()
	if err != nil {
		return nil, fmt.Errorf("creating findings index: %w", err)
	}

	analyzerOptions := cfg.AnalyzerOptions()
	analyzerOptions.OnAnalyzed = func(analysis analyzer.FileAnalysis) {
		if err := fi.Add(analysis); err != nil {
			logger.Warn("failed to index analysis", "path", analysis.Path, "error", err)
		}
	}

	eng := engine.New(cfg.EngineOptions(), logger.With("component", "engine"))
	sc := scanner.New(cfg.Parallelism.Threads, logger.With("component", "scanner")).WithExclude(cfg.Exclude)
	an := analyzer.New(analyzer.NewCache(), analyzerOptions, logger.With("component", "analyzer"))

	var backend accelerator.Backend = accelerator.Unavailable{}
	if cfg.Accelerator.Endpoint != "" {
		backend = accelerator.NewMCPBackend(cfg.Accelerator.Endpoint, cfg.Accelerator.Tool, logger.With("component", "accelerator"))
	}

	return &components{
		cfg:      cfg,
		logger:   logger,
		scanner:  sc,
		engine:   eng,
		analyzer: an,
		index:    fi,
		editor:   edit.NewEditor(eng.Executor(), logger.With("component", "edit")),
		runner:   workflow.NewRunner(sc, eng, an, logger.With("component", "workflow")),
		backend:  backend,
	}, nil
}

func (c *components) Close() error {
	return c.index.Close()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()

	logger.Info("starting batchforge-mcp",
		"root", cfg.Root,
		"threads", cfg.Parallelism.Threads,
		"watch", cfg.Watch.Enabled,
		"accelerator", cfg.Accelerator.Endpoint != "",
	)
	startTime := time.Now()

	c, err := newComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled {
		if err := startWatching(ctx, c); err != nil {
			logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		}
	}

	mcpServer := server.Setup(server.Handlers{
		Scan:     &tools.ScanHandler{Scanner: c.scanner, Logger: logger},
		Analyze:  &tools.AnalyzeHandler{Scanner: c.scanner, Engine: c.engine, Analyzer: c.analyzer, Logger: logger},
		Edit:     &tools.EditHandler{Editor: c.editor, Logger: logger},
		Repair:   &tools.RepairHandler{Scanner: c.scanner, Engine: c.engine, Logger: logger},
		Workflow: &tools.WorkflowHandler{Runner: c.runner, Logger: logger},
		Findings: &tools.FindingsHandler{Index: c.index, Logger: logger},
		Status: &tools.StatusHandler{
			Engine:    c.engine,
			Analyzer:  c.analyzer,
			Index:     c.index,
			Config:    cfg,
			StartTime: startTime,
			Logger:    logger,
		},
		Delegate: &tools.DelegateHandler{Backend: c.backend, Logger: logger},
	})

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("MCP server stopped")
	return nil
}

// startWatching warms the cache and index with the root's files, then keeps them
// current in the background until ctx is done.
func startWatching(ctx context.Context, c *components) error {
	live, err := newLiveAnalysis(c)
	if err != nil {
		return err
	}
	fileWatcher, err := live.watch()
	if err != nil {
		return err
	}

	go func() {
		live.warm()
		live.run(ctx, fileWatcher.Changes())
	}()
	go func() {
		fileWatcher.Run(ctx)
		fileWatcher.Close()
	}()
	return nil
}
