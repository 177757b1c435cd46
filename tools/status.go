package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/config"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the batchforge_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Engine    *engine.Engine
	Analyzer  *analyzer.Analyzer
	Index     *index.FindingsIndex
	Config    config.Config
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a batchforge_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	cache := h.Analyzer.Cache()
	entries := cache.Len()
	hits, misses := cache.HitRate()
	docCount := h.Index.DocCount()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("batchforge_status",
		"cacheEntries", entries,
		"indexed", docCount,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== batchforge-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.Config.Root))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Workers: %d (chunk size %d)\n", h.Engine.Executor().Workers(), h.Engine.Executor().ChunkSize()))
	builder.WriteString(fmt.Sprintf("Cached analyses: %d\n", entries))
	builder.WriteString(fmt.Sprintf("Cache lookups: %d hits, %d misses (%s hit rate)\n", hits, misses, hitRate(hits, misses)))
	builder.WriteString(fmt.Sprintf("Indexed analyses: %d\n", docCount))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	builder.WriteString("\nConfiguration:\n")
	builder.WriteString(fmt.Sprintf("  %-22s %s\n", "large file threshold", formatFileSize(h.Config.Advanced.LargeFileThreshold)))
	builder.WriteString(fmt.Sprintf("  %-22s %s\n", "read buffer", formatFileSize(int64(h.Config.Advanced.ReadBufferSize))))
	builder.WriteString(fmt.Sprintf("  %-22s %dms\n", "file timeout", h.Config.Advanced.FileTimeoutMS))
	builder.WriteString(fmt.Sprintf("  %-22s %t\n", "watch", h.Config.Watch.Enabled))
	if len(h.Config.Exclude) > 0 {
		builder.WriteString(fmt.Sprintf("  %-22s %s\n", "exclude", strings.Join(h.Config.Exclude, ", ")))
	}
	accel := "disabled"
	if h.Config.Accelerator.Endpoint != "" {
		accel = h.Config.Accelerator.Endpoint
	}
	builder.WriteString(fmt.Sprintf("  %-22s %s\n", "accelerator", accel))

	return textResult(builder.String()), nil, nil
}

func hitRate(hits, misses int64) string {
	if hits+misses == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", float64(hits)*100/float64(hits+misses))
}
