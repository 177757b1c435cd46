package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/batchforge-mcp/config"
	"github.com/lexandro/batchforge-mcp/server"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var cfgFile string

// rootCmd serves MCP on stdio when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "batchforge-mcp",
	Short:         "Parallel batch file analysis and editing over MCP",
	Long:          `batchforge-mcp scans, analyzes, edits and repairs many files in parallel. It serves its tools over MCP on stdio and can run workflow files from the command line.`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./batchforge.yaml or ~/.config/batchforge/batchforge.yaml)")
	flags.String("root", "", "Project root directory (default: current working directory)")
	flags.StringSlice("exclude", nil, "Glob of paths every scan skips (repeatable)")
	flags.Int("threads", 0, "Worker count (default: one per CPU)")
	flags.String("log-level", "info", "Log level: debug|info|warn|error")
	flags.String("log-file", "", "Log file path (default: stderr)")
	flags.Bool("watch", false, "Re-analyze files as they change below the root")

	rootCmd.AddCommand(serveCmd, runCmd, registerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration for cmd and resolves the root directory.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return cfg, err
	}
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("getting working directory: %w", err)
		}
		cfg.Root = wd
	}
	cfg.Root, err = filepath.Abs(cfg.Root)
	if err != nil {
		return cfg, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	return cfg, nil
}

// setupLogger creates an slog.Logger writing to stderr or a rotated file,
// never to stdout (stdout carries MCP stdio).
// The returned func closes the log file.
func setupLogger(cfg config.Log) (*slog.Logger, func()) {
	var writer io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot create log directory for %s: %v, falling back to stderr\n", cfg.File, err)
		} else {
			rotating := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
			writer = rotating
			cleanup = func() { rotating.Close() }
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	return slog.New(handler), cleanup
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
