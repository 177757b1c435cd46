package main

import (
	"fmt"

	"github.com/lexandro/batchforge-mcp/register"
	"github.com/lexandro/batchforge-mcp/server"
	"github.com/lexandro/batchforge-mcp/tools"
	"github.com/lexandro/batchforge-mcp/workflow"
	"github.com/spf13/cobra"
)

var (
	runDryRun   bool
	runMaxTasks int
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Run a workflow file and print its log",
	Long: `Run a YAML or JSON workflow file:

  steps:
    - action: scan
      params: {path: ./src, extension: rs}
    - action: filter
      params: {pattern: "unwrap\\(\\)"}
    - action: evolve
      params: {maxIterations: 3}

Flags override the file's dryRun and maxTasks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, closeLog := setupLogger(cfg.Log)
		defer closeLog()

		req, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dry-run") {
			req.DryRun = runDryRun
		}
		if cmd.Flags().Changed("max-tasks") {
			req.MaxTasks = runMaxTasks
		}

		c, err := newComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		log, stats, err := c.runner.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), tools.FormatBatch("Workflow", log, stats))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register project|user [directory] [-- server args...]",
	Short: "Register this server in an MCP client configuration",
	Long: `Register this binary as an MCP server.

  register project [directory]   writes <directory>/.mcp.json (default: .)
  register user                  writes ~/.claude.json
  register project . -- serve --watch   forwards args to the server`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		positional, serverArgs := args, []string(nil)
		if dash := cmd.ArgsLenAtDash(); dash >= 0 {
			positional, serverArgs = args[:dash], args[dash:]
		}
		if len(positional) == 0 {
			return fmt.Errorf("%w: missing", register.ErrUnknownScope)
		}

		options := register.Options{
			ServerName: register.DeriveServerName(server.Name),
			Scope:      positional[0],
			ServerArgs: serverArgs,
		}
		if len(positional) > 1 {
			options.Directory = positional[1]
		}

		configPath, err := register.Register(options)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", options.ServerName, configPath)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report edits and repairs without writing")
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "Worker count for this run")
}
