package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexandro/batchforge-mcp/analyzer"
	"github.com/lexandro/batchforge-mcp/edit"
	"github.com/lexandro/batchforge-mcp/engine"
	"github.com/lexandro/batchforge-mcp/fileio"
	"github.com/lexandro/batchforge-mcp/scanner"
)

// ErrMalformedPattern is returned when a filter pattern does not compile.
var ErrMalformedPattern = errors.New("malformed pattern")

// Synthetic result paths for pipeline events.
const (
	ScanEntry      = "PIPELINE_SCAN"
	FilterEntry    = "PIPELINE_FILTER"
	EvolveComplete = "EVOLVE_COMPLETE"
	evolveIterFmt  = "EVOLVE_ITER_%d"
)

const (
	lowSecurityScore = 80
	heavyCloneLength = 5000
)

// StepError reports the step that aborted a workflow.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Request is one workflow execution.
type Request struct {
	Steps []Step
	// MaxTasks overrides the engine's worker count for this run when positive.
	MaxTasks int
	// DryRun applies to Edit and Repair steps. Evolve steps carry their own flag
	// and never write when this is set.
	DryRun bool
}

// Runner executes workflows.
type Runner struct {
	scanner  *scanner.Scanner
	engine   *engine.Engine
	analyzer *analyzer.Analyzer
	logger   *slog.Logger
}

// NewRunner creates a runner over the shared components.
func NewRunner(sc *scanner.Scanner, eng *engine.Engine, an *analyzer.Analyzer, logger *slog.Logger) *Runner {
	return &Runner{scanner: sc, engine: eng, analyzer: an, logger: logger}
}

// run is the state threaded through the steps of one execution.
type run struct {
	engine  *engine.Engine
	editor  *edit.Editor
	dryRun  bool
	active  []string
	log     []engine.Result
	stats   engine.Stats
	logger  *slog.Logger
	reader  fileio.Reader
	started time.Time
}

func (s *run) note(path, finding string) {
	s.log = append(s.log, engine.NewResult(path, engine.Success, finding))
}

func (s *run) record(results []engine.Result, stats engine.Stats) {
	s.log = append(s.log, results...)
	s.stats.Merge(stats)
}

// Run executes the steps in order. A step failure aborts the workflow with a *StepError
// and later steps do not run. The stats aggregate every per-file batch in the log.
func (r *Runner) Run(ctx context.Context, req Request) ([]engine.Result, engine.Stats, error) {
	id := uuid.NewString()
	logger := r.logger.With("run", id)

	eng := r.engine
	if req.MaxTasks > 0 {
		eng = eng.WithWorkers(req.MaxTasks)
	}
	state := &run{
		engine:  eng,
		editor:  edit.NewEditor(eng.Executor(), logger),
		dryRun:  req.DryRun,
		active:  []string{},
		log:     []engine.Result{},
		logger:  logger,
		reader:  eng.Reader(),
		started: time.Now(),
	}

	logger.Info("workflow started", "steps", len(req.Steps), "workers", eng.Executor().Workers(), "dryRun", req.DryRun)
	for i, step := range req.Steps {
		if err := ctx.Err(); err != nil {
			return state.log, state.finish(), &StepError{Index: i, Action: step.Action(), Err: err}
		}
		if err := r.runStep(state, step); err != nil {
			logger.Warn("workflow aborted", "step", i, "action", step.Action(), "error", err)
			return state.log, state.finish(), &StepError{Index: i, Action: step.Action(), Err: err}
		}
	}

	stats := state.finish()
	logger.Info("workflow complete", "entries", len(state.log), "files", stats.TotalFiles, "duration", stats.Duration)
	return state.log, stats, nil
}

func (s *run) finish() engine.Stats {
	s.stats.Duration = time.Since(s.started)
	return s.stats
}

func (r *Runner) runStep(state *run, step Step) error {
	switch s := step.(type) {
	case ScanStep:
		return r.scan(state, s)
	case FilterStep:
		return filter(state, s)
	case AnalyzeStep:
		results, stats, err := state.engine.Process(state.active, r.analyzeOperation())
		if err != nil {
			return err
		}
		state.record(results, stats)
	case EditStep:
		changes := make([]edit.FileChange, len(state.active))
		for i, path := range state.active {
			changes[i] = edit.FileChange{Path: path, Operations: s.Operations}
		}
		state.record(state.editor.Apply(changes, state.dryRun))
	case RepairStep:
		results, stats, err := state.engine.Process(state.active, edit.Repairer{DryRun: state.dryRun}.Operation())
		if err != nil {
			return err
		}
		state.record(results, stats)
	case EvolveStep:
		return evolve(state, s)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, step)
	}
	return nil
}

func (r *Runner) scan(state *run, step ScanStep) error {
	files, err := r.scanner.Scan(scanner.Options{
		Root:               step.Path,
		Extension:          step.Extension,
		RespectIgnoreRules: true,
	})
	if err != nil {
		return err
	}
	state.active = files
	state.note(ScanEntry, fmt.Sprintf("Scanned %d files", len(files)))
	return nil
}

func filter(state *run, step FilterStep) error {
	re, err := regexp.Compile(step.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPattern, err)
	}

	keep := engine.Map(state.engine.Executor(), state.active, func(path string) bool {
		content, err := state.reader.ReadText(path)
		if err != nil {
			return false
		}
		return re.MatchString(content) != step.Invert
	})

	kept := make([]string, 0, len(state.active))
	for i, path := range state.active {
		if keep[i] {
			kept = append(kept, path)
		}
	}
	rejected := len(state.active) - len(kept)
	state.active = kept
	state.note(FilterEntry, fmt.Sprintf("kept: %d, rejected: %d", len(kept), rejected))
	return nil
}

func (r *Runner) analyzeOperation() engine.Operation {
	return func(path, content string) ([]string, engine.Status, error) {
		analysis, err := r.analyzer.Analyze(path)
		if err != nil {
			return nil, engine.Error, err
		}
		findings := []string{fmt.Sprintf("Complexity: %.1f", analysis.Complexity)}
		if analysis.SecurityScore < lowSecurityScore {
			findings = append(findings, fmt.Sprintf("Low Security Score: %d", analysis.SecurityScore))
		}
		if strings.Contains(content, "TODO") {
			findings = append(findings, "Has TODO")
		}
		return findings, engine.Success, nil
	}
}

// DetectFixable returns the fixable-issue markers for content.
func DetectFixable(content string) []string {
	var markers []string
	if strings.Contains(content, ".clone()") && len(content) > heavyCloneLength {
		markers = append(markers, "FIXABLE:heavy_clone")
	}
	if strings.Contains(content, "unwrap()") {
		markers = append(markers, "FIXABLE:unwrap_usage")
	}
	if strings.Contains(content, "Vec::new()") && !strings.Contains(content, "with_capacity") {
		markers = append(markers, "FIXABLE:vec_no_capacity")
	}
	return markers
}

func detectOperation(path, content string) ([]string, engine.Status, error) {
	return DetectFixable(content), engine.Success, nil
}

// evolve runs detection, then repair, until a pass finds nothing or the cap is hit.
// The repair is the generic cleanup and does not target the detected markers.
func evolve(state *run, step EvolveStep) error {
	maxIterations := step.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	dryRun := step.DryRun || state.dryRun

	for iteration := range maxIterations {
		detected, _, err := state.engine.Process(state.active, detectOperation)
		if err != nil {
			return err
		}
		issues := 0
		for _, result := range detected {
			for _, finding := range result.Findings {
				if strings.HasPrefix(finding, "FIXABLE:") {
					issues++
				}
			}
		}

		if issues == 0 {
			state.note(EvolveComplete, fmt.Sprintf("No more issues after %d iterations", iteration))
			state.logger.Info("evolve converged", "iterations", iteration)
			return nil
		}

		fixes := 0
		if !dryRun {
			results, stats, err := state.engine.Process(state.active, edit.Repairer{}.Operation())
			if err != nil {
				return err
			}
			state.record(results, stats)
			fixes = stats.Successful
		}

		state.note(fmt.Sprintf(evolveIterFmt, iteration+1),
			fmt.Sprintf("Issues: %d, Fixes: %d (dry_run: %t)", issues, fixes, dryRun))
		state.logger.Debug("evolve iteration", "iteration", iteration+1, "issues", issues, "fixes", fixes)
	}
	return nil
}
