// Package workflow runs ordered pipelines of scan, filter, analyze, edit, repair and
// evolve steps over an active file set.
package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lexandro/batchforge-mcp/edit"
	"gopkg.in/yaml.v3"
)

// ErrUnknownAction is returned when a step spec names an unsupported action.
var ErrUnknownAction = errors.New("unknown workflow action")

// DefaultMaxIterations caps an Evolve step that does not set its own limit.
const DefaultMaxIterations = 5

// Step is one pipeline stage. The set of implementations is closed.
type Step interface {
	Action() string
}

// ScanStep replaces the active set with the files below Path.
type ScanStep struct {
	Path      string
	Extension string
}

// FilterStep keeps the active files whose content matches Pattern (or does not, with Invert).
type FilterStep struct {
	Pattern string
	Invert  bool
}

// AnalyzeStep analyzes every active file.
type AnalyzeStep struct{}

// EditStep applies the same operations to every active file.
type EditStep struct {
	Operations []edit.Operation
}

// RepairStep runs the repair operation over every active file.
type RepairStep struct{}

// EvolveStep alternates detection and repair until nothing fixable remains
// or MaxIterations is reached.
type EvolveStep struct {
	MaxIterations int
	DryRun        bool
}

func (ScanStep) Action() string    { return "scan" }
func (FilterStep) Action() string  { return "filter" }
func (AnalyzeStep) Action() string { return "analyze" }
func (EditStep) Action() string    { return "edit" }
func (RepairStep) Action() string  { return "repair" }
func (EvolveStep) Action() string  { return "evolve" }

// StepParams holds the parameters of every action; each action reads only its own.
type StepParams struct {
	Path          string               `json:"path,omitempty" yaml:"path,omitempty" jsonschema:"Root directory (scan)"`
	Extension     string               `json:"extension,omitempty" yaml:"extension,omitempty" jsonschema:"File extension without dot (scan)"`
	Pattern       string               `json:"pattern,omitempty" yaml:"pattern,omitempty" jsonschema:"Regular expression matched against file content (filter)"`
	Invert        bool                 `json:"invert,omitempty" yaml:"invert,omitempty" jsonschema:"Keep files that do not match (filter)"`
	Operations    []edit.OperationSpec `json:"operations,omitempty" yaml:"operations,omitempty" jsonschema:"Edit operations applied to every active file (edit)"`
	MaxIterations int                  `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty" jsonschema:"Iteration cap, default 5 (evolve)"`
	DryRun        *bool                `json:"dryRun,omitempty" yaml:"dryRun,omitempty" jsonschema:"Detect without repairing, default true (evolve)"`
}

// StepSpec is the wire form of a Step.
type StepSpec struct {
	Action string     `json:"action" yaml:"action" jsonschema:"One of scan, filter, analyze, edit, repair, evolve"`
	Params StepParams `json:"params,omitempty" yaml:"params,omitempty" jsonschema:"Action parameters"`
}

// Decode converts the spec to a Step. Action names are case-insensitive.
func (s StepSpec) Decode() (Step, error) {
	p := s.Params
	switch strings.ToLower(strings.TrimSpace(s.Action)) {
	case "scan":
		return ScanStep{Path: p.Path, Extension: p.Extension}, nil
	case "filter":
		return FilterStep{Pattern: p.Pattern, Invert: p.Invert}, nil
	case "analyze":
		return AnalyzeStep{}, nil
	case "edit":
		ops := make([]edit.Operation, 0, len(p.Operations))
		for i, spec := range p.Operations {
			op, err := spec.Decode()
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", i, err)
			}
			ops = append(ops, op)
		}
		return EditStep{Operations: ops}, nil
	case "repair":
		return RepairStep{}, nil
	case "evolve":
		step := EvolveStep{MaxIterations: p.MaxIterations, DryRun: true}
		if step.MaxIterations <= 0 {
			step.MaxIterations = DefaultMaxIterations
		}
		if p.DryRun != nil {
			step.DryRun = *p.DryRun
		}
		return step, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, s.Action)
	}
}

// DecodeSteps converts step specs, failing on the first invalid one.
func DecodeSteps(specs []StepSpec) ([]Step, error) {
	steps := make([]Step, 0, len(specs))
	for i, spec := range specs {
		step, err := spec.Decode()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// File is the on-disk form of a workflow. JSON files parse as YAML.
type File struct {
	Steps    []StepSpec `yaml:"steps"`
	MaxTasks int        `yaml:"maxTasks"`
	DryRun   bool       `yaml:"dryRun"`
}

// LoadFile reads a workflow file and decodes it into a Request.
func LoadFile(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("reading workflow %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes workflow YAML or JSON.
func Parse(data []byte) (Request, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Request{}, fmt.Errorf("parsing workflow: %w", err)
	}
	steps, err := DecodeSteps(file.Steps)
	if err != nil {
		return Request{}, err
	}
	return Request{Steps: steps, MaxTasks: file.MaxTasks, DryRun: file.DryRun}, nil
}
