package edit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownOperation is returned when an operation spec names an unsupported type.
var ErrUnknownOperation = errors.New("unknown edit operation")

// Operation transforms one file's in-memory content.
type Operation interface {
	// Apply returns the new content. Callers compare it with the input to decide
	// whether the operation applied.
	Apply(content string) string
	String() string
}

// Replace substitutes every literal occurrence of Target. An empty target is a no-op.
type Replace struct {
	Target      string
	Replacement string
}

func (r Replace) Apply(content string) string {
	if r.Target == "" {
		return content
	}
	return strings.ReplaceAll(content, r.Target, r.Replacement)
}

func (r Replace) String() string { return fmt.Sprintf("replace %q", r.Target) }

// RegexReplace substitutes every match of a regular expression. Replacement may
// reference groups as $1 or ${name}. A malformed pattern never changes content.
type RegexReplace struct {
	Pattern     string
	Replacement string
	re          *regexp.Regexp
	err         error
}

// NewRegexReplace compiles pattern once for reuse across files.
func NewRegexReplace(pattern, replacement string) RegexReplace {
	re, err := regexp.Compile(pattern)
	return RegexReplace{Pattern: pattern, Replacement: replacement, re: re, err: err}
}

// Err reports the compile error of a malformed pattern.
func (r RegexReplace) Err() error {
	if r.re == nil && r.err == nil {
		_, err := regexp.Compile(r.Pattern)
		return err
	}
	return r.err
}

func (r RegexReplace) Apply(content string) string {
	re := r.re
	if re == nil {
		if r.err != nil {
			return content
		}
		compiled, err := regexp.Compile(r.Pattern)
		if err != nil {
			return content
		}
		re = compiled
	}
	return re.ReplaceAllString(content, r.Replacement)
}

func (r RegexReplace) String() string { return fmt.Sprintf("regex_replace /%s/", r.Pattern) }

// Append concatenates Content at the end of the file.
type Append struct {
	Content string
}

func (a Append) Apply(content string) string { return content + a.Content }

func (a Append) String() string { return "append" }

// OperationSpec is the wire form of an Operation.
type OperationSpec struct {
	Type        string `json:"type" yaml:"type" jsonschema:"Operation type: replace, regex_replace or append"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty" jsonschema:"Literal text to replace (replace)"`
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty" jsonschema:"Replacement text (replace, regex_replace)"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty" jsonschema:"Regular expression (regex_replace)"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty" jsonschema:"Text appended at the end of the file (append)"`
}

// Decode converts the spec to an Operation. Type names are case-insensitive.
func (s OperationSpec) Decode() (Operation, error) {
	switch strings.ToLower(s.Type) {
	case "replace":
		return Replace{Target: s.Target, Replacement: s.Replacement}, nil
	case "regex_replace", "regexreplace", "regex":
		return NewRegexReplace(s.Pattern, s.Replacement), nil
	case "append":
		return Append{Content: s.Content}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, s.Type)
	}
}

// FileChange is the ordered list of operations for one file.
type FileChange struct {
	Path       string
	Operations []Operation
}

// FileChangeSpec is the wire form of a FileChange.
type FileChangeSpec struct {
	Path       string          `json:"path" yaml:"path" jsonschema:"File to edit; created if missing"`
	Operations []OperationSpec `json:"operations" yaml:"operations" jsonschema:"Operations applied in order"`
}

// Decode converts the spec to a FileChange.
func (s FileChangeSpec) Decode() (FileChange, error) {
	change := FileChange{Path: s.Path, Operations: make([]Operation, 0, len(s.Operations))}
	for i, opSpec := range s.Operations {
		op, err := opSpec.Decode()
		if err != nil {
			return FileChange{}, fmt.Errorf("%s: operation %d: %w", s.Path, i, err)
		}
		change.Operations = append(change.Operations, op)
	}
	return change, nil
}

// DecodeChanges converts a list of change specs, failing on the first invalid one.
func DecodeChanges(specs []FileChangeSpec) ([]FileChange, error) {
	changes := make([]FileChange, 0, len(specs))
	for _, spec := range specs {
		change, err := spec.Decode()
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}
