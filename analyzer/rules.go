package analyzer

import (
	"regexp"
	"strings"

	"github.com/lexandro/batchforge-mcp/language"
)

// Class grades a warning for the security score.
type Class int

const (
	// Advisory costs 5 points.
	Advisory Class = iota
	// UnsafeMemory costs 15 points.
	UnsafeMemory
	// SecurityRisk covers leaked secrets and insecure execution; it costs 25 points.
	SecurityRisk
)

// Penalty returns the score deduction for one warning of this class.
func (c Class) Penalty() int {
	switch c {
	case SecurityRisk:
		return 25
	case UnsafeMemory:
		return 15
	default:
		return 5
	}
}

// Warning is one rule hit.
type Warning struct {
	Class   Class
	Message string
}

// Rule inspects content and reports warnings.
type Rule interface {
	Check(content string) []Warning
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(content string) []Warning

func (f RuleFunc) Check(content string) []Warning { return f(content) }

// RuleSet is an ordered list of rules evaluated together.
type RuleSet []Rule

func (rs RuleSet) Check(content string) []Warning {
	var warnings []Warning
	for _, rule := range rs {
		warnings = append(warnings, rule.Check(content)...)
	}
	return warnings
}

// Score returns 100 minus the penalties of warnings, clamped to [0, 100].
func Score(warnings []Warning) int {
	score := 100
	for _, w := range warnings {
		score -= w.Class.Penalty()
	}
	return max(score, 0)
}

// patternRule fires once when its pattern occurs anywhere in the content.
type patternRule struct {
	pattern *regexp.Regexp
	warning Warning
}

func (r patternRule) Check(content string) []Warning {
	if r.pattern.MatchString(content) {
		return []Warning{r.warning}
	}
	return nil
}

func matches(pattern string, class Class, message string) Rule {
	return patternRule{pattern: regexp.MustCompile(pattern), warning: Warning{Class: class, Message: message}}
}

// without fires when present occurs and absent does not.
func without(present, absent string, class Class, message string) Rule {
	presentRE := regexp.MustCompile(present)
	absentRE := regexp.MustCompile(absent)
	return RuleFunc(func(content string) []Warning {
		if presentRE.MatchString(content) && !absentRE.MatchString(content) {
			return []Warning{{Class: class, Message: message}}
		}
		return nil
	})
}

// SecretRules apply to every language.
var SecretRules = RuleSet{
	matches(`AIza[0-9A-Za-z\-_]{35}`, SecurityRisk, "hard-coded credential: Google API key"),
	matches(`sk-[a-zA-Z0-9]{48}`, SecurityRisk, "hard-coded credential: secret API key"),
	matches(`(?i)password\s*[:=]`, SecurityRisk, "hard-coded credential: password assignment"),
}

var rustRules = RuleSet{
	matches(`\bunsafe\s*\{`, UnsafeMemory, "unsafe block: memory safety is not compiler-checked"),
	matches(`\bstatic\s+mut\b`, Advisory, "static mut: global mutable state"),
	matches(`\.unwrap\(\)`, Advisory, "unwrap() may panic; propagate the error instead"),
	matches(`\bMutex<`, Advisory, "Mutex in use: check for lock contention"),
	RuleFunc(func(content string) []Warning {
		if len(content) > heavyCloneLength && strings.Contains(content, ".clone()") {
			return []Warning{{Class: Advisory, Message: "heavy .clone() use in a large file"}}
		}
		return nil
	}),
	RuleFunc(func(content string) []Warning {
		if strings.Count(content, "to_string()") > 10 {
			return []Warning{{Class: Advisory, Message: "many to_string() calls: consider borrowing"}}
		}
		return nil
	}),
	without(`Vec::new\(\)`, `with_capacity`, Advisory, "Vec::new() without capacity hints"),
}

var pythonRules = RuleSet{
	matches(`\beval\(`, SecurityRisk, "eval() executes arbitrary code"),
	matches(`\bpickle\.loads?\(`, SecurityRisk, "pickle deserialization of untrusted data"),
	RuleFunc(func(content string) []Warning {
		if !strings.Contains(content, "def main():") && !strings.Contains(content, "if __name__") {
			return []Warning{{Class: Advisory, Message: "script without a clear entry point (main)"}}
		}
		return nil
	}),
}

var goRules = RuleSet{
	matches(`interface\{\}`, Advisory, "empty interface: prefer a concrete type"),
}

var typeScriptRules = RuleSet{
	matches(`:\s*any\b`, Advisory, "explicit any type weakens type checking"),
	matches(`@ts-ignore`, Advisory, "@ts-ignore suppresses type errors"),
	matches(`\beval\(`, SecurityRisk, "eval() executes arbitrary code"),
}

var javaScriptRules = RuleSet{
	matches(`\beval\(`, SecurityRisk, "eval() executes arbitrary code"),
}

var juliaRules = RuleSet{
	without(`@threads`, `nthreads`, Advisory, "@threads without checking Threads.nthreads()"),
	matches(`(?m)^\s*global\s`, Advisory, "global variable hurts type stability"),
}

var chapelRules = RuleSet{
	without(`\bforall\b`, `\bwith\b`, Advisory, "forall without an intent clause"),
}

var mojoRules = RuleSet{
	matches(`Python\.import`, Advisory, "Python interop call in Mojo code"),
	without(`fn `, `struct`, Advisory, "fn without struct: consider a struct for performance"),
}

var bendRules = RuleSet{
	without(`fold`, `case`, Advisory, "recursive fold without case pattern matching"),
	RuleFunc(func(content string) []Warning {
		if !strings.Contains(content, "def main:") {
			return []Warning{{Class: Advisory, Message: "missing def main:"}}
		}
		return nil
	}),
	without(`return`, `bend run-cu`, Advisory, "parallelizable code: consider run-cu for GPU"),
}

var languageRules = map[language.Language]RuleSet{
	language.Rust:       rustRules,
	language.Python:     pythonRules,
	language.Go:         goRules,
	language.TypeScript: typeScriptRules,
	language.JavaScript: javaScriptRules,
	language.Julia:      juliaRules,
	language.Chapel:     chapelRules,
	language.Mojo:       mojoRules,
	language.Bend:       bendRules,
}

// rulesFor returns the language's rules followed by the cross-language secret rules.
func rulesFor(lang language.Language) RuleSet {
	set := make(RuleSet, 0, len(languageRules[lang])+len(SecretRules))
	set = append(set, languageRules[lang]...)
	return append(set, SecretRules...)
}
