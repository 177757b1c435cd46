package analyzer

import (
	"regexp"
	"strings"

	"github.com/lexandro/batchforge-mcp/language"
)

// syntaxProfile holds the declaration patterns used to count functions and types.
type syntaxProfile struct {
	function *regexp.Regexp
	types    *regexp.Regexp
}

var genericProfile = syntaxProfile{
	function: regexp.MustCompile(`\bfn\s+\w+`),
	types:    regexp.MustCompile(`\bstruct\s+\w+`),
}

var profiles = map[language.Language]syntaxProfile{
	language.Rust: {
		function: regexp.MustCompile(`\bfn\s+\w+`),
		types:    regexp.MustCompile(`\b(?:struct|enum|trait)\s+\w+`),
	},
	language.Go: {
		function: regexp.MustCompile(`\bfunc\s+(?:\([^)]*\)\s*)?\w+`),
		types:    regexp.MustCompile(`\btype\s+\w+`),
	},
	language.Python: {
		function: regexp.MustCompile(`\bdef\s+\w+`),
		types:    regexp.MustCompile(`\bclass\s+\w+`),
	},
	language.TypeScript: {
		function: regexp.MustCompile(`\bfunction\s*\*?\s*\w+`),
		types:    regexp.MustCompile(`\b(?:class|interface)\s+\w+`),
	},
	language.JavaScript: {
		function: regexp.MustCompile(`\bfunction\s*\*?\s*\w+`),
		types:    regexp.MustCompile(`\bclass\s+\w+`),
	},
	language.Mojo: {
		function: regexp.MustCompile(`\b(?:fn|def)\s+\w+`),
		types:    regexp.MustCompile(`\b(?:struct|trait|class)\s+\w+`),
	},
	language.Bend: {
		function: regexp.MustCompile(`\bdef\s+\w+`),
		types:    regexp.MustCompile(`\b(?:type|object)\s+\w+`),
	},
	language.Chapel: {
		function: regexp.MustCompile(`\bproc\s+\w+`),
		types:    regexp.MustCompile(`\b(?:record|class)\s+\w+`),
	},
	language.Julia: {
		function: regexp.MustCompile(`\bfunction\s+\w+`),
		types:    regexp.MustCompile(`\bstruct\s+\w+`),
	},
}

func profileFor(lang language.Language) syntaxProfile {
	if profile, ok := profiles[lang]; ok {
		return profile
	}
	return genericProfile
}

// complexityWeights score control-flow keywords; declarations add 0.5 each on top.
var complexityWeights = []struct {
	pattern *regexp.Regexp
	weight  float64
}{
	{regexp.MustCompile(`\bif\b`), 1.5},
	{regexp.MustCompile(`\belse\b`), 0.5},
	{regexp.MustCompile(`\b(?:match|switch)\b`), 2.0},
	{regexp.MustCompile(`\bfor\b`), 1.5},
	{regexp.MustCompile(`\bwhile\b`), 1.5},
}

const (
	baseComplexity   = 1.0
	functionWeight   = 0.5
	heavyCloneLength = 5000
)

// AnalyzeContent computes the analysis of already-loaded content. path selects the
// language; nothing is read from disk.
func AnalyzeContent(path string, content string) FileAnalysis {
	lang := language.Detect(path)
	profile := profileFor(lang)
	marker := lang.CommentMarker()

	analysis := FileAnalysis{Path: path, Language: lang}

	rest := content
	for len(rest) > 0 {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		analysis.TotalLines++
		switch {
		case strings.TrimSpace(line) == "":
			analysis.BlankLines++
		case strings.Contains(line, marker):
			analysis.CommentLines++
		}
		if lang.IsImportLine(line) {
			analysis.Imports++
		}
	}
	analysis.CodeLines = analysis.TotalLines - analysis.BlankLines - analysis.CommentLines

	analysis.Functions = len(profile.function.FindAllStringIndex(content, -1))
	analysis.Structs = len(profile.types.FindAllStringIndex(content, -1))

	analysis.Complexity = baseComplexity + functionWeight*float64(analysis.Functions)
	for _, cw := range complexityWeights {
		analysis.Complexity += cw.weight * float64(len(cw.pattern.FindAllStringIndex(content, -1)))
	}

	warnings := rulesFor(lang).Check(content)
	analysis.SecurityScore = Score(warnings)
	analysis.Warnings = make([]string, 0, len(warnings))
	for _, w := range warnings {
		analysis.Warnings = append(analysis.Warnings, w.Message)
		if w.Class == SecurityRisk {
			analysis.SecurityRisks++
		}
	}
	return analysis
}
