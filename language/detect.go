package language

import (
	"path/filepath"
	"strings"
)

// Language is the closed set of source languages the analyzer knows how to read.
// Unknown is the generic fallback; it is analyzed with generic patterns.
type Language int

const (
	Unknown Language = iota
	Rust
	Go
	Python
	TypeScript
	JavaScript
	Mojo
	Bend
	Chapel
	Julia
)

var languageNames = map[Language]string{
	Unknown:    "Unknown",
	Rust:       "Rust",
	Go:         "Go",
	Python:     "Python",
	TypeScript: "TypeScript",
	JavaScript: "JavaScript",
	Mojo:       "Mojo",
	Bend:       "Bend",
	Chapel:     "Chapel",
	Julia:      "Julia",
}

// String returns the display name of the language.
func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText encodes the language by name.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ExtensionToLanguage maps file extensions (without dot, lowercase) to languages.
var ExtensionToLanguage = map[string]Language{
	"rs": Rust,
	"go": Go,
	"py": Python, "pyi": Python, "pyw": Python,
	"ts": TypeScript, "tsx": TypeScript, "mts": TypeScript, "cts": TypeScript,
	"js": JavaScript, "jsx": JavaScript, "mjs": JavaScript, "cjs": JavaScript,
	"mojo": Mojo, "🔥": Mojo,
	"bend": Bend,
	"hvm":  Bend,
	"chpl": Chapel,
	"jl": Julia,
}

// Detect returns the language for a file path based on its extension.
// Unrecognized extensions yield Unknown.
func Detect(filePath string) Language {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if lang, ok := ExtensionToLanguage[ext]; ok {
		return lang
	}
	return Unknown
}

// CommentMarker returns the line comment marker of the language.
func (l Language) CommentMarker() string {
	switch l {
	case Python, Mojo, Bend, Julia:
		return "#"
	default:
		return "//"
	}
}

// ImportPrefixes returns the line prefixes that introduce an import-equivalent
// statement, e.g. "use " for Rust. Lines are matched after trimming leading space.
func (l Language) ImportPrefixes() []string {
	switch l {
	case Rust:
		return []string{"use ", "extern crate "}
	case Go:
		return []string{"import "}
	case Python, Mojo, Bend:
		return []string{"import ", "from "}
	case TypeScript, JavaScript:
		return []string{"import "}
	case Chapel:
		return []string{"use ", "require "}
	case Julia:
		return []string{"using ", "import "}
	default:
		return []string{"use ", "import "}
	}
}

// IsImportLine reports whether the line is an import-equivalent statement.
func (l Language) IsImportLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, prefix := range l.ImportPrefixes() {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
