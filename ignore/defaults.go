package ignore

// DefaultIgnorePatterns are skipped whenever ignore rules are respected.
// Plain names match any path component; globs match the base name.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies
	"node_modules",
	"vendor",
	"bower_components",
	"site-packages",

	// Build output
	"dist",
	"build",
	"target",
	"obj",
	"zig-cache",

	// Editor leftovers
	"*.swp",
	"*.swo",
	"*~",

	// Python / Julia caches
	"__pycache__",
	"*.pyc",
	"*.pyo",
	"*.ji",

	// Compiled artefacts
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.o",
	"*.a",
	"*.rlib",
	"*.class",
	"*.jar",
	"*.wasm",

	// Archives
	"*.zip",
	"*.tar",
	"*.tar.gz",
	"*.tgz",
	"*.7z",

	// Media
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.pdf",

	// Generated bundles
	"*.min.js",
	"*.map",

	// Lock files
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"poetry.lock",
	"go.sum",

	// Databases and logs
	"*.log",
	"*.sqlite",
	"*.db",
}
