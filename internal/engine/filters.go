package engine

import (
	"sort"
	"strings"
)

// Pruned whenever DefaultExcludes is on, even if hidden files are included.
// These are stores and dependency trees that are practically never search
// targets; --no-default-excludes turns the gate off.
var defaultExcludeDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name]
}

// DefaultExcludedDirs returns the directory names pruned by default,
// sorted. External backends use it to mirror the built in walker.
func DefaultExcludedDirs() []string {
	out := make([]string, 0, len(defaultExcludeDirs))
	for name := range defaultExcludeDirs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// isHidden reports whether a single path component is hidden in the
// dot-prefix sense. A bare "." is not hidden so that a root given as
// "." still gets walked.
func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

// fileDepth counts directory levels below the root for a slash-separated
// relative path: "a.txt" is 0, "sub/a.txt" is 1.
func fileDepth(rel string) int {
	return strings.Count(rel, "/")
}
