package filetypes

import (
	"fmt"
	"sort"
	"strings"
)

// byName maps a file-type name to the globs it covers. Names follow the
// conventions of other search tools so muscle memory carries over.
var byName = map[string][]string{
	"asm":     {"*.s", "*.S", "*.asm"},
	"c":       {"*.c", "*.h"},
	"cmake":   {"CMakeLists.txt", "*.cmake"},
	"cpp":     {"*.cpp", "*.cc", "*.cxx", "*.hpp", "*.hh", "*.hxx"},
	"cs":      {"*.cs"},
	"css":     {"*.css", "*.scss", "*.sass", "*.less"},
	"docker":  {"Dockerfile", "Dockerfile.*", "*.dockerfile"},
	"elixir":  {"*.ex", "*.exs"},
	"go":      {"*.go"},
	"haskell": {"*.hs", "*.lhs"},
	"html":    {"*.html", "*.htm"},
	"java":    {"*.java"},
	"js":      {"*.js", "*.jsx", "*.mjs", "*.cjs"},
	"json":    {"*.json"},
	"kotlin":  {"*.kt", "*.kts"},
	"lua":     {"*.lua"},
	"make":    {"Makefile", "makefile", "GNUmakefile", "*.mk"},
	"md":      {"*.md", "*.markdown"},
	"perl":    {"*.pl", "*.pm"},
	"php":     {"*.php"},
	"proto":   {"*.proto"},
	"py":      {"*.py", "*.pyi"},
	"rb":      {"*.rb", "*.rake", "Gemfile", "Rakefile"},
	"rs":      {"*.rs"},
	"scala":   {"*.scala", "*.sbt"},
	"sh":      {"*.sh", "*.bash", "*.zsh"},
	"sql":     {"*.sql"},
	"swift":   {"*.swift"},
	"tex":     {"*.tex", "*.bib"},
	"toml":    {"*.toml"},
	"ts":      {"*.ts", "*.tsx"},
	"txt":     {"*.txt"},
	"xml":     {"*.xml", "*.xsd", "*.xsl"},
	"yaml":    {"*.yml", "*.yaml"},
	"zig":     {"*.zig"},
}

// Names returns all known type names, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the globs for one type name.
func Lookup(name string) ([]string, bool) {
	globs, ok := byName[name]
	return globs, ok
}

// Globs resolves a list of type names to the union of their globs.
// Unknown names are an error listing what is available.
func Globs(names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		globs, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown file type %q (available: %s)", n, strings.Join(Names(), ", "))
		}
		out = append(out, globs...)
	}
	return out, nil
}
