package ignore

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is one parsed ignore pattern. Rules are evaluated in order and the
// last matching rule decides, so a later negated rule re-includes a path a
// broader earlier rule excluded.
type Rule struct {
	// Pattern is the glob with negation, anchoring, and the trailing
	// directory slash already stripped.
	Pattern string
	// Negated re-includes instead of excluding.
	Negated bool
	// DirOnly restricts the rule to directories (trailing "/").
	DirOnly bool
	// Anchored pins the pattern to Base (leading "/" or an interior "/").
	// Unanchored rules match the basename at any depth below Base.
	Anchored bool
	// Base is the directory the rule's ignore file lives in, relative to
	// the search root with forward slashes; "" for the root itself.
	Base string
}

// WarnFunc receives diagnostics for ignore lines that cannot be used.
// Malformed lines are skipped, never fatal.
type WarnFunc func(file string, line int, problem string)

// Matcher is an ordered rule list with a pure matching function. It holds
// no filesystem handles; Parse and Match can be exercised entirely in
// memory.
type Matcher struct {
	rules []Rule
}

// NewMatcher returns an empty matcher that ignores nothing.
func NewMatcher() *Matcher { return &Matcher{} }

// Clone copies the matcher so a subdirectory can append its own rules
// without mutating the parent's list.
func (m *Matcher) Clone() *Matcher {
	if m == nil {
		return NewMatcher()
	}
	c := &Matcher{}
	if len(m.rules) > 0 {
		c.rules = make([]Rule, len(m.rules))
		copy(c.rules, m.rules)
	}
	return c
}

// Append adds rules after the existing ones, giving them precedence under
// last-match-wins.
func (m *Matcher) Append(rules []Rule) { m.rules = append(m.rules, rules...) }

// Len reports the number of active rules.
func (m *Matcher) Len() int { return len(m.rules) }

// Parse reads gitignore-syntax content into rules. base is the directory
// the content belongs to, relative to the search root ("" for the root).
// file and warn are used for diagnostics only; warn may be nil.
func Parse(content, base, file string, warn WarnFunc) []Rule {
	base = strings.Trim(filepath.ToSlash(base), "/")
	if base == "." {
		base = ""
	}
	var rules []Rule
	for i, raw := range strings.Split(content, "\n") {
		line := trimTrailingSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		r := Rule{Base: base}
		if strings.HasPrefix(line, "!") {
			r.Negated = true
			line = line[1:]
		} else if strings.HasPrefix(line, `\#`) || strings.HasPrefix(line, `\!`) {
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.DirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		// A separator at the start or middle anchors the pattern to base.
		r.Anchored = strings.Contains(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			if warn != nil {
				warn(file, i+1, "empty pattern")
			}
			continue
		}
		if !doublestar.ValidatePattern(line) {
			if warn != nil {
				warn(file, i+1, fmt.Sprintf("unusable pattern %q", line))
			}
			continue
		}
		r.Pattern = line
		rules = append(rules, r)
	}
	return rules
}

// trimTrailingSpace drops unescaped trailing blanks, which gitignore
// treats as insignificant.
func trimTrailingSpace(line string) string {
	i := len(line)
	for i > 0 && line[i-1] == ' ' {
		backslashes := 0
		for j := i - 2; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			break
		}
		i--
	}
	return line[:i]
}

// Load reads a single ignore file whose rules apply relative to its own
// directory.
func Load(path string) (*Matcher, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	m := NewMatcher()
	m.Append(Parse(string(b), "", filepath.Base(path), nil))
	return m, nil
}

// Match reports whether rel (forward slashes, relative to the search root)
// is ignored, treating it as a file.
func (m *Matcher) Match(rel string) bool { return m.MatchWithType(rel, false) }

// MatchWithType reports whether rel is ignored. A path is ignored when the
// rules exclude it directly or exclude any of its ancestor directories;
// once a directory is excluded nothing beneath it can be re-included,
// matching git behavior.
func (m *Matcher) MatchWithType(rel string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	segs := strings.Split(rel, "/")
	for i := 1; i < len(segs); i++ {
		if m.decide(strings.Join(segs[:i], "/"), true) {
			return true
		}
	}
	return m.decide(rel, isDir)
}

// decide runs the ordered rule list over one exact path; the last match
// wins.
func (m *Matcher) decide(rel string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			ignored = !r.Negated
		}
	}
	return ignored
}

func (r Rule) matches(rel string, isDir bool) bool {
	if r.DirOnly && !isDir {
		return false
	}
	target := rel
	if r.Base != "" {
		if !strings.HasPrefix(rel, r.Base+"/") {
			return false
		}
		target = rel[len(r.Base)+1:]
	}
	if r.Anchored {
		ok, err := doublestar.Match(r.Pattern, target)
		return err == nil && ok
	}
	ok, err := doublestar.Match(r.Pattern, path.Base(target))
	return err == nil && ok
}
