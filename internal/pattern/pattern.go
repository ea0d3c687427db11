package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags how a Pattern matches.
type Kind int

const (
	// Literal matches by substring.
	Literal Kind = iota
	// Regex matches by compiled regular expression.
	Regex
)

// Pattern is a compiled matching policy: a literal needle or a regular
// expression, with case sensitivity and whole-word matching fixed at
// compile time. The zero value is not usable; build one with Compile.
type Pattern struct {
	kind   Kind
	source string

	// literal fast path (case-sensitive, non-whole-word only)
	needle string

	// compiled form for everything else
	re *regexp.Regexp
}

// Compile builds a Pattern. With regex=false the text is a plain
// substring; whole-word and case-insensitive literals are compiled to an
// escaped regular expression so match spans stay exact. Empty text returns
// (nil, nil): callers treat a nil Pattern as "not configured".
func Compile(text string, regex, caseSensitive, wholeWord bool) (*Pattern, error) {
	if text == "" {
		return nil, nil
	}
	p := &Pattern{source: text}

	if !regex && caseSensitive && !wholeWord {
		p.kind = Literal
		p.needle = text
		return p, nil
	}

	expr := text
	if !regex {
		p.kind = Literal
		expr = regexp.QuoteMeta(text)
	} else {
		p.kind = Regex
	}
	if wholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !caseSensitive {
		expr = `(?i)` + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", text, err)
	}
	p.re = re
	return p, nil
}

// Kind reports whether the pattern is a literal or a regex.
func (p *Pattern) Kind() Kind { return p.kind }

// String returns the source text the pattern was compiled from.
func (p *Pattern) String() string { return p.source }

// Match reports whether s contains the pattern.
func (p *Pattern) Match(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	return strings.Contains(s, p.needle)
}

// Find returns the byte span of the first occurrence in s.
// ok is false when there is no match.
func (p *Pattern) Find(s string) (start, end int, ok bool) {
	if p.re != nil {
		loc := p.re.FindStringIndex(s)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	}
	i := strings.Index(s, p.needle)
	if i < 0 {
		return 0, 0, false
	}
	return i, i + len(p.needle), true
}
