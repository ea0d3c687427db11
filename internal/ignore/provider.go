package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// ignoreFileNames are the per-directory ignore files, lowest priority
// first so later files can override earlier ones with negations.
var ignoreFileNames = []string{".gitignore", ".ignore", ".grepperignore"}

// Provider builds one Matcher per traversed directory. A child directory
// inherits its parent's rules and appends its own, so deeper rules take
// precedence under last-match-wins. Not safe for concurrent use; the
// traversal that owns it is single-threaded.
type Provider struct {
	root  string
	warn  WarnFunc
	cache map[string]*Matcher
}

// NewProvider creates a provider rooted at root. When root sits inside a
// git repository, the repository's info/exclude file and the user's global
// excludes file seed every matcher at lowest priority. warn may be nil.
func NewProvider(root string, warn WarnFunc) *Provider {
	p := &Provider{root: root, warn: warn, cache: make(map[string]*Matcher)}

	base := NewMatcher()
	for _, src := range repoSources(root) {
		base.Append(Parse(src.content, "", src.name, warn))
	}
	p.cache[""] = p.withLocalFiles(base.Clone(), "")
	return p
}

// MatcherFor returns the matcher for relDir ("" or "." for the root),
// building and caching ancestors as needed.
func (p *Provider) MatcherFor(relDir string) *Matcher {
	key := normalizeDirKey(relDir)
	if m, ok := p.cache[key]; ok {
		return m
	}
	parent := p.MatcherFor(parentDirKey(key))
	m := p.withLocalFiles(parent.Clone(), key)
	p.cache[key] = m
	return m
}

// withLocalFiles appends the rules of any ignore files present in relDir.
func (p *Provider) withLocalFiles(m *Matcher, relDir string) *Matcher {
	dir := p.root
	if relDir != "" {
		dir = filepath.Join(p.root, filepath.FromSlash(relDir))
	}
	for _, name := range ignoreFileNames {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		m.Append(Parse(string(b), relDir, path.Join(relDir, name), p.warn))
	}
	return m
}

func normalizeDirKey(relDir string) string {
	key := strings.Trim(filepath.ToSlash(relDir), "/")
	if key == "." {
		return ""
	}
	return key
}

func parentDirKey(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return ""
}

type ignoreSource struct {
	name    string
	content string
}

// repoSources finds repository-level ignore content for root: the git
// dir's info/exclude and the core.excludesFile from git config. Returns
// nothing when root is not inside a git repository.
func repoSources(root string) []ignoreSource {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}

	var sources []ignoreSource

	if cfg, err := repo.ConfigScoped(gitcfg.GlobalScope); err == nil {
		if excludes := cfg.Raw.Section("core").Option("excludesfile"); excludes != "" {
			if b, err := os.ReadFile(expandHome(excludes)); err == nil {
				sources = append(sources, ignoreSource{name: excludes, content: string(b)})
			}
		}
	}

	if st, ok := repo.Storer.(*filesystem.Storage); ok {
		p := filepath.Join(st.Filesystem().Root(), "info", "exclude")
		if b, err := os.ReadFile(p); err == nil {
			sources = append(sources, ignoreSource{name: "info/exclude", content: string(b)})
		}
	}

	return sources
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
