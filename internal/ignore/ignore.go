// Package ignore decides which filesystem entries are excluded from a scan.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// builtin exclusions are appended to every rule set regardless of what the
// external ignore file contains: the version-control directory, dotfiles,
// backup files, and this tool's own report artifacts.
var builtin = []string{
	".git/",
	".*",
	"*.bak",
	"*~",
	"credsweep-report.*",
}

type rule struct {
	raw    string
	hasSep bool
	// compiled glob, nil when raw does not compile; such rules still
	// participate via prefix containment and the substring fallback
	pattern glob.Glob
	prefix  string
}

// RuleSet holds exclusion rules and decides whether a path is excluded.
// Immutable once built and safe for concurrent use.
type RuleSet struct {
	rules []rule
}

// New builds a RuleSet from the given pattern lines plus the built-in
// exclusions. Order is irrelevant: exclusion is a disjunction over rules.
func New(patterns []string) *RuleSet {
	rs := &RuleSet{rules: make([]rule, 0, len(patterns)+len(builtin))}
	for _, p := range patterns {
		rs.rules = append(rs.rules, compile(p))
	}
	for _, p := range builtin {
		rs.rules = append(rs.rules, compile(p))
	}
	return rs
}

// Load reads ignore patterns from the file at ignorePath, one per line.
// Blank lines and lines starting with # are skipped. A missing file is not
// an error: the scan proceeds with the built-in exclusions only.
func Load(ignorePath string) (*RuleSet, error) {
	f, err := os.Open(ignorePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("open ignore file %s: %w", ignorePath, err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", ignorePath, err)
	}
	return New(patterns), nil
}

func compile(raw string) rule {
	r := rule{
		raw:    raw,
		hasSep: strings.Contains(raw, "/"),
		prefix: strings.TrimSuffix(raw, "/"),
	}
	var err error
	if r.hasSep {
		r.pattern, err = glob.Compile(raw, '/')
	} else {
		r.pattern, err = glob.Compile(raw)
	}
	if err != nil {
		r.pattern = nil
	}
	return r
}

// Excluded reports whether relpath matches any rule. relpath is
// slash-separated and relative to the scan root; it is checked both for
// files and directories so callers can prune whole excluded subtrees.
func (rs *RuleSet) Excluded(relpath string) bool {
	name := path.Base(relpath)
	for _, r := range rs.rules {
		if r.matches(relpath, name) {
			return true
		}
	}
	return false
}

func (r rule) matches(relpath, name string) bool {
	if r.hasSep {
		if r.pattern != nil && r.pattern.Match(relpath) {
			return true
		}
		// directory-prefix containment: "secret_folder/" excludes the
		// directory itself and everything beneath it
		return relpath == r.prefix || strings.HasPrefix(relpath, r.prefix+"/")
	}
	if r.pattern != nil && r.pattern.Match(name) {
		return true
	}
	// Literal substring fallback on the final component. Intentionally
	// permissive: a rule "log" also excludes "login.py". Kept for
	// compatibility with ignore files this tool has historically consumed.
	return strings.Contains(name, r.raw)
}

// Patterns returns the rule texts in the set, built-ins included.
func (rs *RuleSet) Patterns() []string {
	out := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.raw
	}
	return out
}
