// Package walker enumerates the regular files under a root directory that
// survive ignore filtering.
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/had-nu/credsweep/internal/ignore"
)

// Candidate is a regular file selected for scanning.
type Candidate struct {
	// Path is the file's path as joined with the walk root, suitable for
	// opening and for reporting.
	Path string
	// Rel is the slash-separated path relative to the root, the form the
	// ignore rules are evaluated against.
	Rel string
}

// Walk visits every entry under root and returns the regular files the rule
// set does not exclude. Excluded directories are pruned without descending,
// so nothing beneath them is ever visited. Symlinks and special files are
// never yielded. The order of the returned slice is unspecified.
func Walk(root string, rules *ignore.RuleSet) ([]Candidate, error) {
	var files []Candidate
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// unreadable entries are skipped, not fatal
			return nil
		}
		if p == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rules.Excluded(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if rules.Excluded(rel) {
			return nil
		}
		files = append(files, Candidate{Path: p, Rel: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
