// Package scanner reads one file at a time and applies the rule set to each
// line.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"unicode/utf8"

	"github.com/had-nu/credsweep/internal/rules"
	"github.com/had-nu/credsweep/internal/types"
)

// previewLen bounds the stored copy of a scanned line.
const previewLen = 50

// maxLineBytes is the longest single line the scanner will read. Anything
// longer is treated as non-text.
const maxLineBytes = 1 << 20

// ErrNotText marks a file whose contents are not valid text in the expected
// encoding. Such files are skipped, not reported as errors.
var ErrNotText = errors.New("file is not valid text")

// FileScanner scans individual files for credential-shaped strings.
type FileScanner struct {
	rules []rules.Rule
}

// New creates a FileScanner over the given rule set. The rules are shared,
// read-only, across all concurrent scans.
func New(rs []rules.Rule) *FileScanner {
	return &FileScanner{rules: rs}
}

// ScanFile reads path line by line and returns one match per rule hit, in
// strictly increasing line-number order. The result is atomic: either the
// full record list for the file (possibly empty), or a classified error and
// no records.
func (s *FileScanner) ScanFile(ctx context.Context, path string) ([]types.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var matches []types.Match
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		raw := sc.Bytes()
		if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNum, ErrNotText)
		}
		line := string(raw)
		for i := range s.rules {
			if secret, ok := s.rules[i].Match(line); ok {
				matches = append(matches, types.Match{
					Secret:      secret,
					File:        path,
					Line:        lineNum,
					LineContent: preview(line),
				})
			}
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotText)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return matches, nil
}

// preview returns at most the first previewLen characters of line.
func preview(line string) string {
	if utf8.RuneCountInString(line) <= previewLen {
		return line
	}
	return string([]rune(line)[:previewLen])
}

// Classify maps a scan error onto the failure taxonomy the coordinator acts
// on.
func Classify(err error) types.FailureKind {
	switch {
	case errors.Is(err, ErrNotText):
		return types.FailureDecode
	case errors.Is(err, fs.ErrPermission):
		return types.FailurePermission
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return types.FailureResource
	}
	return types.FailureUnknown
}
