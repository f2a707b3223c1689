package types

// Match is one detected occurrence of a scan rule on one line of one file.
// Immutable once produced; several matches may reference the same file and
// even the same line, one per rule that matched.
type Match struct {
	Secret      string `json:"secret"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	LineContent string `json:"line_content"`
}

// FailureKind classifies why a file could not be scanned.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	// FailureDecode means the file contents are not valid text.
	FailureDecode
	// FailurePermission means the file could not be opened for reading.
	FailurePermission
	// FailureResource means an OS-level limit (open file descriptors) was
	// hit while opening or reading the file.
	FailureResource
)

func (k FailureKind) String() string {
	switch k {
	case FailureDecode:
		return "decode failure"
	case FailurePermission:
		return "permission denied"
	case FailureResource:
		return "resource exhaustion"
	default:
		return "unknown failure"
	}
}

// SkippedFile records a file that contributed zero matches because its scan
// failed. Keeping the kind and cause preserves diagnostics the caller may
// want to report.
type SkippedFile struct {
	Path string
	Kind FailureKind
	Err  error
}

func (s SkippedFile) Error() string {
	return s.Path + ": " + s.Err.Error()
}

// Result is the aggregate outcome of a tree scan. Every candidate file
// contributes either to Matches (possibly zero records) or to Skipped,
// never both.
type Result struct {
	Matches []Match
	Skipped []SkippedFile
}

// HasSkipped reports whether any file was left unscanned.
func (r Result) HasSkipped() bool {
	return len(r.Skipped) > 0
}
