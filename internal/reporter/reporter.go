// Package reporter renders scan results as a table, JSON or CSV.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/had-nu/credsweep/internal/types"
)

// Artifact file names written by SaveArtifacts. The "credsweep-report"
// prefix is part of the built-in ignore set so a rescan never scans its own
// output.
const (
	JSONArtifact = "credsweep-report.json"
	CSVArtifact  = "credsweep-report.csv"
)

// Report writes records to w in the requested format (table, json or csv).
func Report(w io.Writer, records []types.Match, format string) error {
	switch format {
	case "json":
		return reportJSON(w, records)
	case "csv":
		return reportCSV(w, records)
	default:
		return reportTable(w, records)
	}
}

func reportJSON(w io.Writer, records []types.Match) error {
	if records == nil {
		records = []types.Match{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func reportCSV(w io.Writer, records []types.Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"secret", "file", "line", "line_content"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Secret, r.File, strconv.Itoa(r.Line), r.LineContent}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func reportTable(w io.Writer, records []types.Match) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No secrets found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Secret", "File", "Line", "Preview"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{r.Secret, r.File, strconv.Itoa(r.Line), r.LineContent})
	}
	table.Render()
	return nil
}

// SaveArtifacts writes the JSON and CSV report files into dir and returns
// their paths.
func SaveArtifacts(dir string, records []types.Match) (jsonPath, csvPath string, err error) {
	jsonPath = filepath.Join(dir, JSONArtifact)
	if err := writeFile(jsonPath, records, reportJSON); err != nil {
		return "", "", err
	}
	csvPath = filepath.Join(dir, CSVArtifact)
	if err := writeFile(csvPath, records, reportCSV); err != nil {
		return "", "", err
	}
	return jsonPath, csvPath, nil
}

func writeFile(path string, records []types.Match, render func(io.Writer, []types.Match) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
