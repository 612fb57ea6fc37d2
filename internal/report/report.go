// Package report renders validation results as terminal tables and exports
// them as timestamped CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"schemamirror/internal/common"
	"schemamirror/internal/drift"
	"schemamirror/internal/kpi"
	"schemamirror/internal/mirror"
	"schemamirror/internal/testcase"
)

// Table is a flat result set ready for rendering or export
type Table struct {
	Header []string
	Rows   [][]string
}

// Empty reports whether the table has no rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Render writes the table to w in the standard layout
func (t Table) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range t.Rows {
		colored := make([]string, len(row))
		copy(colored, row)
		last := len(colored) - 1
		if last >= 0 {
			colored[last] = colorStatus(colored[last])
		}
		table.Append(colored)
	}

	table.Render()
}

// colorStatus colors well-known status cell values; other text is returned
// unchanged
func colorStatus(s string) string {
	switch s {
	case kpi.StatusMatch, testcase.StatusPass, mirror.StatusSuccess:
		return color.GreenString(s)
	case kpi.StatusMismatch, mirror.StatusPartial, testcase.StatusFail:
		return color.YellowString(s)
	case kpi.StatusError, testcase.StatusPermissionError, testcase.StatusExecutionError:
		return color.RedString(s)
	default:
		return s
	}
}

// Filename builds the export filename for a report kind:
// <Kind>_<yyyyMMdd_HHmmss>.csv
func Filename(kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, now.Format("20060102_150405"))
}

// Exporter writes result tables as CSV files under one directory
type Exporter struct {
	dir string
	now func() time.Time
}

// NewExporter creates an exporter writing into dir
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// Export writes one table as <kind>_<timestamp>.csv and returns the file path
func (e *Exporter) Export(kind string, table Table) (string, error) {
	dir, err := common.CleanPath(e.dir)
	if err != nil {
		return "", fmt.Errorf("invalid export directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, Filename(sanitizeKind(kind), e.now()))
	f, err := os.Create(path) // #nosec G304 - path is validated
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Header); err != nil {
		return "", err
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()

	return path, w.Error()
}

// CloneSummaryTable converts a clone summary into its flat form
func CloneSummaryTable(summary *mirror.Summary) Table {
	t := Table{Header: []string{"Database", "Source Schema", "Clone Schema", "Source Tables", "Cloned Tables", "Status"}}
	if summary == nil {
		return t
	}
	t.Rows = [][]string{{
		summary.Database,
		summary.SourceSchema,
		summary.CloneSchema,
		strconv.Itoa(summary.SourceTables),
		strconv.Itoa(summary.ClonedTables),
		summary.Status,
	}}
	return t
}

// TableDiffTable converts table diffs into their flat form
func TableDiffTable(diffs []drift.TableDiff) Table {
	t := Table{Header: []string{"Table", "Difference"}}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []string{d.Table, d.Difference})
	}
	return t
}

// ColumnDiffTable converts column diffs into their flat form
func ColumnDiffTable(diffs []drift.ColumnDiff) Table {
	t := Table{Header: []string{"Table", "Column", "Difference", "Source Data Type", "Clone Data Type"}}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []string{d.Table, d.Column, d.Difference, d.SourceType, d.CloneType})
	}
	return t
}

// TypeDiffTable converts data type diffs into their flat form
func TypeDiffTable(diffs []drift.TypeDiff) Table {
	t := Table{Header: []string{"Table", "Column", "Source Data Type", "Clone Data Type", "Difference"}}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []string{d.Table, d.Column, d.SourceType, d.CloneType, d.Difference})
	}
	return t
}

// KPIResultTable converts KPI results into their flat form
func KPIResultTable(results []kpi.Result) Table {
	t := Table{Header: []string{"KPI ID", "KPI Name", "Source Value", "Clone Value", "Difference", "Diff %", "Status"}}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{
			r.KPIID,
			r.KPIName,
			r.SourceValue.String(),
			r.CloneValue.String(),
			r.Difference.String(),
			r.PercentDiff.Percent(),
			r.Status,
		})
	}
	return t
}

// TestCaseResultTable converts test case results into their flat form
func TestCaseResultTable(results []testcase.Result) Table {
	t := Table{Header: []string{"Test Case", "Category", "Expected Result", "Actual Result", "Status"}}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{r.TestCase, r.Category, r.Expected, r.Actual, r.Status})
	}
	return t
}

// ExportSchemaValidation writes the three structural drift result sets as a
// combined report plus the individual files, returning every path written
func (e *Exporter) ExportSchemaValidation(tableDiffs []drift.TableDiff, columnDiffs []drift.ColumnDiff, typeDiffs []drift.TypeDiff) ([]string, error) {
	var paths []string

	exports := []struct {
		kind  string
		table Table
	}{
		{"TableDifferences", TableDiffTable(tableDiffs)},
		{"ColumnDifferences", ColumnDiffTable(columnDiffs)},
		{"DataTypeDifferences", TypeDiffTable(typeDiffs)},
	}

	for _, exp := range exports {
		path, err := e.Export(exp.kind, exp.table)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	combined := Table{Header: []string{"Section", "Table", "Column", "Difference", "Source Data Type", "Clone Data Type"}}
	for _, d := range tableDiffs {
		combined.Rows = append(combined.Rows, []string{"Tables", d.Table, "", d.Difference, "", ""})
	}
	for _, d := range columnDiffs {
		combined.Rows = append(combined.Rows, []string{"Columns", d.Table, d.Column, d.Difference, d.SourceType, d.CloneType})
	}
	for _, d := range typeDiffs {
		combined.Rows = append(combined.Rows, []string{"Data Types", d.Table, d.Column, d.Difference, d.SourceType, d.CloneType})
	}

	path, err := e.Export("SchemaValidation", combined)
	if err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

// Summary returns a one-line count summary for a rendered table, e.g.
// "3 differences found"
func Summary(t Table, noun string) string {
	if t.Empty() {
		return fmt.Sprintf("No %ss found", noun)
	}
	if len(t.Rows) == 1 {
		return fmt.Sprintf("1 %s found", noun)
	}
	return fmt.Sprintf("%d %ss found", len(t.Rows), noun)
}

// sanitizeKind keeps export kinds filesystem-safe
func sanitizeKind(kind string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, kind)
}
