package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/duckmart/duckmart/internal/executor"
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderResult writes one query result in the requested format. Explained
// results always print the plan text regardless of format.
func renderResult(w io.Writer, result *executor.Result, format string) error {
	if result.Explained {
		_, _ = fmt.Fprintf(w, "== %s ==\n", result.Name)
		_, _ = fmt.Fprintln(w, result.Plan)
		return nil
	}

	switch format {
	case "json":
		return renderJSON(w, result)
	case "csv":
		return renderCSV(w, result)
	case "md", "markdown":
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// renderReport writes a run-all report: each entry under its name header,
// failures printed in place of a result.
func renderReport(w io.Writer, report *executor.Report, format string) error {
	for i, entry := range report.Entries {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}

		if entry.Err != nil {
			_, _ = fmt.Fprintf(w, "== %s ==\n", entry.Name)
			_, _ = fmt.Fprintf(w, "FAILED: %v\n", entry.Err)
			continue
		}

		if !entry.Result.Explained {
			_, _ = fmt.Fprintf(w, "== %s ==\n", entry.Name)
		}
		if err := renderResult(w, entry.Result, format); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "\n%d succeeded, %d failed\n",
		len(report.Succeeded()), len(report.Failed()))
	return nil
}

func renderTable(w io.Writer, result *executor.Result) error {
	if len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range result.Rows {
		row := make(table.Row, len(result.Columns))
		for i, col := range result.Columns {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows in %s)\n",
		len(result.Rows), result.Elapsed.Round(time.Millisecond))
	return nil
}

func renderJSON(w io.Writer, result *executor.Result) error {
	rows := result.Rows
	if rows == nil {
		rows = []executor.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, result *executor.Result) error {
	_, _ = fmt.Fprintln(w, strings.Join(result.Columns, ","))

	for _, r := range result.Rows {
		values := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			values[i] = escapeCSV(formatValue(r[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, result *executor.Result) error {
	if len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(result.Columns, " | "))
	seps := make([]string, len(result.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range result.Rows {
		values := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			values[i] = formatValue(r[col])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
