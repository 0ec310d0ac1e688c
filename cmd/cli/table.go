package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/RouteDB/core"
	"github.com/nickyhof/RouteDB/router"
)

// SimpleTable renders rows as a boxed ASCII table
type SimpleTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a new table writer
func NewTable(w io.Writer) *SimpleTable {
	return &SimpleTable{
		writer: w,
		rows:   make([][]string, 0),
	}
}

func (t *SimpleTable) Header(headers []string) {
	t.headers = headers
}

func (t *SimpleTable) Row(row []string) {
	t.rows = append(t.rows, row)
}

// Render outputs the formatted table
func (t *SimpleTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.widths()
	separator := separatorLine(widths)

	fmt.Fprintln(t.writer, separator)
	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, formatRow(t.headers, widths))
		fmt.Fprintln(t.writer, separator)
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, formatRow(row, widths))
	}
	fmt.Fprintln(t.writer, separator)
}

func (t *SimpleTable) widths() []int {
	columns := len(t.headers)
	for _, row := range t.rows {
		columns = max(columns, len(row))
	}

	widths := make([]int, columns)
	for i, header := range t.headers {
		widths[i] = max(widths[i], len(header))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}

func separatorLine(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

// formatRow left-aligns each cell in its column
func formatRow(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		parts[i] = " " + cell + strings.Repeat(" ", w-len(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|"
}

// renderPayload prints one statement result the way the REPL shows it.
func renderPayload(w io.Writer, payload router.Payload) {
	switch p := payload.(type) {
	case router.Select:
		table := NewTable(w)
		table.Header(p.Labels)
		for _, row := range p.Rows {
			cells := make([]string, len(row))
			for i, field := range row {
				cells[i] = core.Format(field.Value)
			}
			table.Row(cells)
		}
		table.Render()
		fmt.Fprintf(w, "%d row(s)\n", len(p.Rows))

	case router.ShowTables:
		table := NewTable(w)
		table.Header([]string{"table"})
		for _, name := range p.Tables {
			table.Row([]string{name})
		}
		table.Render()

	case router.ShowColumns:
		table := NewTable(w)
		table.Header([]string{"column", "type"})
		for _, column := range p.Columns {
			table.Row([]string{column.Name, column.Type})
		}
		table.Render()

	case router.ShowVersion:
		fmt.Fprintln(w, p.Version)

	case router.Insert:
		fmt.Fprintf(w, "%s✓ %d row(s) inserted%s\n", SuccessColor, p.Affected, ResetColor)
	case router.Update:
		fmt.Fprintf(w, "%s✓ %d row(s) updated%s\n", SuccessColor, p.Affected, ResetColor)
	case router.Delete:
		fmt.Fprintf(w, "%s✓ %d row(s) deleted%s\n", SuccessColor, p.Affected, ResetColor)

	default:
		fmt.Fprintf(w, "%s✓ %s%s\n", SuccessColor, payload.Kind(), ResetColor)
	}
}
