// Package table turns the pipe-delimited tables an LLM returns into rows.
package table

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
)

// Delimiter separates cells in a table row.
const Delimiter = "|"

// attempt is one parsing strategy. ok is false when the strategy does not
// apply to the input, letting the next one try.
type attempt func(lines []string) (t *Table, ok bool)

// attempts run in order; the first one that applies wins.
var attempts = []attempt{
	parseStrict,
	parseLenient,
}

// Parse converts a block of LLM output into a table. It never fails: input
// that holds no recognizable table yields an empty table. A header without
// any well-formed data rows yields an empty table that keeps its columns.
func Parse(text string) *Table {
	if strings.TrimSpace(text) == "" {
		return &Table{}
	}

	lines := splitLines(text)
	for _, try := range attempts {
		if t, ok := try(lines); ok {
			return t
		}
	}
	return &Table{}
}

// maxLine bounds the scanner buffer. Longer lines are handled by the slow path.
var maxLine = 10 * 1024 * 1024

func splitLines(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() == nil {
		return lines
	}

	lines = strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// parseStrict handles markdown tables: rows are lines that start and end with
// the delimiter, the first row is the header, and an optional separator row
// follows it.
func parseStrict(lines []string) (*Table, bool) {
	var rows []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, Delimiter) && strings.HasSuffix(trimmed, Delimiter) {
			rows = append(rows, trimmed)
		}
	}
	if len(rows) == 0 {
		return nil, false
	}

	t := &Table{Columns: splitRow(rows[0])}
	rows = rows[1:]

	if len(rows) > 0 && isSeparator(rows[0]) {
		rows = rows[1:]
	}

	for _, row := range rows {
		cells := splitRow(row)
		// Rows that don't match the header are dropped, not repaired.
		if len(cells) != len(t.Columns) {
			continue
		}
		t.Rows = append(t.Rows, Record{Columns: t.Columns, Cells: cells})
	}
	return t, true
}

// parseLenient handles loose output where rows contain the delimiter but are
// not wrapped in it. Rows are read as delimiter-separated values so quoted
// cells survive, and the first row is the header.
func parseLenient(lines []string) (*Table, bool) {
	var rows []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.Contains(trimmed, Delimiter) || isSeparator(trimmed) {
			continue
		}
		rows = append(rows, strings.Trim(trimmed, Delimiter))
	}
	if len(rows) == 0 {
		return nil, false
	}

	r := csv.NewReader(strings.NewReader(strings.Join(rows, "\n")))
	r.Comma = '|'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, false
	}
	t := &Table{Columns: trimAll(header)}
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false
		}
		if len(fields) != len(t.Columns) {
			continue
		}
		t.Rows = append(t.Rows, Record{Columns: t.Columns, Cells: trimAll(fields)})
	}
	if len(t.Rows) == 0 {
		return nil, false
	}
	return t, true
}

// splitRow strips the outer delimiters of a trimmed row and splits it into
// trimmed cells.
func splitRow(row string) []string {
	inner := strings.Trim(row, Delimiter)
	return trimAll(strings.Split(inner, Delimiter))
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// isSeparator reports whether a row is a markdown header separator such as
// "|---|:---:|".
func isSeparator(row string) bool {
	for _, r := range row {
		switch r {
		case '-', '|', ':', ' ':
		default:
			return false
		}
	}
	return true
}
