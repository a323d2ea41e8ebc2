package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Table is a parsed storyboard-style table. Columns keeps header order and
// may contain duplicate names.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Record is one row of a Table. Cells are aligned with the owning table's
// Columns.
type Record struct {
	Columns []string
	Cells   []string
}

// NewRecord builds a record for the given columns. Missing cells are filled
// with empty strings; extra cells are dropped.
func NewRecord(columns []string, cells []string) Record {
	aligned := make([]string, len(columns))
	copy(aligned, cells)
	return Record{Columns: columns, Cells: aligned}
}

// Get returns the cell for the first column with the given name.
func (r Record) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column && i < len(r.Cells) {
			return r.Cells[i], true
		}
	}
	return "", false
}

// Set overwrites the cell of the first column with the given name.
func (r Record) Set(column, value string) bool {
	for i, c := range r.Columns {
		if c == column && i < len(r.Cells) {
			r.Cells[i] = value
			return true
		}
	}
	return false
}

// Map returns the record as a column -> cell map. With duplicate column names
// the first occurrence wins.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for i, c := range r.Columns {
		if _, seen := m[c]; seen || i >= len(r.Cells) {
			continue
		}
		m[c] = r.Cells[i]
	}
	return m
}

// MarshalJSON writes the record as a JSON object with keys in column order.
// Duplicate column names are written once, first occurrence wins.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	seen := make(map[string]bool, len(r.Columns))
	first := true
	for i, c := range r.Columns {
		if seen[c] || i >= len(r.Cells) {
			continue
		}
		seen[c] = true
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeJSONString(&buf, c); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, r.Cells[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn reports whether the header contains the given column name.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row. Cells are aligned to the table's columns.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, NewRecord(t.Columns, cells))
}

// UnmarshalJSON restores a table persisted with its own MarshalJSON and
// re-links each row to the header.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []string `json:"columns"`
		Rows    []struct {
			Cells []string `json:"cells"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Columns = raw.Columns
	t.Rows = make([]Record, 0, len(raw.Rows))
	for _, r := range raw.Rows {
		t.Rows = append(t.Rows, NewRecord(t.Columns, r.Cells))
	}
	return nil
}

// MarshalJSON persists the table with its header so that an empty table still
// carries its columns.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := make([]struct {
		Cells []string `json:"cells"`
	}, len(t.Rows))
	for i, r := range t.Rows {
		rows[i].Cells = r.Cells
	}
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    any      `json:"rows"`
	}{Columns: nonNil(t.Columns), Rows: rows})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ExportJSON renders the rows as a pretty-printed JSON array of objects.
// Non-ASCII text is written as-is.
func (t *Table) ExportJSON() ([]byte, error) {
	rows := []Record{}
	if t != nil {
		rows = t.Rows
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("failed to encode storyboard: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ImportJSON reads a JSON array of row objects, the format written by
// ExportJSON. Column order follows the first object's key order; keys that only
// appear in later objects are appended.
func ImportJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid storyboard JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("invalid storyboard JSON: expected an array of rows")
	}

	t := &Table{}
	var rows []map[string]string
	for dec.More() {
		keys, values, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if !t.HasColumn(k) {
				t.Columns = append(t.Columns, k)
			}
		}
		rows = append(rows, values)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid storyboard JSON: %w", err)
	}

	for _, values := range rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = values[c]
		}
		t.Rows = append(t.Rows, NewRecord(t.Columns, cells))
	}
	return t, nil
}

// readObject decodes one JSON object keeping key order. Non-string values are
// kept as their JSON text.
func readObject(dec *json.Decoder) ([]string, map[string]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid storyboard row: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("invalid storyboard row: expected an object")
	}
	var keys []string
	values := make(map[string]string)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid storyboard row: %w", err)
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("invalid storyboard row %q: %w", key, err)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
			if s == "null" {
				s = ""
			}
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = s
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("invalid storyboard row: %w", err)
	}
	return keys, values, nil
}
