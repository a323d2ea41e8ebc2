package table

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_MarkdownTable(t *testing.T) {
	input := `Here is your storyboard:

| Scene | Narration | Image Prompt |
|-------|-----------|--------------|
| 1 | 清晨的城市 | A city at dawn |
| 2 | 人们走向地铁 | Commuters entering a subway |

Let me know if you want changes.`

	tbl := Parse(input)

	wantCols := []string{"Scene", "Narration", "Image Prompt"}
	if !reflect.DeepEqual(tbl.Columns, wantCols) {
		t.Fatalf("expected columns %v, got %v", wantCols, tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if got, _ := tbl.Rows[0].Get("Narration"); got != "清晨的城市" {
		t.Errorf("expected narration %q, got %q", "清晨的城市", got)
	}
	if got, _ := tbl.Rows[1].Get("Image Prompt"); got != "Commuters entering a subway" {
		t.Errorf("unexpected image prompt %q", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n"} {
		tbl := Parse(input)
		if !tbl.Empty() {
			t.Errorf("Parse(%q): expected empty table, got %d rows", input, len(tbl.Rows))
		}
		if len(tbl.Columns) != 0 {
			t.Errorf("Parse(%q): expected no columns, got %v", input, tbl.Columns)
		}
	}
}

func TestParse_HeaderOnlyKeepsColumns(t *testing.T) {
	input := "| A | B |\n|---|---|\n"

	tbl := Parse(input)

	if !tbl.Empty() {
		t.Fatalf("expected no rows, got %d", len(tbl.Rows))
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"A", "B"}) {
		t.Errorf("expected columns [A B], got %v", tbl.Columns)
	}
}

func TestParse_WithoutSeparator(t *testing.T) {
	input := "| A | B |\n| 1 | 2 |\n| 3 | 4 |"

	tbl := Parse(input)

	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if !reflect.DeepEqual(tbl.Rows[1].Cells, []string{"3", "4"}) {
		t.Errorf("unexpected second row %v", tbl.Rows[1].Cells)
	}
}

func TestParse_DropsMismatchedRows(t *testing.T) {
	input := `| A | B | C |
|---|---|---|
| 1 | 2 | 3 |
| x | y | z | extra |
| 4 | 5 | 6 |`

	tbl := Parse(input)

	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0].Cells[0] != "1" || tbl.Rows[1].Cells[0] != "4" {
		t.Errorf("unexpected rows: %v, %v", tbl.Rows[0].Cells, tbl.Rows[1].Cells)
	}
}

func TestParse_NoTable(t *testing.T) {
	tbl := Parse("Sorry, I can't produce a storyboard for that topic.")

	if !tbl.Empty() || len(tbl.Columns) != 0 {
		t.Errorf("expected empty table, got columns %v rows %d", tbl.Columns, len(tbl.Rows))
	}
}

func TestParse_LenientFallback(t *testing.T) {
	input := `Scene | Narration
1 | "Hello | world"
2 | Goodbye`

	tbl := Parse(input)

	if !reflect.DeepEqual(tbl.Columns, []string{"Scene", "Narration"}) {
		t.Fatalf("unexpected columns %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if got, _ := tbl.Rows[0].Get("Narration"); got != "Hello | world" {
		t.Errorf("expected quoted cell to survive, got %q", got)
	}
}

func TestParse_RowsShareHeader(t *testing.T) {
	tbl := Parse("| A | B |\n| 1 | 2 |")

	for i, r := range tbl.Rows {
		if len(r.Cells) != len(tbl.Columns) {
			t.Errorf("row %d: %d cells for %d columns", i, len(r.Cells), len(tbl.Columns))
		}
	}
}

func TestExportJSON_Ordered(t *testing.T) {
	tbl := Parse("| Scene | Narration |\n|---|---|\n| 1 | 你好 <b> |")

	data, err := tbl.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	want := "[\n    {\n        \"Scene\": \"1\",\n        \"Narration\": \"你好 <b>\"\n    }\n]"
	if string(data) != want {
		t.Errorf("unexpected export:\n%s\nwant:\n%s", data, want)
	}
}

func TestExportJSON_Empty(t *testing.T) {
	var tbl *Table
	data, err := tbl.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected [], got %s", data)
	}
}

func TestImportJSON_RoundTrip(t *testing.T) {
	orig := Parse(`| Scene | Narration | Image Prompt |
|---|---|---|
| 1 | 第一幕 | A red door |
| 2 | 第二幕 | A blue sky |`)

	data, err := orig.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	got, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	if !reflect.DeepEqual(got.Columns, orig.Columns) {
		t.Errorf("columns: expected %v, got %v", orig.Columns, got.Columns)
	}
	if len(got.Rows) != len(orig.Rows) {
		t.Fatalf("expected %d rows, got %d", len(orig.Rows), len(got.Rows))
	}
	for i := range orig.Rows {
		if !reflect.DeepEqual(got.Rows[i].Cells, orig.Rows[i].Cells) {
			t.Errorf("row %d: expected %v, got %v", i, orig.Rows[i].Cells, got.Rows[i].Cells)
		}
	}
}

func TestImportJSON_Invalid(t *testing.T) {
	tests := []string{
		`{"Scene": "1"}`,
		`[1, 2]`,
		`[{"Scene": "1"`,
		`not json`,
	}
	for _, input := range tests {
		if _, err := ImportJSON([]byte(input)); err == nil {
			t.Errorf("ImportJSON(%q): expected error", input)
		}
	}
}

func TestTable_PersistKeepsHeader(t *testing.T) {
	tbl := Parse("| A | B |\n|---|---|")

	data, err := tbl.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if !strings.Contains(string(data), `"columns":["A","B"]`) {
		t.Errorf("expected header in persisted form, got %s", data)
	}

	var restored Table
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if !reflect.DeepEqual(restored.Columns, []string{"A", "B"}) || !restored.Empty() {
		t.Errorf("unexpected restored table %+v", restored)
	}
}

func TestRecord_SetAndMap(t *testing.T) {
	tbl := &Table{Columns: []string{"Scene", "Image Prompt", "Scene"}}
	tbl.Append("1", "old", "dup")

	if !tbl.Rows[0].Set("Image Prompt", "new") {
		t.Fatal("expected Set to find column")
	}
	m := tbl.Rows[0].Map()
	if m["Image Prompt"] != "new" {
		t.Errorf("expected updated prompt, got %q", m["Image Prompt"])
	}
	if m["Scene"] != "1" {
		t.Errorf("expected first duplicate to win, got %q", m["Scene"])
	}
	if tbl.Rows[0].Set("Missing", "x") {
		t.Error("expected Set on missing column to fail")
	}
}

func TestParse_LenientKeepsCommasInCells(t *testing.T) {
	input := "Scene | Narration\n---|---\n1 | Hello, world, again\n2 | Bye"

	tbl := Parse(input)

	if !reflect.DeepEqual(tbl.Columns, []string{"Scene", "Narration"}) {
		t.Fatalf("expected columns [Scene Narration], got %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows (separator skipped, comma row kept), got %d", len(tbl.Rows))
	}
	if got, _ := tbl.Rows[0].Get("Narration"); got != "Hello, world, again" {
		t.Errorf("expected narration %q, got %q", "Hello, world, again", got)
	}
}

func TestParse_LineLongerThanScanBuffer(t *testing.T) {
	old := maxLine
	maxLine = 1024
	defer func() { maxLine = old }()

	long := strings.Repeat("x", 256*1024)
	input := "| Scene | Narration |\r\n|---|---|\r\n| 1 | " + long + " |\r\n| 2 | after |\r\n"

	tbl := Parse(input)

	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if got, _ := tbl.Rows[0].Get("Narration"); got != long {
		t.Errorf("long cell truncated to %d bytes", len(got))
	}
	if got, _ := tbl.Rows[1].Get("Narration"); got != "after" {
		t.Errorf("expected %q after the long line, got %q", "after", got)
	}
}
