package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayoutCompiles(t *testing.T) {
	l, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if !l.Compiled() {
		t.Fatalf("expected compiled layout")
	}
	idx := l.ScheduleIndex()
	if idx.Station != 0 || idx.DeratedMW != 5 || idx.DateStart != 7 {
		t.Fatalf("schedule index mismatch: %+v", idx)
	}
	if st := l.StatusIndex(); st.Remarks != 10 || st.AvailableMW != 5 {
		t.Fatalf("status index mismatch: %+v", st)
	}
	if len(l.Schedule.SummaryRows) != 7 || len(l.Schedule.SolarRows) != 3 {
		t.Fatalf("summary table mismatch")
	}
	if !l.Status.Required {
		t.Fatalf("status sheet should be required by default")
	}
}

func TestNormalizeEngine(t *testing.T) {
	l, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cases := map[string]string{
		"wärtsilä":     "Wartsila",
		"WARTSILLA":    "Wartsila",
		" m.a.n ":      "MAN",
		"CAT":          "Caterpillar",
		"Rolls  Royce": "Rolls Royce",
		"":             "",
	}
	for raw, want := range cases {
		if got := l.NormalizeEngine(raw); got != want {
			t.Fatalf("%q: got %q want %q", raw, got, want)
		}
	}
}

func TestIsSummaryKeyword(t *testing.T) {
	l, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	for _, cell := range []string{"TOTAL", "Grand Total", "Sub-Total:", "total installed"} {
		if !l.IsSummaryKeyword(cell) {
			t.Fatalf("%q should be a summary row", cell)
		}
	}
	for _, cell := range []string{"Totalenergies Site", "Ubungo", ""} {
		if l.IsSummaryKeyword(cell) {
			t.Fatalf("%q should not be a summary row", cell)
		}
	}
}

func TestScheduleEndRow(t *testing.T) {
	s := ScheduleLayout{FirstDataRow: 5, SummaryRows: []SummaryRow{{Field: FieldTotalCapacity, Row: 60}, {Field: FieldDayPeak, Row: 66}}}
	if got := s.EndRow(200); got != 59 {
		t.Fatalf("end row=%d want 59", got)
	}
	s.LastDataRow = 40
	if got := s.EndRow(200); got != 40 {
		t.Fatalf("end row=%d want 40", got)
	}
	if got := s.EndRow(20); got != 20 {
		t.Fatalf("end row=%d want 20", got)
	}
}

func TestLoadFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	override := []byte(`
schedule:
  sheet: Capacity Schedule
  date_start_column: AB
status:
  required: false
summary_keywords: [jumla]
`)
	if err := os.WriteFile(path, override, 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Schedule.Sheet != "Capacity Schedule" || l.ScheduleIndex().DateStart != 27 {
		t.Fatalf("override not applied: %+v", l.Schedule)
	}
	if l.Schedule.HeaderRow != 3 || l.Status.Sheet != "Generation Status" || l.Status.Required {
		t.Fatalf("defaults lost under override: %+v %+v", l.Schedule, l.Status)
	}
	if !l.IsSummaryKeyword("Jumla") || l.IsSummaryKeyword("Total") {
		t.Fatalf("keyword override not applied")
	}
}

func TestParseRejectsInvalidLayout(t *testing.T) {
	bad := map[string]string{
		"bad column":   "schedule:\n  columns:\n    unit: \"3\"\n",
		"bad field":    "schedule:\n  summary_rows:\n    - field: tariff\n      row: 10\n",
		"header order": "status:\n  first_data_row: 1\n",
		"empty sheet":  "schedule:\n  sheet: \"\"\n",
	}
	for name, doc := range bad {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
