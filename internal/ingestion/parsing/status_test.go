package parsing

import (
	"testing"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
)

func TestStatusParser_ClassifiesOutages(t *testing.T) {
	p, err := NewStatusParser(defaultLayout(t))
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	result, err := p.Parse(statusFixture(t).sheet("Generation Status"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	wantRows := []int{3, 4, 6, 7, 10}
	if len(result.Outages) != len(wantRows) {
		t.Fatalf("outages=%d want %d: %+v", len(result.Outages), len(wantRows), result.Outages)
	}
	for i, o := range result.Outages {
		if o.Row != wantRows[i] {
			t.Fatalf("outage %d row=%d want %d", i, o.Row, wantRows[i])
		}
	}
	if result.SkippedRows != 3 {
		t.Fatalf("skipped=%d want 3", result.SkippedRows)
	}

	governor := result.Outages[0]
	if governor.Reason != "Governor fault" || governor.ExpectedCompletion == nil || governor.IsResolved {
		t.Fatalf("unexpected first outage: %+v", governor)
	}
	if !result.Outages[2].IsResolved {
		t.Fatalf("actual completion present must resolve the outage")
	}
	stationLevel := result.Outages[3]
	if stationLevel.UnitID != "" || stationLevel.Station != "Ubungo" {
		t.Fatalf("expected station-level outage for Ubungo: %+v", stationLevel)
	}
	if result.Outages[4].Station != "Mbeya" {
		t.Fatalf("summary row must reset the carried station: %+v", result.Outages[4])
	}
}

func TestStatusParser_RemarksKeywords(t *testing.T) {
	p, err := NewStatusParser(defaultLayout(t))
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	cases := map[string]bool{
		"Under MAINTENANCE":       true,
		"awaiting repair parts":   true,
		"unit is out of  service": true,
		"Not Available":           true,
		"breakdown":               true,
		"downtime logged":         false,
		"running normally":        false,
		"":                        false,
	}
	for remarks, want := range cases {
		if got := p.RemarksIndicateOutage(remarks); got != want {
			t.Fatalf("%q: got %v want %v", remarks, got, want)
		}
	}
}

func TestStatusParser_MissingSheet(t *testing.T) {
	l, err := layout.Parse([]byte("status:\n  required: false\n"))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	p, err := NewStatusParser(l)
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	result, err := p.Parse(nil)
	if err != nil {
		t.Fatalf("optional sheet must not fail: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != ingestion.WarningOptionalSheetGap {
		t.Fatalf("unexpected warnings: %+v", result.Warnings)
	}

	strict, err := NewStatusParser(defaultLayout(t))
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	if _, err := strict.Parse(nil); err == nil {
		t.Fatalf("required sheet must fail")
	}
}

func TestStatusParser_MissingHeaderRow(t *testing.T) {
	p, err := NewStatusParser(defaultLayout(t))
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	g := newGrid(t, 1, 11)
	g.line(1, "GENERATION STATUS")
	_, err = p.Parse(g.sheet("Generation Status"))
	se, ok := ingestion.AsStructural(err)
	if !ok || se.Artifact != "header row 2" {
		t.Fatalf("expected missing header row, got %v", err)
	}
}

func TestStatusParser_NonFiniteCells(t *testing.T) {
	p, err := NewStatusParser(defaultLayout(t))
	if err != nil {
		t.Fatalf("status parser: %v", err)
	}
	g := newGrid(t, 6, 11)
	g.line(2, "Station", "Engine", "Unit", "MVA", "Derated", "Available", "Dispatched", "Reason", "Expected", "Actual", "Remarks")
	g.line(3, "Kinyerezi", "Wartsila", "U1", "", "8", "nan", "", "Governor fault", "nan", "nan", "")
	g.line(4, "", "Wartsila", "U2", "", "8", "8", "8", "nan", "", "", "nan")
	g.line(5, "", "Wartsila", "U3", "", "8", "inf", "", "", "", "", "")

	result, err := p.Parse(g.sheet("Generation Status"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Outages) != 2 {
		t.Fatalf("outages=%d want 2: %+v", len(result.Outages), result.Outages)
	}
	first := result.Outages[0]
	if first.IsResolved || first.ActualCompletion != nil || first.ExpectedCompletion != nil || first.AvailableMW != nil {
		t.Fatalf("nan cells must read as missing: %+v", first)
	}
	if third := result.Outages[1]; third.UnitID != "U3" || third.AvailableMW != nil {
		t.Fatalf("inf availability must read as missing: %+v", third)
	}
}
