package parsing

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
)

// grid is a sparse sheet builder addressed by 1-based row and column letter.
type grid struct {
	t    *testing.T
	rows [][]string
}

func newGrid(t *testing.T, rows, cols int) *grid {
	t.Helper()
	g := &grid{t: t, rows: make([][]string, rows)}
	for i := range g.rows {
		g.rows[i] = make([]string, cols)
	}
	return g
}

func (g *grid) set(row int, col string, value string) *grid {
	g.t.Helper()
	idx, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		g.t.Fatalf("column %s: %v", col, err)
	}
	g.rows[row-1][idx-1] = value
	return g
}

func (g *grid) line(row int, values ...string) *grid {
	g.t.Helper()
	for i, v := range values {
		name, _ := excelize.ColumnNumberToName(i + 1)
		g.set(row, name, v)
	}
	return g
}

func (g *grid) sheet(name string) *ingestion.Sheet {
	return &ingestion.Sheet{Name: name, Rows: g.rows}
}

func defaultLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.Default()
	if err != nil {
		t.Fatalf("default layout: %v", err)
	}
	return l
}

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

// scheduleFixture has date columns H..K for 10..13 Oct 2026 in mixed formats.
//
//	Kinyerezi U1 online, U2 offline, U3 no data on the 12th
//	Ubungo 1 online, 2 offline on the 12th
//	Mtwara U-01 online on the 12th
func scheduleFixture(t *testing.T) *grid {
	g := newGrid(t, 152, 11)
	g.line(1, "GENERATION SCHEDULE")
	g.line(3, "Station", "Engine", "Unit", "MVA", "MW", "Derated MW", "Remarks", "46305", "2026-10-11", "12/10/2026", "13-Oct-2026")

	g.line(5, "Kinyerezi", "wartsila", "U1", "10", "8.5", "8", "", "7", "7.5", "8", "6")
	g.line(6, "", "Wartsila", "U2", "10", "8.5", "8", "", "0", "0", "0", "5")
	g.line(7, "", "WARTSILA", "U3", "10", "8.5", "8", "", "-", "#N/A", "", "7")
	g.line(8, "Ubungo", "cat", "1", "12", "10", "10", "", "9", "9", "9", "9")
	g.line(9, "", "Caterpillar", "2", "12", "10", "10", "", "10", "10", "0", "10")
	g.line(10, "Total", "", "", "", "", "44")
	g.line(11, "", "spare bay")
	g.line(12, "Mtwara", "MAN", "U-01", "6", "5", "5", "", "4", "4", "4.5", "4")

	g.set(142, "J", "120")
	g.set(143, "J", "100")
	g.set(144, "J", "-")
	g.set(145, "J", "15")
	g.set(146, "J", "12.5%")
	g.set(147, "J", "20.5(25)")
	g.set(148, "J", "18")
	g.set(150, "J", "5")
	g.set(151, "J", "2.5")
	return g
}

// statusFixture pairs with scheduleFixture.
func statusFixture(t *testing.T) *grid {
	g := newGrid(t, 12, 11)
	g.line(1, "GENERATION STATUS")
	g.line(2, "Station", "Engine", "Unit", "MVA", "Derated", "Available", "Dispatched", "Reason", "Expected", "Actual", "Remarks")
	g.line(3, "Kinyerezi", "Wartsila", "U2", "", "8", "0", "0", "Governor fault", "20/10/2026", "", "")
	g.line(4, "", "Wartsila", "Unit 1", "", "8", "8", "8", "", "", "", "scheduled maintenance")
	g.line(5, "", "Wartsila", "U3", "", "8", "4", "4", "", "", "", "running fine")
	g.line(6, "Ubungo", "", "2", "", "10", "0", "", "", "", "2026-10-11", "")
	g.line(7, "", "", "", "", "", "", "", "Transmission line down")
	g.line(8, "Total", "", "", "", "38", "12")
	g.line(9, "", "", "U9", "", "", "0")
	g.line(10, "Mbeya", "", "1", "", "4", "0")
	g.line(11, "", "", "", "", "", "", "", "", "", "", "downtime logged")
	return g
}

func fixtureWorkbook(t *testing.T) *ingestion.Workbook {
	return ingestion.NewWorkbook(
		scheduleFixture(t).sheet("Schedule"),
		statusFixture(t).sheet("Generation Status"),
	)
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.01
}
