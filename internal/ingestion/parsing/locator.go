package parsing

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	ingestion "genfleet-cloud/internal/ingestion/domain"
)

// DateMatch is the resolved date column of the schedule sheet.
type DateMatch struct {
	Column     int
	ColumnName string
	Expected   time.Time
	Found      time.Time
	Exact      bool
}

// Warning describes a non-exact match; it is nil on an exact match.
func (m DateMatch) Warning(sheet string) *ingestion.Warning {
	if m.Exact {
		return nil
	}
	return &ingestion.Warning{
		Code: ingestion.WarningDateMismatch,
		Message: fmt.Sprintf("report date %s not found in header; using last dated column %s (%s)",
			m.Expected.Format("2006-01-02"), m.ColumnName, m.Found.Format("2006-01-02")),
		Sheet:  sheet,
		Column: m.ColumnName,
	}
}

// LocateDateColumn scans header cells from startCol to the end of the row,
// returning at the first cell dated target. Without an exact match it returns
// the last dated column with Exact=false. ok is false when no cell is a date.
func LocateDateColumn(header []string, startCol int, target time.Time) (DateMatch, bool) {
	target = civilDate(target)
	match := DateMatch{Column: -1, Expected: target}
	if startCol < 0 {
		startCol = 0
	}
	for col := startCol; col < len(header); col++ {
		date, ok := ParseDate(header[col])
		if !ok {
			continue
		}
		match.Column = col
		match.Found = date
		if sameDay(date, target) {
			match.Exact = true
			break
		}
	}
	if match.Column < 0 {
		return DateMatch{Expected: target, Column: -1}, false
	}
	match.ColumnName = columnName(match.Column)
	return match, true
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return fmt.Sprintf("#%d", col+1)
	}
	return name
}
