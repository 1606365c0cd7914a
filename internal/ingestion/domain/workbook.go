package ingestion

import "strings"

// Sheet is an in-memory grid of cell values. Rows and columns are 0-based.
type Sheet struct {
	Name string
	Rows [][]string
}

// RowCount returns the number of rows held by the sheet.
func (s *Sheet) RowCount() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Row returns the cells of a row, or nil when out of range.
func (s *Sheet) Row(row int) []string {
	if s == nil || row < 0 || row >= len(s.Rows) {
		return nil
	}
	return s.Rows[row]
}

// Cell returns the trimmed cell value, or "" when out of range.
func (s *Sheet) Cell(row, col int) string {
	cells := s.Row(row)
	if col < 0 || col >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col])
}

// RowBlank reports whether every cell in the row is empty.
func (s *Sheet) RowBlank(row int) bool {
	for _, cell := range s.Row(row) {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Workbook is a set of named sheets.
type Workbook struct {
	sheets []*Sheet
}

// NewWorkbook builds a workbook from sheets in their given order.
func NewWorkbook(sheets ...*Sheet) *Workbook {
	wb := &Workbook{}
	for _, sheet := range sheets {
		if sheet != nil {
			wb.sheets = append(wb.sheets, sheet)
		}
	}
	return wb
}

// Sheet finds a sheet by name, ignoring case and surrounding whitespace.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	if w == nil {
		return nil, false
	}
	want := strings.TrimSpace(name)
	for _, sheet := range w.sheets {
		if strings.EqualFold(strings.TrimSpace(sheet.Name), want) {
			return sheet, true
		}
	}
	return nil, false
}

// SheetNames lists sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	if w == nil {
		return nil
	}
	names := make([]string, 0, len(w.sheets))
	for _, sheet := range w.sheets {
		names = append(names, sheet.Name)
	}
	return names
}
