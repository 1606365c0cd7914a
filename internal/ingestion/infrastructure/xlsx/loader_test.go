package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestLoadReadsAllSheetsRaw(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Schedule"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := f.NewSheet("Generation Status"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	_ = f.SetCellValue("Schedule", "A5", "Kinyerezi")
	_ = f.SetCellValue("Schedule", "H3", time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC))
	_ = f.SetCellValue("Schedule", "H5", 7.5)
	_ = f.SetCellValue("Generation Status", "H3", "Governor fault")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	wb, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	names := wb.SheetNames()
	if len(names) != 2 || names[0] != "Schedule" || names[1] != "Generation Status" {
		t.Fatalf("sheet names mismatch: %v", names)
	}
	schedule, ok := wb.Sheet("schedule")
	if !ok {
		t.Fatalf("schedule sheet not found")
	}
	if got := schedule.Cell(2, 7); got != "46307" {
		t.Fatalf("date header should load as a day serial, got %q", got)
	}
	if got := schedule.Cell(4, 7); got != "7.5" {
		t.Fatalf("value mismatch: %q", got)
	}
	if got := schedule.Cell(4, 0); got != "Kinyerezi" {
		t.Fatalf("station mismatch: %q", got)
	}
	status, _ := wb.Sheet("Generation Status")
	if got := status.Cell(2, 7); got != "Governor fault" {
		t.Fatalf("status cell mismatch: %q", got)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(bytes.NewBufferString("not a zip")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for nil reader")
	}
}
