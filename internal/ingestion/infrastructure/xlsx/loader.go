package xlsx

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	ingestion "genfleet-cloud/internal/ingestion/domain"
)

// ErrEmptyWorkbook is returned when a file holds no sheets.
var ErrEmptyWorkbook = errors.New("xlsx: workbook has no sheets")

// Load reads every sheet of an XLSX stream into an in-memory workbook.
// Cells are read raw, so date headers arrive as day serials rather than
// in whatever display format the author chose.
func Load(r io.Reader) (*ingestion.Workbook, error) {
	if r == nil {
		return nil, errors.New("xlsx: nil reader")
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()
	return fromFile(f)
}

// LoadFile reads a workbook from disk.
func LoadFile(path string) (*ingestion.Workbook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer file.Close()
	return Load(file)
}

func fromFile(f *excelize.File) (*ingestion.Workbook, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheets := make([]*ingestion.Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("xlsx: read sheet %q: %w", name, err)
		}
		sheets = append(sheets, &ingestion.Sheet{Name: name, Rows: rows})
	}
	return ingestion.NewWorkbook(sheets...), nil
}
