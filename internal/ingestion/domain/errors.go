package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural matches every StructuralError via errors.Is.
	ErrStructural = errors.New("ingestion: structural failure")
	// ErrNilWorkbook is returned when no workbook is supplied.
	ErrNilWorkbook = errors.New("ingestion: nil workbook")
	// ErrInvalidReportDate is returned when the report date is zero.
	ErrInvalidReportDate = errors.New("ingestion: invalid report date")
	// ErrNilReport is returned when saving a nil report.
	ErrNilReport = errors.New("ingestion: nil report")
)

// StructuralError reports a missing sheet, header row or date header.
// It aborts the parse; no partial data accompanies it.
type StructuralError struct {
	Sheet    string
	Artifact string
	Detail   string
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("ingestion: missing %s", e.Artifact)
	if e.Sheet != "" {
		msg += fmt.Sprintf(" in sheet %q", e.Sheet)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets errors.Is(err, ErrStructural) match.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// AsStructural unwraps a StructuralError from err.
func AsStructural(err error) (*StructuralError, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
