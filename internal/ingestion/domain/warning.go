package ingestion

// WarningCode classifies a non-fatal data quality issue.
type WarningCode string

const (
	WarningDateMismatch     WarningCode = "date_mismatch"
	WarningHighNoDataRatio  WarningCode = "high_no_data_ratio"
	WarningErrorCell        WarningCode = "error_cell"
	WarningStatusConflict   WarningCode = "status_conflict"
	WarningMissingSummary   WarningCode = "missing_summary_row"
	WarningOptionalSheetGap WarningCode = "optional_sheet_missing"
)

// Warning is attached to a successful parse; it never aborts one.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Sheet   string      `json:"sheet,omitempty"`
	Row     int         `json:"row,omitempty"`
	Column  string      `json:"column,omitempty"`
}
