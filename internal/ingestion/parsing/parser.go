package parsing

import (
	"errors"
	"fmt"
	"time"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
)

// Parser runs the full two-sheet pass over one workbook.
type Parser struct {
	layout   *layout.Layout
	schedule *ScheduleParser
	status   *StatusParser
}

// NewParser builds a parser for a layout.
func NewParser(l *layout.Layout) (*Parser, error) {
	if l == nil {
		return nil, errors.New("parser: nil layout")
	}
	schedule, err := NewScheduleParser(l)
	if err != nil {
		return nil, err
	}
	status, err := NewStatusParser(l)
	if err != nil {
		return nil, err
	}
	return &Parser{layout: l, schedule: schedule, status: status}, nil
}

// Layout returns the layout the parser was built with.
func (p *Parser) Layout() *layout.Layout { return p.layout }

// Parse resolves the date column for reportDate and reads both sheets.
// Structural failures return a *ingestion.StructuralError and no report.
func (p *Parser) Parse(wb *ingestion.Workbook, reportDate time.Time) (*ingestion.Report, error) {
	if wb == nil {
		return nil, ingestion.ErrNilWorkbook
	}
	if reportDate.IsZero() {
		return nil, ingestion.ErrInvalidReportDate
	}
	cfg := p.layout.Schedule

	sheet, ok := wb.Sheet(cfg.Sheet)
	if !ok {
		return nil, &ingestion.StructuralError{
			Sheet:    cfg.Sheet,
			Artifact: "sheet",
			Detail:   fmt.Sprintf("workbook has %v", wb.SheetNames()),
		}
	}
	header := sheet.Row(cfg.HeaderRow - 1)
	if header == nil || sheet.RowBlank(cfg.HeaderRow-1) {
		return nil, &ingestion.StructuralError{
			Sheet:    sheet.Name,
			Artifact: fmt.Sprintf("header row %d", cfg.HeaderRow),
		}
	}
	match, ok := LocateDateColumn(header, p.layout.ScheduleIndex().DateStart, reportDate)
	if !ok {
		return nil, &ingestion.StructuralError{
			Sheet:    sheet.Name,
			Artifact: "date header",
			Detail:   fmt.Sprintf("no date cell in row %d from column %s", cfg.HeaderRow, cfg.DateStartColumn),
		}
	}

	var statusSheet *ingestion.Sheet
	if s, ok := wb.Sheet(p.layout.Status.Sheet); ok {
		statusSheet = s
	}
	statusResult, err := p.status.Parse(statusSheet)
	if err != nil {
		return nil, err
	}
	scheduleResult := p.schedule.Parse(sheet, match.Column)
	outages, matchWarnings := MatchOutages(statusResult.Outages, scheduleResult.Units, scheduleResult.Stations)

	report := &ingestion.Report{
		Date:            match.Expected,
		FoundDate:       match.Found,
		DateColumn:      match.ColumnName,
		DateColumnIndex: match.Column,
		ExactDateMatch:  match.Exact,
		Units:           nonNilUnits(scheduleResult.Units),
		Stations:        scheduleResult.Stations,
		Outages:         outages,
		Summary:         scheduleResult.Summary,
	}

	warnings := make([]ingestion.Warning, 0)
	if w := match.Warning(sheet.Name); w != nil {
		warnings = append(warnings, *w)
	}
	warnings = append(warnings, scheduleResult.Warnings...)
	warnings = append(warnings, statusResult.Warnings...)
	warnings = append(warnings, matchWarnings...)
	report.Warnings = warnings

	report.Stats = buildStats(report, scheduleResult.SkippedRows+statusResult.SkippedRows)
	return report, nil
}

func buildStats(report *ingestion.Report, skipped int) ingestion.Stats {
	stats := ingestion.Stats{
		TotalUnits:  len(report.Units),
		Stations:    len(report.Stations),
		SkippedRows: skipped,
		Outages:     len(report.Outages),
	}
	for _, u := range report.Units {
		switch u.Status {
		case ingestion.StatusOnline:
			stats.OnlineUnits++
		case ingestion.StatusOffline:
			stats.OfflineUnits++
		default:
			stats.NoDataUnits++
		}
	}
	for _, o := range report.Outages {
		if o.IsResolved {
			stats.ResolvedOutages++
		}
		if o.Match != nil {
			stats.MatchedOutages++
		}
	}
	return stats
}

func nonNilUnits(units []ingestion.Unit) []ingestion.Unit {
	if units == nil {
		return []ingestion.Unit{}
	}
	return units
}
