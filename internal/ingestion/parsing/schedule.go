package parsing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
)

// ScheduleResult is the output of one schedule sheet pass.
type ScheduleResult struct {
	Units       []ingestion.Unit
	Stations    []ingestion.Station
	Summary     ingestion.Summary
	SkippedRows int
	Warnings    []ingestion.Warning
}

// ScheduleParser reads unit rows and the summary row table of the schedule sheet.
type ScheduleParser struct {
	layout *layout.Layout
	index  layout.ScheduleIndex
}

// NewScheduleParser creates a parser over a compiled layout.
func NewScheduleParser(l *layout.Layout) (*ScheduleParser, error) {
	if !l.Compiled() {
		return nil, errors.New("schedule parser: layout not compiled")
	}
	return &ScheduleParser{layout: l, index: l.ScheduleIndex()}, nil
}

// Parse reads units from the data region and summary values from dateCol.
func (p *ScheduleParser) Parse(sheet *ingestion.Sheet, dateCol int) ScheduleResult {
	cfg := p.layout.Schedule
	var (
		result  ScheduleResult
		station string
		errs    = newErrorCells(sheet.Name)
	)

	end := cfg.EndRow(sheet.RowCount())
	for rowNum := cfg.FirstDataRow; rowNum <= end; rowNum++ {
		row := rowNum - 1
		if sheet.RowBlank(row) {
			continue
		}
		if p.layout.IsSummaryKeyword(sheet.Cell(row, p.index.Station)) {
			result.SkippedRows++
			continue
		}
		station = carryStation(station, sheet.Cell(row, p.index.Station))
		unitID := cleanText(sheet.Cell(row, p.index.Unit))
		if station == "" || unitID == "" {
			result.SkippedRows++
			continue
		}

		availCell := sheet.Cell(row, dateCol)
		errs.check(rowNum, dateCol, availCell)
		errs.check(rowNum, p.index.DeratedMW, sheet.Cell(row, p.index.DeratedMW))

		unit := ingestion.Unit{
			Station:      station,
			Engine:       p.layout.NormalizeEngine(cleanText(sheet.Cell(row, p.index.Engine))),
			UnitID:       unitID,
			InstalledMVA: numberPtr(sheet.Cell(row, p.index.InstalledMVA)),
			InstalledMW:  numberPtr(sheet.Cell(row, p.index.InstalledMW)),
			DeratedMW:    numberPtr(sheet.Cell(row, p.index.DeratedMW)),
			AvailableMW:  numberPtr(availCell),
			Row:          rowNum,
		}
		unit.Status = classifyAvailability(unit.AvailableMW)
		unit.UtilizationPct = unitUtilization(unit)
		result.Units = append(result.Units, unit)
	}

	result.Stations = aggregateStations(result.Units)
	result.Summary = p.readSummary(sheet, dateCol, result.Units, &result.Warnings)
	result.Warnings = append(result.Warnings, errs.warnings()...)
	if w := p.noDataWarning(sheet.Name, result.Units); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result
}

// classifyAvailability applies the status rule: >0 online, ==0 offline, anything else no_data.
func classifyAvailability(available *float64) ingestion.UnitStatus {
	switch {
	case available == nil || *available < 0:
		return ingestion.StatusNoData
	case *available > 0:
		return ingestion.StatusOnline
	default:
		return ingestion.StatusOffline
	}
}

func unitUtilization(u ingestion.Unit) *float64 {
	if u.Status == ingestion.StatusNoData || u.AvailableMW == nil || u.DeratedMW == nil || *u.DeratedMW <= 0 {
		return nil
	}
	return ptr(*u.AvailableMW / *u.DeratedMW * 100)
}

// aggregateStations rolls units up by normalized station name in first-seen order.
// Derated sums every unit; available sums online units only.
func aggregateStations(units []ingestion.Unit) []ingestion.Station {
	order := make([]string, 0)
	byKey := make(map[string]*ingestion.Station)
	for _, u := range units {
		key := StationKey(u.Station)
		st, ok := byKey[key]
		if !ok {
			st = &ingestion.Station{Name: u.Station}
			byKey[key] = st
			order = append(order, key)
		}
		st.TotalUnits++
		if u.DeratedMW != nil {
			st.TotalDeratedMW += *u.DeratedMW
		}
		switch u.Status {
		case ingestion.StatusOnline:
			st.OnlineUnits++
			st.TotalAvailableMW += *u.AvailableMW
		case ingestion.StatusOffline:
			st.OfflineUnits++
		default:
			st.NoDataUnits++
		}
	}

	stations := make([]ingestion.Station, 0, len(order))
	for _, key := range order {
		st := byKey[key]
		if st.TotalDeratedMW > 0 {
			st.UtilizationPct = ptr(st.TotalAvailableMW / st.TotalDeratedMW * 100)
		}
		stations = append(stations, *st)
	}
	return stations
}

func (p *ScheduleParser) readSummary(sheet *ingestion.Sheet, dateCol int, units []ingestion.Unit, warnings *[]ingestion.Warning) ingestion.Summary {
	var summary ingestion.Summary
	missing := func(label string, rowNum int) {
		*warnings = append(*warnings, ingestion.Warning{
			Code:    ingestion.WarningMissingSummary,
			Message: fmt.Sprintf("summary row %d (%s) is beyond the sheet", rowNum, label),
			Sheet:   sheet.Name,
			Row:     rowNum,
		})
	}

	for _, sr := range p.layout.Schedule.SummaryRows {
		if sr.Row > sheet.RowCount() {
			missing(string(sr.Field), sr.Row)
			continue
		}
		cell := sheet.Cell(sr.Row-1, dateCol)
		switch sr.Field {
		case layout.FieldTotalCapacity:
			summary.TotalCapacityMW = numberPtr(cell)
		case layout.FieldExpectedPeakDemand:
			summary.ExpectedPeakDemandMW = numberPtr(cell)
		case layout.FieldActualPeakDemand:
			summary.ActualPeakDemandMW = numberPtr(cell)
		case layout.FieldReserveCapacity:
			summary.ReserveCapacityMW = numberPtr(cell)
		case layout.FieldForcedOutageRate:
			summary.ForcedOutageRatePct = numberPtr(cell)
		case layout.FieldEveningPeak:
			summary.EveningPeak = ParsePeak(cell)
		case layout.FieldDayPeak:
			summary.DayPeak = ParsePeak(cell)
		}
	}

	summary.Solar = make([]ingestion.SolarSite, 0, len(p.layout.Schedule.SolarRows))
	for _, sr := range p.layout.Schedule.SolarRows {
		if sr.Row > sheet.RowCount() {
			missing("solar "+sr.Site, sr.Row)
			continue
		}
		summary.Solar = append(summary.Solar, ingestion.SolarSite{
			Site: sr.Site,
			MWp:  numberPtr(sheet.Cell(sr.Row-1, dateCol)),
		})
	}

	if summary.ActualPeakDemandMW == nil {
		summary.ActualPeakDemandMW = maxOf(summary.EveningPeak.OnBarsMW, summary.DayPeak.OnBarsMW)
	}
	deriveSystemKPIs(&summary, units)
	return summary
}

// deriveSystemKPIs recomputes utilization and reserve margin from unit data;
// the sheet's own figures for these are never trusted.
func deriveSystemKPIs(summary *ingestion.Summary, units []ingestion.Unit) {
	summary.TotalDeratedMW = 0
	summary.TotalAvailableMW = 0
	for _, u := range units {
		if u.DeratedMW != nil {
			summary.TotalDeratedMW += *u.DeratedMW
		}
		if u.Status == ingestion.StatusOnline {
			summary.TotalAvailableMW += *u.AvailableMW
		}
	}
	summary.SystemUtilizationPct = nil
	summary.ReserveMarginPct = nil
	if summary.TotalDeratedMW > 0 {
		summary.SystemUtilizationPct = ptr(summary.TotalAvailableMW / summary.TotalDeratedMW * 100)
	}
	if peak := summary.PeakDemandMW(); peak != nil && summary.TotalAvailableMW > 0 {
		summary.ReserveMarginPct = ptr((summary.TotalAvailableMW - *peak) * 100 / summary.TotalAvailableMW)
	}
}

func (p *ScheduleParser) noDataWarning(sheetName string, units []ingestion.Unit) *ingestion.Warning {
	if len(units) == 0 {
		return nil
	}
	noData := 0
	for _, u := range units {
		if u.Status == ingestion.StatusNoData {
			noData++
		}
	}
	ratio := float64(noData) / float64(len(units))
	if ratio <= p.layout.Schedule.NoDataWarnRatio {
		return nil
	}
	return &ingestion.Warning{
		Code: ingestion.WarningHighNoDataRatio,
		Message: fmt.Sprintf("%d of %d units (%.0f%%) have no data for the report date",
			noData, len(units), ratio*100),
		Sheet: sheetName,
	}
}

func maxOf(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return ptr(*b)
	case b == nil || *a >= *b:
		return ptr(*a)
	default:
		return ptr(*b)
	}
}

// errorCells aggregates native error cells per column so a broken formula
// column yields one warning rather than one per row.
type errorCells struct {
	sheet string
	rows  map[int][]int
}

func newErrorCells(sheet string) *errorCells {
	return &errorCells{sheet: sheet, rows: make(map[int][]int)}
}

func (e *errorCells) check(rowNum, col int, cell string) {
	if isErrorCell(cell) {
		e.rows[col] = append(e.rows[col], rowNum)
	}
}

func (e *errorCells) warnings() []ingestion.Warning {
	if len(e.rows) == 0 {
		return nil
	}
	cols := make([]int, 0, len(e.rows))
	for col := range e.rows {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	out := make([]ingestion.Warning, 0, len(cols))
	for _, col := range cols {
		rows := e.rows[col]
		shown := rows
		if len(shown) > 5 {
			shown = shown[:5]
		}
		parts := make([]string, 0, len(shown))
		for _, r := range shown {
			parts = append(parts, fmt.Sprint(r))
		}
		msg := fmt.Sprintf("%d error cell(s) in column %s, rows %s", len(rows), columnName(col), strings.Join(parts, ","))
		if len(rows) > len(shown) {
			msg += ",..."
		}
		out = append(out, ingestion.Warning{
			Code:    ingestion.WarningErrorCell,
			Message: msg,
			Sheet:   e.sheet,
			Row:     rows[0],
			Column:  columnName(col),
		})
	}
	return out
}
