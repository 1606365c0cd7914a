package parsing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
)

// StatusResult is the output of one status sheet pass.
type StatusResult struct {
	Outages     []ingestion.Outage
	SkippedRows int
	Warnings    []ingestion.Warning
}

// StatusParser reads outage rows from the generation status sheet.
type StatusParser struct {
	layout  *layout.Layout
	index   layout.StatusIndex
	outageW *regexp.Regexp
}

// NewStatusParser creates a parser over a compiled layout.
func NewStatusParser(l *layout.Layout) (*StatusParser, error) {
	if !l.Compiled() {
		return nil, errors.New("status parser: layout not compiled")
	}
	p := &StatusParser{layout: l, index: l.StatusIndex()}
	words := make([]string, 0, len(l.OutageKeywords))
	for _, kw := range l.OutageKeywords {
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" {
			continue
		}
		words = append(words, strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`))
	}
	if len(words) > 0 {
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("status parser: outage keywords: %w", err)
		}
		p.outageW = re
	}
	return p, nil
}

// Parse reads the status sheet. A nil sheet is a structural failure when the
// layout marks the sheet required, otherwise an empty result with a warning.
func (p *StatusParser) Parse(sheet *ingestion.Sheet) (StatusResult, error) {
	cfg := p.layout.Status
	var result StatusResult
	if sheet == nil {
		if cfg.Required {
			return StatusResult{}, &ingestion.StructuralError{Sheet: cfg.Sheet, Artifact: "sheet"}
		}
		result.Warnings = append(result.Warnings, ingestion.Warning{
			Code:    ingestion.WarningOptionalSheetGap,
			Message: fmt.Sprintf("sheet %q not found; no outages read", cfg.Sheet),
			Sheet:   cfg.Sheet,
		})
		return result, nil
	}
	if sheet.RowCount() < cfg.HeaderRow || sheet.RowBlank(cfg.HeaderRow-1) {
		return StatusResult{}, &ingestion.StructuralError{
			Sheet:    sheet.Name,
			Artifact: fmt.Sprintf("header row %d", cfg.HeaderRow),
		}
	}

	var station string
	errs := newErrorCells(sheet.Name)
	end := cfg.EndRow(sheet.RowCount())
	for rowNum := cfg.FirstDataRow; rowNum <= end; rowNum++ {
		row := rowNum - 1
		if sheet.RowBlank(row) {
			continue
		}
		first := sheet.Cell(row, p.index.Station)
		if p.layout.IsSummaryKeyword(first) {
			station = ""
			result.SkippedRows++
			continue
		}
		station = carryStation(station, first)
		if station == "" {
			result.SkippedRows++
			continue
		}

		availCell := sheet.Cell(row, p.index.AvailableMW)
		errs.check(rowNum, p.index.AvailableMW, availCell)
		outage := ingestion.Outage{
			Station:            station,
			Engine:             p.layout.NormalizeEngine(cleanText(sheet.Cell(row, p.index.Engine))),
			UnitID:             cleanText(sheet.Cell(row, p.index.Unit)),
			InstalledMVA:       numberPtr(sheet.Cell(row, p.index.InstalledMVA)),
			DeratedMW:          numberPtr(sheet.Cell(row, p.index.DeratedMW)),
			AvailableMW:        numberPtr(availCell),
			DispatchedMW:       numberPtr(sheet.Cell(row, p.index.DispatchedMW)),
			Reason:             cleanText(sheet.Cell(row, p.index.OutageReason)),
			ExpectedCompletion: datePtr(sheet.Cell(row, p.index.ExpectedCompletion)),
			ActualCompletion:   datePtr(sheet.Cell(row, p.index.ActualCompletion)),
			Remarks:            cleanText(sheet.Cell(row, p.index.Remarks)),
			Row:                rowNum,
		}
		outage.IsResolved = outage.ActualCompletion != nil

		explained := outage.Reason != "" || p.RemarksIndicateOutage(outage.Remarks)
		if outage.UnitID == "" {
			if !explained {
				result.SkippedRows++
				continue
			}
			result.Outages = append(result.Outages, outage)
			continue
		}
		if explained || capacityLost(outage.AvailableMW) {
			result.Outages = append(result.Outages, outage)
		}
	}
	result.Warnings = append(result.Warnings, errs.warnings()...)
	return result, nil
}

// RemarksIndicateOutage reports whether free text contains an outage keyword as a whole word.
func (p *StatusParser) RemarksIndicateOutage(remarks string) bool {
	if p.outageW == nil || remarks == "" {
		return false
	}
	return p.outageW.MatchString(remarks)
}

func capacityLost(available *float64) bool {
	return available == nil || *available <= 0
}
