package interfaces

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

var recordHeader = []any{
	"Grid", "Subject", "Period", "Months Ahead", "Value", "Low", "High",
	"Growth %", "Scenario", "Confidence", "Risk", "Fallback", "Fallback Reason",
}

func recordRow(r forecast.Record) []any {
	return []any{
		r.Grid, r.Subject, r.ProjectedPeriod.Format("2006-01"), r.MonthsAhead,
		r.ProjectedValue, r.ConfidenceLow, r.ConfidenceHigh, r.GrowthRatePct,
		string(r.Scenario), string(r.Confidence), r.RiskLevel, r.IsFallback, r.FallbackReason,
	}
}

// BuildForecastXLSX renders a forecast result as one sheet per category.
func BuildForecastXLSX(res *forecast.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Generation Forecast"},
		{},
		{"As of", res.AsOf.Format("2006-01-02")},
		{"Horizon (months)", res.Months},
		{"Backend available", res.BackendAvailable},
		{"Records", len(res.Records())},
		{"Warnings", len(res.Warnings)},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	demand := [][]any{recordHeader}
	for _, r := range res.Demand {
		demand = append(demand, recordRow(r))
	}

	capacity := [][]any{{"Grid", "Capacity MW", "Latest Demand MW", "Reserve Margin %", "Risk", "Shortfall", "Aggressive Shortfall", "Fallback"}}
	timeline := [][]any{recordHeader}
	for _, c := range res.Capacity {
		capacity = append(capacity, []any{
			c.Grid, c.CapacityMW, c.LatestDemandMW, optionalFloat(c.ReserveMarginPct), c.RiskLevel,
			optionalMonth(c.ShortfallDate), optionalMonth(c.AggressiveShortfallDate), c.IsFallback,
		})
		for _, r := range c.Timeline {
			timeline = append(timeline, recordRow(r))
		}
	}

	shedding := [][]any{{"Grid", "Days", "Days With Shedding", "Mean MW", "Max MW", "Trend", "Change %"}}
	for _, ls := range res.LoadShedding {
		shedding = append(shedding, []any{ls.Grid, ls.Days, ls.DaysWithShedding, ls.MeanMW, ls.MaxMW, ls.Trend, ls.ChangePct})
		for _, r := range ls.Projection {
			timeline = append(timeline, recordRow(r))
		}
	}

	stations := [][]any{{"Grid", "Station", "Days", "Uptime %", "Failures", "MTBF Days", "Trend", "Risk"}}
	for _, st := range res.Stations {
		stations = append(stations, []any{st.Grid, st.Station, st.Days, st.UptimePct, st.Failures, st.MTBFDays, st.Trend, st.RiskLevel})
	}

	units := [][]any{{"Grid", "Station", "Unit", "Days", "Uptime %", "Failures", "MTBF Days", "Score", "Risk", "Rules"}}
	for _, u := range res.Units {
		units = append(units, []any{u.Grid, u.Station, u.UnitID, u.Days, u.UptimePct, u.Failures, u.MTBFDays, u.Score, u.RiskLevel, ruleTags(u.Rules)})
	}

	kpis := [][]any{append([]any{"KPI"}, recordHeader...)}
	for _, r := range res.KPIs {
		kpis = append(kpis, append([]any{r.Subject}, recordRow(r)...))
	}

	warnings := [][]any{{"Code", "Grid", "Subject", "Message"}}
	for _, w := range res.Warnings {
		warnings = append(warnings, []any{w.Code, w.Grid, w.Subject, w.Message})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"demand", demand},
		{"capacity", capacity},
		{"projections", timeline},
		{"load_shedding", shedding},
		{"stations", stations},
		{"units", units},
		{"kpis", kpis},
		{"warnings", warnings},
	}
	for _, sheet := range sheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, err
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// BuildForecastPDF renders the headline figures of a forecast result.
func BuildForecastPDF(res *forecast.Result) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Generation Forecast")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("As of: %s", res.AsOf.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Horizon: %d months", res.Months))
	pdf.Ln(5)
	backend := "available"
	if !res.BackendAvailable {
		backend = "unreachable (fallback projections)"
	}
	pdf.Cell(0, 6, fmt.Sprintf("Analytical backend: %s", backend))
	pdf.Ln(8)

	if len(res.Capacity) > 0 {
		tableHeader(pdf, "Capacity outlook", []string{"Grid", "Capacity MW", "Demand MW", "Reserve %", "Risk", "Shortfall"}, []float64{45, 35, 35, 30, 30, 40})
		for _, c := range res.Capacity {
			tableRow(pdf, []string{
				c.Grid,
				fmt.Sprintf("%.1f", c.CapacityMW),
				fmt.Sprintf("%.1f", c.LatestDemandMW),
				formatOptional(c.ReserveMarginPct),
				c.RiskLevel,
				formatMonth(c.ShortfallDate),
			}, []float64{45, 35, 35, 30, 30, 40})
		}
		pdf.Ln(6)
	}

	if len(res.Demand) > 0 {
		widths := []float64{45, 30, 35, 35, 35, 35, 35}
		tableHeader(pdf, "Demand projection", []string{"Grid", "Period", "Value MW", "Low", "High", "Scenario", "Confidence"}, widths)
		for _, r := range res.Demand {
			tableRow(pdf, []string{
				r.Grid,
				r.ProjectedPeriod.Format("2006-01"),
				fmt.Sprintf("%.1f", r.ProjectedValue),
				fmt.Sprintf("%.1f", r.ConfidenceLow),
				fmt.Sprintf("%.1f", r.ConfidenceHigh),
				string(r.Scenario),
				string(r.Confidence),
			}, widths)
		}
		pdf.Ln(6)
	}

	if len(res.LoadShedding) > 0 {
		widths := []float64{45, 25, 35, 30, 30, 35}
		tableHeader(pdf, "Load shedding", []string{"Grid", "Days", "Shed Days", "Mean MW", "Max MW", "Trend"}, widths)
		for _, ls := range res.LoadShedding {
			tableRow(pdf, []string{
				ls.Grid,
				fmt.Sprintf("%d", ls.Days),
				fmt.Sprintf("%d", ls.DaysWithShedding),
				fmt.Sprintf("%.1f", ls.MeanMW),
				fmt.Sprintf("%.1f", ls.MaxMW),
				ls.Trend,
			}, widths)
		}
		pdf.Ln(6)
	}

	risky := highRiskUnits(res.Units)
	if len(risky) > 0 {
		widths := []float64{45, 45, 25, 30, 25, 25, 30}
		tableHeader(pdf, "High-risk units", []string{"Grid", "Station", "Unit", "Uptime %", "Failures", "Score", "Risk"}, widths)
		for _, u := range risky {
			tableRow(pdf, []string{
				u.Grid, u.Station, u.UnitID,
				fmt.Sprintf("%.1f", u.UptimePct),
				fmt.Sprintf("%d", u.Failures),
				fmt.Sprintf("%.0f", u.Score),
				u.RiskLevel,
			}, widths)
		}
		pdf.Ln(6)
	}

	if len(res.Warnings) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Warnings")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		for _, w := range res.Warnings {
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s %s", w.Code, w.Grid, w.Message), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *gofpdf.Fpdf, title string, columns []string, widths []float64) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, title)
	pdf.Ln(7)
	for i, col := range columns {
		pdf.CellFormat(widths[i], 6, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
}

func tableRow(pdf *gofpdf.Fpdf, values []string, widths []float64) {
	for i, v := range values {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func highRiskUnits(units []forecast.UnitRisk) []forecast.UnitRisk {
	var out []forecast.UnitRisk
	for _, u := range units {
		if u.RiskLevel == forecast.RiskHigh {
			out = append(out, u)
		}
	}
	return out
}

func ruleTags(hits []forecast.RuleHit) string {
	tags := make([]string, 0, len(hits))
	for _, h := range hits {
		tags = append(tags, h.Tag)
	}
	return strings.Join(tags, ",")
}

func optionalFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalMonth(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01")
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatMonth(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01")
}
