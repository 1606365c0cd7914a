package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ingestion "genfleet-cloud/internal/ingestion/domain"
)

const kpiSourceReport = "report"

// ReportStore writes parsed reports to Postgres.
type ReportStore struct {
	db *sql.DB
}

// NewReportStore creates a report store.
func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// SaveReport writes the report with its units, stations, outages and KPI
// points in one transaction. A report already stored for the same grid and
// date is replaced.
func (s *ReportStore) SaveReport(ctx context.Context, report *ingestion.Report) (err error) {
	if s == nil || s.db == nil {
		return errors.New("report store: nil db")
	}
	if report == nil {
		return ingestion.ErrNilReport
	}
	if report.ID == "" || report.Grid == "" {
		return errors.New("report store: report id and grid required")
	}

	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("report store: encode summary: %w", err)
	}
	stats, err := json.Marshal(report.Stats)
	if err != nil {
		return fmt.Errorf("report store: encode stats: %w", err)
	}
	warnings, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("report store: encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM generation_reports WHERE grid = $1 AND report_date = $2",
		report.Grid, report.Date); err != nil {
		return err
	}

	peak := report.Summary.SystemPeak()
	_, err = tx.ExecContext(ctx, `
INSERT INTO generation_reports (
	id, grid, report_date, found_date, date_column, exact_date_match,
	peak_on_bars_mw, peak_suppressed_mw, total_capacity_mw, available_capacity_mw,
	summary, stats, warnings, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		report.ID, report.Grid, report.Date, report.FoundDate, report.DateColumn, report.ExactDateMatch,
		nullFloat(peak.OnBarsMW), nullFloat(peak.SuppressedMW), nullFloat(report.Summary.TotalCapacityMW),
		report.Summary.TotalAvailableMW, summary, stats, warnings, time.Now().UTC())
	if err != nil {
		return err
	}

	if err = insertUnits(ctx, tx, report); err != nil {
		return err
	}
	if err = insertStations(ctx, tx, report); err != nil {
		return err
	}
	if err = insertOutages(ctx, tx, report); err != nil {
		return err
	}
	if err = upsertKPIs(ctx, tx, report); err != nil {
		return err
	}
	return tx.Commit()
}

func insertUnits(ctx context.Context, tx *sql.Tx, report *ingestion.Report) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO report_units (
	report_id, row_num, station, engine, unit_id, installed_mva, installed_mw,
	derated_mw, available_mw, status, utilization_pct
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, u := range report.Units {
		if _, err := stmt.ExecContext(ctx, report.ID, u.Row, u.Station, u.Engine, u.UnitID,
			nullFloat(u.InstalledMVA), nullFloat(u.InstalledMW), nullFloat(u.DeratedMW),
			nullFloat(u.AvailableMW), string(u.Status), nullFloat(u.UtilizationPct)); err != nil {
			return fmt.Errorf("report store: unit row %d: %w", u.Row, err)
		}
	}
	return nil
}

func insertStations(ctx context.Context, tx *sql.Tx, report *ingestion.Report) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO report_stations (
	report_id, station, total_units, total_derated_mw, total_available_mw,
	online_units, offline_units, no_data_units, utilization_pct
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, st := range report.Stations {
		if _, err := stmt.ExecContext(ctx, report.ID, st.Name, st.TotalUnits, st.TotalDeratedMW,
			st.TotalAvailableMW, st.OnlineUnits, st.OfflineUnits, st.NoDataUnits,
			nullFloat(st.UtilizationPct)); err != nil {
			return fmt.Errorf("report store: station %s: %w", st.Name, err)
		}
	}
	return nil
}

func insertOutages(ctx context.Context, tx *sql.Tx, report *ingestion.Report) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO report_outages (
	report_id, row_num, station, engine, unit_id, reason, expected_completion,
	actual_completion, remarks, is_resolved, match_scope, status_conflict
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range report.Outages {
		var scope sql.NullString
		conflict := false
		if o.Match != nil {
			scope = sql.NullString{String: string(o.Match.Scope), Valid: true}
			conflict = o.Match.StatusConflict
		}
		if _, err := stmt.ExecContext(ctx, report.ID, o.Row, o.Station, o.Engine, o.UnitID, o.Reason,
			nullTime(o.ExpectedCompletion), nullTime(o.ActualCompletion), o.Remarks, o.IsResolved,
			scope, conflict); err != nil {
			return fmt.Errorf("report store: outage row %d: %w", o.Row, err)
		}
	}
	return nil
}

func upsertKPIs(ctx context.Context, tx *sql.Tx, report *ingestion.Report) error {
	for _, kpi := range report.KPIs() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kpi_points (grid, period_start, name, value, source, report_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (grid, period_start, name, source)
DO UPDATE SET value = EXCLUDED.value, report_id = EXCLUDED.report_id, updated_at = NOW()`,
			report.Grid, report.Date, kpi.Name, kpi.Value, kpiSourceReport, report.ID); err != nil {
			return fmt.Errorf("report store: kpi %s: %w", kpi.Name, err)
		}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
