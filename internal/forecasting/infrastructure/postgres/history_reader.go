package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

// SourceMonthly tags KPI points recorded directly for monthly-only grids.
const SourceMonthly = "monthly"

// HistoryReader reads persisted reports and KPI points.
type HistoryReader struct {
	db *sql.DB
}

// NewHistoryReader constructs a HistoryReader.
func NewHistoryReader(db *sql.DB) *HistoryReader {
	return &HistoryReader{db: db}
}

// HistoricalSnapshots returns report summaries dated within rangeDays up to
// asOf with their station and unit states, ordered by grid then date.
func (r *HistoryReader) HistoricalSnapshots(ctx context.Context, asOf time.Time, rangeDays int) ([]forecast.Snapshot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history reader: nil db")
	}
	if asOf.IsZero() {
		return nil, forecast.ErrInvalidReferenceDate
	}
	to := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -rangeDays)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, grid, report_date, peak_on_bars_mw, peak_suppressed_mw, total_capacity_mw, available_capacity_mw
FROM generation_reports
WHERE report_date > $1 AND report_date <= $2
ORDER BY grid, report_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []forecast.Snapshot
	index := make(map[string]int)
	for rows.Next() {
		var (
			id                 string
			snap               forecast.Snapshot
			onBars, suppressed sql.NullFloat64
			totalCapacity      sql.NullFloat64
		)
		if err := rows.Scan(&id, &snap.Grid, &snap.Date, &onBars, &suppressed, &totalCapacity, &snap.AvailableCapacityMW); err != nil {
			return nil, err
		}
		snap.Date = snap.Date.UTC()
		snap.PeakOnBarsMW = floatPtr(onBars)
		snap.PeakSuppressedMW = floatPtr(suppressed)
		snap.TotalCapacityMW = floatPtr(totalCapacity)
		index[id] = len(snapshots)
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	if err := r.loadStations(ctx, from, to, snapshots, index); err != nil {
		return nil, err
	}
	if err := r.loadUnits(ctx, from, to, snapshots, index); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *HistoryReader) loadStations(ctx context.Context, from, to time.Time, snapshots []forecast.Snapshot, index map[string]int) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT s.report_id, s.station, s.online_units, s.offline_units, s.no_data_units
FROM report_stations s
JOIN generation_reports g ON g.id = s.report_id
WHERE g.report_date > $1 AND g.report_date <= $2
ORDER BY s.report_id, s.station`, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			st forecast.StationDay
		)
		if err := rows.Scan(&id, &st.Name, &st.OnlineUnits, &st.OfflineUnits, &st.NoDataUnits); err != nil {
			return err
		}
		if i, ok := index[id]; ok {
			snapshots[i].Stations = append(snapshots[i].Stations, st)
		}
	}
	return rows.Err()
}

func (r *HistoryReader) loadUnits(ctx context.Context, from, to time.Time, snapshots []forecast.Snapshot, index map[string]int) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT u.report_id, u.station, u.unit_id, u.status
FROM report_units u
JOIN generation_reports g ON g.id = u.report_id
WHERE g.report_date > $1 AND g.report_date <= $2
ORDER BY u.report_id, u.row_num`, from, to)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, state string
			unit      forecast.UnitDay
		)
		if err := rows.Scan(&id, &unit.Station, &unit.UnitID, &state); err != nil {
			return err
		}
		unit.State = forecast.UnitState(state)
		if i, ok := index[id]; ok {
			snapshots[i].Units = append(snapshots[i].Units, unit)
		}
	}
	return rows.Err()
}

// MonthlyKPISeries rolls daily and monthly KPI points up per calendar month:
// the maximum for peak demand, the mean otherwise.
func (r *HistoryReader) MonthlyKPISeries(ctx context.Context) ([]forecast.KPIPoint, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("history reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT grid, name, date_trunc('month', period_start)::date AS period,
	CASE WHEN name = $1 THEN MAX(value) ELSE AVG(value) END AS value
FROM kpi_points
GROUP BY grid, name, date_trunc('month', period_start)
ORDER BY grid, name, period`, forecast.KPIPeakDemand)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []forecast.KPIPoint
	for rows.Next() {
		var p forecast.KPIPoint
		if err := rows.Scan(&p.Grid, &p.Name, &p.Period, &p.Value); err != nil {
			return nil, err
		}
		p.Period = p.Period.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordMonthlyKPI upserts a monthly KPI value for a grid without daily reports.
func (r *HistoryReader) RecordMonthlyKPI(ctx context.Context, point forecast.KPIPoint) error {
	if r == nil || r.db == nil {
		return errors.New("history reader: nil db")
	}
	period := time.Date(point.Period.Year(), point.Period.Month(), 1, 0, 0, 0, 0, time.UTC)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO kpi_points (grid, period_start, name, value, source, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (grid, period_start, name, source)
DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		point.Grid, period, point.Name, point.Value, SourceMonthly)
	return err
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}
