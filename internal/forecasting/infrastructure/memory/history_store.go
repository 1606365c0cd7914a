package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

// SourceMonthly tags KPI points recorded directly for monthly-only grids.
const SourceMonthly = "monthly"

type snapshotKey struct {
	grid string
	date time.Time
}

type kpiKey struct {
	grid, name, source string
	period             time.Time
}

// HistoryStore is an in-memory history used when no database is configured.
type HistoryStore struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]forecast.Snapshot
	kpis      map[kpiKey]forecast.KPIPoint
}

// NewHistoryStore constructs an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		snapshots: make(map[snapshotKey]forecast.Snapshot),
		kpis:      make(map[kpiKey]forecast.KPIPoint),
	}
}

// PutSnapshot stores a snapshot, replacing the grid's previous one for the day.
func (s *HistoryStore) PutSnapshot(snapshot forecast.Snapshot) {
	snapshot.Date = dayStart(snapshot.Date)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{grid: snapshot.Grid, date: snapshot.Date}] = snapshot
}

// PutKPI stores a KPI point for a source, replacing the previous value.
func (s *HistoryStore) PutKPI(point forecast.KPIPoint, source string) {
	point.Period = dayStart(point.Period)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis[kpiKey{grid: point.Grid, name: point.Name, source: source, period: point.Period}] = point
}

// ReplaceReportKPIs drops a grid's daily KPI points for a date and stores new ones.
func (s *HistoryStore) ReplaceReportKPIs(grid string, date time.Time, points []forecast.KPIPoint, source string) {
	date = dayStart(date)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.kpis {
		if k.grid == grid && k.source == source && k.period.Equal(date) {
			delete(s.kpis, k)
		}
	}
	for _, p := range points {
		p.Period = date
		s.kpis[kpiKey{grid: p.Grid, name: p.Name, source: source, period: date}] = p
	}
}

// HistoricalSnapshots returns snapshots dated within rangeDays up to asOf,
// ordered by grid then date.
func (s *HistoryStore) HistoricalSnapshots(ctx context.Context, asOf time.Time, rangeDays int) ([]forecast.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asOf = dayStart(asOf)
	from := asOf.AddDate(0, 0, -rangeDays)

	s.mu.RLock()
	out := make([]forecast.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if !snap.Date.After(from) || snap.Date.After(asOf) {
			continue
		}
		out = append(out, snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Grid != out[j].Grid {
			return out[i].Grid < out[j].Grid
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// MonthlyKPISeries returns every stored KPI rolled up per month.
func (s *HistoryStore) MonthlyKPISeries(ctx context.Context) ([]forecast.KPIPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	points := make([]forecast.KPIPoint, 0, len(s.kpis))
	for _, p := range s.kpis {
		points = append(points, p)
	}
	s.mu.RUnlock()
	return forecast.MonthlyRollup(points), nil
}

// CountReports returns the number of stored snapshots of a grid, or of all
// grids when grid is empty.
func (s *HistoryStore) CountReports(grid string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.snapshots {
		if grid == "" || strings.EqualFold(k.grid, grid) {
			n++
		}
	}
	return n
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordMonthlyKPI stores a monthly KPI value at the start of its month.
func (s *HistoryStore) RecordMonthlyKPI(ctx context.Context, point forecast.KPIPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	point.Period = time.Date(point.Period.Year(), point.Period.Month(), 1, 0, 0, 0, 0, time.UTC)
	s.PutKPI(point, SourceMonthly)
	return nil
}
