package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	forecast "genfleet-cloud/internal/forecasting/domain"
	"genfleet-cloud/internal/observability/metrics"
)

// BackendProbe reports whether the analytical backend is reachable.
type BackendProbe interface {
	Available(ctx context.Context) bool
}

// Request describes one forecast run. AsOf is the reference date; the
// service never reads the clock for forecast logic.
type Request struct {
	AsOf      time.Time
	Months    int
	RangeDays int
	Trigger   string
}

// Service reads persisted history and fans forecast computations out in
// parallel.
type Service struct {
	history forecast.HistoryReader
	engine  *forecast.Engine
	probe   BackendProbe
	cfg     Config
	logger  *log.Logger
}

// NewService constructs the forecast service. A nil probe means the
// in-process regression is the backend.
func NewService(history forecast.HistoryReader, engine *forecast.Engine, probe BackendProbe, cfg Config, logger *log.Logger) (*Service, error) {
	if history == nil {
		return nil, errors.New("forecast service: nil history reader")
	}
	if engine == nil {
		return nil, errors.New("forecast service: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{history: history, engine: engine, probe: probe, cfg: cfg, logger: logger}, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// partial is the output of one task; tasks write only their own slot.
type partial struct {
	demand   []forecast.Record
	capacity *forecast.CapacityOutlook
	shedding *forecast.LoadSheddingOutlook
	station  *forecast.Reliability
	unit     *forecast.UnitRisk
	kpis     []forecast.Record
	warnings []forecast.Warning
}

type task func() (partial, error)

// Run computes every forecast category for the reference date.
func (s *Service) Run(ctx context.Context, req Request) (*forecast.Result, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveForecast(req.Trigger, result, time.Since(start))
	}()

	if req.AsOf.IsZero() {
		result = metrics.ResultError
		return nil, forecast.ErrInvalidReferenceDate
	}
	asOf := time.Date(req.AsOf.Year(), req.AsOf.Month(), req.AsOf.Day(), 0, 0, 0, 0, time.UTC)
	months := req.Months
	if months == 0 {
		months = s.cfg.HorizonMonths
	}
	if months < 1 || months > forecast.MaxHorizonMonths {
		result = metrics.ResultError
		return nil, forecast.ErrInvalidHorizon
	}
	rangeDays := req.RangeDays
	if rangeDays <= 0 {
		rangeDays = s.cfg.RangeDays
	}

	snapshots, err := s.history.HistoricalSnapshots(ctx, asOf, rangeDays)
	if err != nil {
		result = metrics.ResultError
		return nil, fmt.Errorf("forecast: load snapshots: %w", err)
	}
	kpiPoints, err := s.history.MonthlyKPISeries(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, fmt.Errorf("forecast: load kpi series: %w", err)
	}

	grids := forecast.GroupByGrid(filterSnapshots(snapshots, asOf))
	kpis := forecast.GroupKPIs(kpiPoints, asOf)
	if len(grids) == 0 && len(kpis) == 0 {
		result = metrics.ResultNoHistory
		return nil, forecast.ErrNoHistory
	}

	backend := true
	if s.probe != nil {
		backend = s.probe.Available(ctx)
	}

	tasks := s.plan(asOf, months, backend, grids, kpis)
	slots := make([]partial, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := t()
			if err != nil {
				return err
			}
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	res := collect(slots)
	res.AsOf = asOf
	res.Months = months
	res.BackendAvailable = backend
	s.flagFallbacks(res)
	for kind, n := range countByKind(res.Records()) {
		metrics.AddForecastRecords(string(kind), n)
	}

	s.logger.Printf("forecast: run as_of=%s trigger=%s grids=%d tasks=%d records=%d warnings=%d backend=%t",
		asOf.Format("2006-01-02"), triggerName(req.Trigger), len(grids), len(tasks), len(res.Records()), len(res.Warnings), backend)
	return res, nil
}

// plan lists tasks in a fixed order so results are reproducible.
func (s *Service) plan(asOf time.Time, months int, backend bool, grids []forecast.GridHistory, kpis []forecast.KPISeries) []task {
	e := s.engine
	var tasks []task
	daily := make(map[string]struct{}, len(grids))

	for _, h := range grids {
		h := h
		daily[h.Grid] = struct{}{}
		tasks = append(tasks, func() (partial, error) {
			capacity, ok := s.capacityFor(h.Grid, h.Capacity)
			return s.demandAndCapacity(h.Grid, forecast.CadenceDaily, h.DemandPoints(), capacity, ok, months, backend)
		})
		tasks = append(tasks, func() (partial, error) {
			outlook, err := e.LoadShedding(h.Grid, e.SheddingPoints(h.Snapshots, asOf), backend)
			if errors.Is(err, forecast.ErrNoHistory) {
				return partial{warnings: []forecast.Warning{noHistory(h.Grid, "load_shedding")}}, nil
			}
			if err != nil {
				return partial{}, err
			}
			return partial{shedding: &outlook}, nil
		})
		for _, st := range h.StationSeries() {
			st := st
			tasks = append(tasks, func() (partial, error) {
				r, err := e.StationReliability(h.Grid, st.Station, st.Up)
				if err != nil {
					return partial{}, err
				}
				return partial{station: &r}, nil
			})
		}
		for _, u := range h.UnitSeries() {
			u := u
			tasks = append(tasks, func() (partial, error) {
				r, err := e.ScoreUnit(h.Grid, u.Station, u.UnitID, u.Up)
				if err != nil {
					return partial{}, err
				}
				return partial{unit: &r}, nil
			})
		}
	}

	for _, grid := range monthlyOnlyGrids(kpis, daily) {
		grid := grid
		tasks = append(tasks, func() (partial, error) {
			capacity, ok := s.capacityFor(grid, func() (float64, bool) {
				if v, ok := forecast.LatestKPI(kpis, grid, forecast.KPIAvailableCapacity); ok && v > 0 {
					return v, true
				}
				return forecast.LatestKPI(kpis, grid, forecast.KPIInstalledCapacity)
			})
			points := forecast.FindKPI(kpis, grid, forecast.KPIPeakDemand)
			return s.demandAndCapacity(grid, forecast.CadenceMonthly, points, capacity, ok, months, backend)
		})
	}

	for _, series := range kpis {
		series := series
		tasks = append(tasks, func() (partial, error) {
			records, warning, err := e.KPITrend(series.Grid, series.Name, series.Points, months, backend)
			if err != nil {
				return partial{}, err
			}
			out := partial{kpis: records}
			if warning != nil {
				out.warnings = append(out.warnings, *warning)
			}
			return out, nil
		})
	}
	return tasks
}

func (s *Service) demandAndCapacity(grid string, cadence forecast.Cadence, points []forecast.Point, capacityMW float64, hasCapacity bool, months int, backend bool) (partial, error) {
	demand, err := s.engine.Demand(grid, cadence, points, months, backend)
	if errors.Is(err, forecast.ErrNoHistory) {
		return partial{warnings: []forecast.Warning{noHistory(grid, "demand")}}, nil
	}
	if err != nil {
		return partial{}, err
	}
	out := partial{demand: demand}
	if !hasCapacity || capacityMW <= 0 {
		out.warnings = append(out.warnings, forecast.Warning{
			Code:    forecast.WarningNoCapacity,
			Message: "no installed or available capacity recorded; capacity timeline skipped",
			Grid:    grid,
			Subject: "capacity",
		})
		return out, nil
	}
	latest := latestValue(points)
	outlook := s.engine.CapacityTimeline(grid, capacityMW, latest, demand)
	out.capacity = &outlook
	return out, nil
}

// capacityFor prefers a configured override over recorded capacity.
func (s *Service) capacityFor(grid string, recorded func() (float64, bool)) (float64, bool) {
	if mw, ok := s.cfg.CapacityOverrides[grid]; ok && mw > 0 {
		return mw, true
	}
	return recorded()
}

func (s *Service) flagFallbacks(res *forecast.Result) {
	for reason, n := range res.FallbackSeries() {
		for i := 0; i < n; i++ {
			metrics.IncForecastFallback(reason)
		}
	}
	res.Warnings = append(res.Warnings, res.FallbackWarnings()...)
}

func collect(slots []partial) *forecast.Result {
	res := &forecast.Result{}
	for _, p := range slots {
		res.Demand = append(res.Demand, p.demand...)
		if p.capacity != nil {
			res.Capacity = append(res.Capacity, *p.capacity)
		}
		if p.shedding != nil {
			res.LoadShedding = append(res.LoadShedding, *p.shedding)
		}
		if p.station != nil {
			res.Stations = append(res.Stations, *p.station)
		}
		if p.unit != nil {
			res.Units = append(res.Units, *p.unit)
		}
		res.KPIs = append(res.KPIs, p.kpis...)
		res.Warnings = append(res.Warnings, p.warnings...)
	}
	return res
}

func filterSnapshots(snapshots []forecast.Snapshot, asOf time.Time) []forecast.Snapshot {
	out := make([]forecast.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Date.After(asOf) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func monthlyOnlyGrids(kpis []forecast.KPISeries, daily map[string]struct{}) []string {
	var grids []string
	for _, series := range kpis {
		if series.Name != forecast.KPIPeakDemand {
			continue
		}
		if _, ok := daily[series.Grid]; ok {
			continue
		}
		grids = append(grids, series.Grid)
	}
	return grids
}

func countByKind(records []forecast.Record) map[forecast.Kind]int {
	counts := make(map[forecast.Kind]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}

func latestValue(points []forecast.Point) float64 {
	var (
		latest time.Time
		value  float64
	)
	for _, p := range points {
		if !p.Period.Before(latest) {
			latest, value = p.Period, p.Value
		}
	}
	return value
}

func noHistory(grid, subject string) forecast.Warning {
	return forecast.Warning{
		Code:    forecast.WarningNoHistory,
		Message: subject + " has no historical points",
		Grid:    grid,
		Subject: subject,
	}
}

func triggerName(trigger string) string {
	if strings.TrimSpace(trigger) == "" {
		return "api"
	}
	return trigger
}
