package interfaces

import (
	"context"
	"net/http"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	forecastapp "genfleet-cloud/internal/forecasting/application"
	forecast "genfleet-cloud/internal/forecasting/domain"
)

var testAsOf = time.Date(2026, time.October, 13, 0, 0, 0, 0, time.UTC)

type fakeRunner struct {
	res  *forecast.Result
	err  error
	last forecastapp.Request
}

func (f *fakeRunner) Run(_ context.Context, req forecastapp.Request) (*forecast.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.AsOf = req.AsOf
	return &res, nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func as(req *http.Request, role auth.Role, grids ...string) *http.Request {
	ctx := auth.WithIdentity(req.Context(), auth.Identity{TenantID: "tenant-a", Role: role, Subject: "user-1", Grids: grids})
	return req.WithContext(ctx)
}

func sampleResult() *forecast.Result {
	margin := 12.0
	shortfall := time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC)
	rec := func(grid string, kind forecast.Kind, m int, v float64) forecast.Record {
		return forecast.Record{
			Kind:            kind,
			Grid:            grid,
			Subject:         grid,
			ProjectedPeriod: time.Date(2026, time.Month(10+m), 1, 0, 0, 0, 0, time.UTC),
			MonthsAhead:     m,
			ProjectedValue:  v,
			ConfidenceLow:   v - 5,
			ConfidenceHigh:  v + 5,
			Scenario:        forecast.ScenarioPrimary,
			Confidence:      forecast.ConfidenceHigh,
		}
	}
	fallback := func(r forecast.Record) forecast.Record {
		r.IsFallback = true
		r.FallbackReason = forecast.FallbackInsufficientHistory
		return r
	}
	kpi := rec("zanzibar", forecast.KindKPI, 1, 91)
	kpi.Subject = "availability_pct"
	return &forecast.Result{
		AsOf:             testAsOf,
		Months:           2,
		BackendAvailable: true,
		Demand: []forecast.Record{
			rec("national", forecast.KindDemand, 1, 210), rec("national", forecast.KindDemand, 2, 220),
			fallback(rec("zanzibar", forecast.KindDemand, 1, 50)), fallback(rec("zanzibar", forecast.KindDemand, 2, 52)),
		},
		Capacity: []forecast.CapacityOutlook{
			{Grid: "national", CapacityMW: 250, LatestDemandMW: 220, ReserveMarginPct: &margin, RiskLevel: forecast.RiskWarning, ShortfallDate: &shortfall,
				Timeline: []forecast.Record{rec("national", forecast.KindCapacity, 1, 16)}},
			{Grid: "zanzibar", CapacityMW: 60, LatestDemandMW: 50, RiskLevel: forecast.RiskSafe},
		},
		LoadShedding: []forecast.LoadSheddingOutlook{{Grid: "national", Days: 90, DaysWithShedding: 12, MeanMW: 3.5, MaxMW: 20, Trend: forecast.TrendStable}},
		Stations:     []forecast.Reliability{{Grid: "national", Station: "Ubungo", Days: 90, UptimePct: 97, RiskLevel: forecast.RiskGood, Trend: forecast.TrendStable}},
		Units: []forecast.UnitRisk{
			{Grid: "national", Station: "Ubungo", UnitID: "3", Days: 90, UptimePct: 45, Failures: 6, Score: 100, RiskLevel: forecast.RiskHigh,
				Rules: []forecast.RuleHit{{Tag: "uptime_lt_50", Factor: forecast.FactorUptime, Points: 40}}},
		},
		KPIs: []forecast.Record{kpi},
		Warnings: []forecast.Warning{
			{Code: forecast.WarningFallback, Message: "1 series projected in fallback mode (insufficient_history)"},
			{Code: forecast.WarningNoCapacity, Message: "no capacity", Grid: "pemba", Subject: "capacity"},
		},
	}
}
