package forecast

import (
	"math"
	"sort"
	"time"
)

// Cadence is the sampling interval of a series.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceMonthly Cadence = "monthly"
)

// Point is one observation of a series.
type Point struct {
	Period time.Time
	Value  float64
}

// Bounds clamps projected values. Nil ends are open.
type Bounds struct {
	Min *float64
	Max *float64
}

var (
	zero       = 0.0
	hundred    = 100.0
	nonNeg     = Bounds{Min: &zero}
	percentage = Bounds{Min: &zero, Max: &hundred}
)

func (b Bounds) clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		v = *b.Min
	}
	if b.Max != nil && v > *b.Max {
		v = *b.Max
	}
	return v
}

// Series is one input to the shared projection.
type Series struct {
	Kind    Kind
	Grid    string
	Subject string
	Cadence Cadence
	Points  []Point
	Bounds  Bounds
}

// Engine computes forecasts from history. It holds no clock and no state
// beyond its thresholds.
type Engine struct {
	th Thresholds
}

// NewEngine constructs an Engine with validated thresholds.
func NewEngine(th Thresholds) (*Engine, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Engine{th: th}, nil
}

// Thresholds returns the engine's breakpoints.
func (e *Engine) Thresholds() Thresholds {
	return e.th
}

// Project regresses a series against its sequence index and projects it
// 1..months ahead of its last observation. With fewer than MinHistoryPoints
// observations, or without an analytical backend, it returns the
// conservative/aggressive fallback pair instead.
func (e *Engine) Project(s Series, months int, backendAvailable bool) ([]Record, error) {
	if len(s.Points) == 0 {
		return nil, ErrNoHistory
	}
	if months < 1 || months > MaxHorizonMonths {
		return nil, ErrInvalidHorizon
	}
	points := sortPoints(s.Points)
	anchor := monthStart(points[len(points)-1].Period)

	switch {
	case len(points) < e.th.MinHistoryPoints:
		return e.fallback(s, points, anchor, months, FallbackInsufficientHistory), nil
	case !backendAvailable:
		return e.fallback(s, points, anchor, months, FallbackBackendUnreachable), nil
	}

	values := pointValues(points)
	fit, err := FitLinear(values)
	if err != nil {
		return nil, err
	}
	steps := e.stepsPerMonth(s.Cadence)
	window := tail(values, e.window(s.Cadence))
	band := 2 * stdDev(window)
	growth := 0.0
	if m := mean(window); m != 0 {
		growth = fit.Slope * steps / math.Abs(m) * 100
	}
	confidence := e.th.confidence(fit.RSquared)
	last := float64(len(values) - 1)

	out := make([]Record, 0, months)
	for m := 1; m <= months; m++ {
		v := fit.Predict(last + float64(m)*steps)
		out = append(out, Record{
			Kind:            s.Kind,
			Grid:            s.Grid,
			Subject:         s.Subject,
			ProjectedPeriod: anchor.AddDate(0, m, 0),
			MonthsAhead:     m,
			ProjectedValue:  s.Bounds.clamp(v),
			ConfidenceLow:   s.Bounds.clamp(v - band),
			ConfidenceHigh:  s.Bounds.clamp(v + band),
			GrowthRatePct:   growth,
			Scenario:        ScenarioPrimary,
			Confidence:      confidence,
		})
	}
	return out, nil
}

// fallback extrapolates linearly from the most recent growth rate, once
// scaled by ConservativeFactor and once by AggressiveFactor.
func (e *Engine) fallback(s Series, points []Point, anchor time.Time, months int, reason string) []Record {
	last := points[len(points)-1].Value
	growth := e.recentMonthlyGrowthPct(points, s.Cadence)
	scenarios := []struct {
		name   Scenario
		factor float64
	}{
		{ScenarioConservative, e.th.ConservativeFactor},
		{ScenarioAggressive, e.th.AggressiveFactor},
	}

	out := make([]Record, 0, 2*months)
	for m := 1; m <= months; m++ {
		values := make([]float64, len(scenarios))
		for i, sc := range scenarios {
			values[i] = s.Bounds.clamp(last * (1 + growth*sc.factor/100*float64(m)))
		}
		low, high := math.Min(values[0], values[1]), math.Max(values[0], values[1])
		for i, sc := range scenarios {
			out = append(out, Record{
				Kind:            s.Kind,
				Grid:            s.Grid,
				Subject:         s.Subject,
				ProjectedPeriod: anchor.AddDate(0, m, 0),
				MonthsAhead:     m,
				ProjectedValue:  values[i],
				ConfidenceLow:   low,
				ConfidenceHigh:  high,
				GrowthRatePct:   growth * sc.factor,
				Scenario:        sc.name,
				Confidence:      ConfidenceLow,
				IsFallback:      true,
				FallbackReason:  reason,
			})
		}
	}
	return out
}

// recentMonthlyGrowthPct is the change between the last two observations,
// in percent per month.
func (e *Engine) recentMonthlyGrowthPct(points []Point, cadence Cadence) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	prev, cur := points[n-2], points[n-1]
	if prev.Value == 0 {
		return 0
	}
	change := (cur.Value - prev.Value) / math.Abs(prev.Value) * 100
	if cadence == CadenceMonthly {
		gap := monthsBetween(prev.Period, cur.Period)
		if gap < 1 {
			gap = 1
		}
		return change / float64(gap)
	}
	days := math.Round(cur.Period.Sub(prev.Period).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return change / days * float64(e.th.DailyStepsPerMonth)
}

func (e *Engine) stepsPerMonth(c Cadence) float64 {
	if c == CadenceMonthly {
		return 1
	}
	return float64(e.th.DailyStepsPerMonth)
}

func (e *Engine) window(c Cadence) int {
	if c == CadenceMonthly {
		return e.th.MonthlyWindow
	}
	return e.th.DailyWindow
}

func sortPoints(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}

func pointValues(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
