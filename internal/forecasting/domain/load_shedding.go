package forecast

import (
	"math"
	"time"
)

// Trend labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendImproving  = "improving"
	TrendDeclining  = "declining"
	TrendStable     = "stable"
)

// LoadSheddingOutlook summarizes daily shed demand over the trailing window.
type LoadSheddingOutlook struct {
	Grid             string   `json:"grid"`
	Days             int      `json:"days"`
	DaysWithShedding int      `json:"days_with_shedding"`
	MeanMW           float64  `json:"mean_mw"`
	MaxMW            float64  `json:"max_mw"`
	Trend            string   `json:"trend"`
	ChangePct        float64  `json:"change_pct"`
	Projection       []Record `json:"projection"`
}

// ShedMW is the demand suppressed beyond what was served. A day without a
// suppressed figure shed nothing.
func ShedMW(onBars, suppressed *float64) (float64, bool) {
	if onBars == nil {
		return 0, false
	}
	if suppressed == nil {
		return 0, true
	}
	return math.Max(0, *suppressed-*onBars), true
}

// SheddingPoints extracts daily shed values within the lookback window
// ending at asOf, in date order.
func (e *Engine) SheddingPoints(snapshots []Snapshot, asOf time.Time) []Point {
	from := asOf.AddDate(0, 0, -e.th.LoadShedLookbackDays)
	var points []Point
	for _, s := range snapshots {
		if !s.Date.After(from) || s.Date.After(asOf) {
			continue
		}
		if shed, ok := ShedMW(s.PeakOnBarsMW, s.PeakSuppressedMW); ok {
			points = append(points, Point{Period: s.Date, Value: shed})
		}
	}
	return sortPoints(points)
}

// LoadShedding computes shedding statistics, the half-over-half trend and a
// projection over LoadShedHorizonMonths.
func (e *Engine) LoadShedding(grid string, points []Point, backendAvailable bool) (LoadSheddingOutlook, error) {
	if len(points) == 0 {
		return LoadSheddingOutlook{}, ErrNoHistory
	}
	points = sortPoints(points)
	values := pointValues(points)
	out := LoadSheddingOutlook{Grid: grid, Days: len(values), MeanMW: mean(values)}
	for _, v := range values {
		if v > 0 {
			out.DaysWithShedding++
		}
		if v > out.MaxMW {
			out.MaxMW = v
		}
	}
	out.Trend, out.ChangePct = e.shedTrend(values)

	projection, err := e.Project(Series{
		Kind:    KindLoadShedding,
		Grid:    grid,
		Subject: grid,
		Cadence: CadenceDaily,
		Points:  points,
		Bounds:  nonNeg,
	}, e.th.LoadShedHorizonMonths, backendAvailable)
	if err != nil {
		return out, err
	}
	out.Projection = projection
	return out, nil
}

// shedTrend compares the mean of the second half against the first half.
// Changes within LoadShedTrendPct are reported as stable.
func (e *Engine) shedTrend(values []float64) (string, float64) {
	if len(values) < 2 {
		return TrendStable, 0
	}
	half := len(values) / 2
	first, second := mean(values[:half]), mean(values[half:])
	if first == 0 {
		if second > 0 {
			return TrendIncreasing, 100
		}
		return TrendStable, 0
	}
	change := (second - first) / first * 100
	switch {
	case change > e.th.LoadShedTrendPct:
		return TrendIncreasing, change
	case change < -e.th.LoadShedTrendPct:
		return TrendDecreasing, change
	default:
		return TrendStable, change
	}
}
