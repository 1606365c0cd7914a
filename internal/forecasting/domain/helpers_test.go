package forecast

import (
	"math"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultThresholds())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyPoints returns values on consecutive days starting 2026-01-01.
func dailyPoints(values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Period: date(2026, time.January, 1).AddDate(0, 0, i), Value: v}
	}
	return points
}

// monthlyPoints returns values on consecutive months starting 2026-01.
func monthlyPoints(values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Period: date(2026, time.January, 1).AddDate(0, i, 0), Value: v}
	}
	return points
}
