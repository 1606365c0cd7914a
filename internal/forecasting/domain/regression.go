package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Fit is an ordinary least-squares line over (sequence index, value) pairs.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	N         int
}

// FitLinear regresses values against their index 0..n-1.
// A constant series fits perfectly and reports RSquared 1.
func FitLinear(values []float64) (Fit, error) {
	if len(values) < 2 {
		return Fit{}, ErrInsufficientPoints
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)
	r2 := stat.RSquared(xs, values, nil, intercept, slope)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 1
	}
	return Fit{Slope: slope, Intercept: intercept, RSquared: r2, N: len(values)}, nil
}

// Predict evaluates the line at index x.
func (f Fit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

func tail(values []float64, n int) []float64 {
	if n <= 0 || n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
