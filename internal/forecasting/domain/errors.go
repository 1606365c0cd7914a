package forecast

import "errors"

var (
	// ErrNoHistory is returned when a series has no historical point at all.
	ErrNoHistory = errors.New("forecast: no history")
	// ErrInsufficientPoints is returned when a regression has fewer than two points.
	ErrInsufficientPoints = errors.New("forecast: insufficient points")
	// ErrInvalidHorizon is returned when the horizon is outside 1..MaxHorizonMonths.
	ErrInvalidHorizon = errors.New("forecast: invalid horizon")
	// ErrInvalidReferenceDate is returned when the as-of date is zero.
	ErrInvalidReferenceDate = errors.New("forecast: invalid reference date")
	// ErrInvalidThresholds is returned when a threshold set is inconsistent.
	ErrInvalidThresholds = errors.New("forecast: invalid thresholds")
)
