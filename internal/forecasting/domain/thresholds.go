package forecast

import "fmt"

// Risk levels shared by the forecast categories.
const (
	RiskCritical = "critical"
	RiskWarning  = "warning"
	RiskSafe     = "safe"
	RiskGood     = "good"
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
)

// MaxHorizonMonths bounds demand and KPI projections.
const MaxHorizonMonths = 24

// Thresholds holds every tunable breakpoint of the engine.
type Thresholds struct {
	ReserveCriticalPct    float64    `yaml:"reserve_critical_pct"`
	ReserveWarningPct     float64    `yaml:"reserve_warning_pct"`
	UptimeCriticalPct     float64    `yaml:"uptime_critical_pct"`
	UptimeWarningPct      float64    `yaml:"uptime_warning_pct"`
	RiskMediumScore       float64    `yaml:"risk_medium_score"`
	RiskHighScore         float64    `yaml:"risk_high_score"`
	UptimeTrendPoints     float64    `yaml:"uptime_trend_points"`
	LoadShedTrendPct      float64    `yaml:"load_shed_trend_pct"`
	LoadShedLookbackDays  int        `yaml:"load_shed_lookback_days"`
	LoadShedHorizonMonths int        `yaml:"load_shed_horizon_months"`
	MinHistoryPoints      int        `yaml:"min_history_points"`
	DailyWindow           int        `yaml:"daily_window"`
	MonthlyWindow         int        `yaml:"monthly_window"`
	DailyStepsPerMonth    int        `yaml:"daily_steps_per_month"`
	ConservativeFactor    float64    `yaml:"conservative_factor"`
	AggressiveFactor      float64    `yaml:"aggressive_factor"`
	HighConfidenceR2      float64    `yaml:"high_confidence_r2"`
	MediumConfidenceR2    float64    `yaml:"medium_confidence_r2"`
	RiskRules             []RiskRule `yaml:"risk_rules"`
}

// DefaultThresholds returns the production breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ReserveCriticalPct:    5,
		ReserveWarningPct:     15,
		UptimeCriticalPct:     50,
		UptimeWarningPct:      80,
		RiskMediumScore:       30,
		RiskHighScore:         60,
		UptimeTrendPoints:     5,
		LoadShedTrendPct:      10,
		LoadShedLookbackDays:  365,
		LoadShedHorizonMonths: 6,
		MinHistoryPoints:      3,
		DailyWindow:           30,
		MonthlyWindow:         6,
		DailyStepsPerMonth:    30,
		ConservativeFactor:    1.0,
		AggressiveFactor:      1.5,
		HighConfidenceR2:      0.7,
		MediumConfidenceR2:    0.4,
		RiskRules:             DefaultRiskRules(),
	}
}

// Merge returns t with every non-zero field of override applied.
func (t Thresholds) Merge(override Thresholds) Thresholds {
	mergeFloat(&t.ReserveCriticalPct, override.ReserveCriticalPct)
	mergeFloat(&t.ReserveWarningPct, override.ReserveWarningPct)
	mergeFloat(&t.UptimeCriticalPct, override.UptimeCriticalPct)
	mergeFloat(&t.UptimeWarningPct, override.UptimeWarningPct)
	mergeFloat(&t.RiskMediumScore, override.RiskMediumScore)
	mergeFloat(&t.RiskHighScore, override.RiskHighScore)
	mergeFloat(&t.UptimeTrendPoints, override.UptimeTrendPoints)
	mergeFloat(&t.LoadShedTrendPct, override.LoadShedTrendPct)
	mergeInt(&t.LoadShedLookbackDays, override.LoadShedLookbackDays)
	mergeInt(&t.LoadShedHorizonMonths, override.LoadShedHorizonMonths)
	mergeInt(&t.MinHistoryPoints, override.MinHistoryPoints)
	mergeInt(&t.DailyWindow, override.DailyWindow)
	mergeInt(&t.MonthlyWindow, override.MonthlyWindow)
	mergeInt(&t.DailyStepsPerMonth, override.DailyStepsPerMonth)
	mergeFloat(&t.ConservativeFactor, override.ConservativeFactor)
	mergeFloat(&t.AggressiveFactor, override.AggressiveFactor)
	mergeFloat(&t.HighConfidenceR2, override.HighConfidenceR2)
	mergeFloat(&t.MediumConfidenceR2, override.MediumConfidenceR2)
	if len(override.RiskRules) > 0 {
		t.RiskRules = override.RiskRules
	}
	return t
}

// Validate checks that tiers are ordered and windows are usable.
func (t Thresholds) Validate() error {
	switch {
	case t.ReserveCriticalPct >= t.ReserveWarningPct:
		return fmt.Errorf("%w: reserve critical %.2f must be below warning %.2f", ErrInvalidThresholds, t.ReserveCriticalPct, t.ReserveWarningPct)
	case t.UptimeCriticalPct >= t.UptimeWarningPct:
		return fmt.Errorf("%w: uptime critical %.2f must be below warning %.2f", ErrInvalidThresholds, t.UptimeCriticalPct, t.UptimeWarningPct)
	case t.RiskMediumScore >= t.RiskHighScore:
		return fmt.Errorf("%w: risk medium %.2f must be below high %.2f", ErrInvalidThresholds, t.RiskMediumScore, t.RiskHighScore)
	case t.MinHistoryPoints < 2:
		return fmt.Errorf("%w: min_history_points must be at least 2", ErrInvalidThresholds)
	case t.DailyWindow < 2 || t.MonthlyWindow < 2:
		return fmt.Errorf("%w: rolling windows must be at least 2", ErrInvalidThresholds)
	case t.DailyStepsPerMonth < 1:
		return fmt.Errorf("%w: daily_steps_per_month must be positive", ErrInvalidThresholds)
	case t.LoadShedLookbackDays < 1 || t.LoadShedHorizonMonths < 1 || t.LoadShedHorizonMonths > MaxHorizonMonths:
		return fmt.Errorf("%w: load shedding window", ErrInvalidThresholds)
	case t.ConservativeFactor <= 0 || t.AggressiveFactor <= 0:
		return fmt.Errorf("%w: scenario factors must be positive", ErrInvalidThresholds)
	case t.MediumConfidenceR2 > t.HighConfidenceR2:
		return fmt.Errorf("%w: confidence cut-offs out of order", ErrInvalidThresholds)
	}
	return validateRiskRules(t.RiskRules)
}

// ReserveTier classifies a reserve margin in percent.
func (t Thresholds) ReserveTier(marginPct float64) string {
	switch {
	case marginPct < t.ReserveCriticalPct:
		return RiskCritical
	case marginPct < t.ReserveWarningPct:
		return RiskWarning
	default:
		return RiskSafe
	}
}

// UptimeTier classifies a station uptime in percent.
func (t Thresholds) UptimeTier(uptimePct float64) string {
	switch {
	case uptimePct < t.UptimeCriticalPct:
		return RiskCritical
	case uptimePct < t.UptimeWarningPct:
		return RiskWarning
	default:
		return RiskGood
	}
}

// ScoreTier classifies an additive unit risk score.
func (t Thresholds) ScoreTier(score float64) string {
	switch {
	case score >= t.RiskHighScore:
		return RiskHigh
	case score >= t.RiskMediumScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

func (t Thresholds) confidence(r2 float64) Confidence {
	switch {
	case r2 >= t.HighConfidenceR2:
		return ConfidenceHigh
	case r2 >= t.MediumConfidenceR2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
