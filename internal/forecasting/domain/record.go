package forecast

import "time"

// Kind identifies the forecast category of a record.
type Kind string

const (
	KindDemand       Kind = "demand"
	KindCapacity     Kind = "capacity"
	KindLoadShedding Kind = "load_shedding"
	KindKPI          Kind = "kpi"
)

// Scenario distinguishes the primary projection from the fallback pair.
type Scenario string

const (
	ScenarioPrimary      Scenario = "primary"
	ScenarioConservative Scenario = "conservative"
	ScenarioAggressive   Scenario = "aggressive"
)

// Confidence is a coarse label derived from the regression fit.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Fallback reasons.
const (
	FallbackInsufficientHistory = "insufficient_history"
	FallbackBackendUnreachable  = "backend_unreachable"
)

// Record is one projected value of a series at a future month.
type Record struct {
	Kind            Kind       `json:"kind"`
	Grid            string     `json:"grid"`
	Subject         string     `json:"subject"`
	ProjectedPeriod time.Time  `json:"projected_period"`
	MonthsAhead     int        `json:"months_ahead"`
	ProjectedValue  float64    `json:"projected_value"`
	ConfidenceLow   float64    `json:"confidence_low"`
	ConfidenceHigh  float64    `json:"confidence_high"`
	GrowthRatePct   float64    `json:"growth_rate_pct"`
	RiskLevel       string     `json:"risk_level,omitempty"`
	Scenario        Scenario   `json:"scenario"`
	Confidence      Confidence `json:"confidence"`
	IsFallback      bool       `json:"is_fallback"`
	FallbackReason  string     `json:"fallback_reason,omitempty"`
}

// Warning codes raised while forecasting.
const (
	WarningUnknownKPI = "unknown_kpi"
	WarningFallback   = "fallback"
	WarningNoHistory  = "no_history"
	WarningNoCapacity = "no_capacity"
)

// Warning is a non-fatal forecasting issue.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Grid    string `json:"grid,omitempty"`
	Subject string `json:"subject,omitempty"`
}
