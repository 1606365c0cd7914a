package forecast

// Reliability is the availability record of one station.
type Reliability struct {
	Grid      string  `json:"grid"`
	Station   string  `json:"station"`
	Days      int     `json:"days"`
	UptimePct float64 `json:"uptime_pct"`
	Failures  int     `json:"failure_count"`
	MTBFDays  float64 `json:"mtbf_days"`
	Trend     string  `json:"trend"`
	RiskLevel string  `json:"risk_level"`
}

// UnitRisk is the additive risk score of one unit.
type UnitRisk struct {
	Grid      string    `json:"grid"`
	Station   string    `json:"station"`
	UnitID    string    `json:"unit_id"`
	Days      int       `json:"days"`
	UptimePct float64   `json:"uptime_pct"`
	Failures  int       `json:"failure_count"`
	MTBFDays  float64   `json:"mtbf_days"`
	Score     float64   `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Rules     []RuleHit `json:"rules"`
}

// StationReliability scores a station from its ordered daily up flags,
// where up means at least one unit online.
func (e *Engine) StationReliability(grid, station string, up []bool) (Reliability, error) {
	if len(up) == 0 {
		return Reliability{}, ErrNoHistory
	}
	a := MeasureAvailability(up)
	return Reliability{
		Grid:      grid,
		Station:   station,
		Days:      a.Days,
		UptimePct: a.UptimePct,
		Failures:  a.Failures,
		MTBFDays:  a.MTBFDays,
		Trend:     e.uptimeTrend(up),
		RiskLevel: e.th.UptimeTier(a.UptimePct),
	}, nil
}

// ScoreUnit applies the risk rule table to a unit's ordered daily up flags.
func (e *Engine) ScoreUnit(grid, station, unitID string, up []bool) (UnitRisk, error) {
	if len(up) == 0 {
		return UnitRisk{}, ErrNoHistory
	}
	a := MeasureAvailability(up)
	score, hits := ScoreAvailability(e.th.RiskRules, a)
	return UnitRisk{
		Grid:      grid,
		Station:   station,
		UnitID:    unitID,
		Days:      a.Days,
		UptimePct: a.UptimePct,
		Failures:  a.Failures,
		MTBFDays:  a.MTBFDays,
		Score:     score,
		RiskLevel: e.th.ScoreTier(score),
		Rules:     hits,
	}, nil
}

func (e *Engine) uptimeTrend(up []bool) string {
	if len(up) < 2 {
		return TrendStable
	}
	half := len(up) / 2
	diff := uptimePct(up[half:]) - uptimePct(up[:half])
	switch {
	case diff > e.th.UptimeTrendPoints:
		return TrendImproving
	case diff < -e.th.UptimeTrendPoints:
		return TrendDeclining
	default:
		return TrendStable
	}
}
