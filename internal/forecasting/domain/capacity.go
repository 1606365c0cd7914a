package forecast

import "time"

// CapacityOutlook compares projected demand against flat capacity.
type CapacityOutlook struct {
	Grid                    string     `json:"grid"`
	CapacityMW              float64    `json:"capacity_mw"`
	LatestDemandMW          float64    `json:"latest_demand_mw"`
	ReserveMarginPct        *float64   `json:"reserve_margin_pct"`
	RiskLevel               string     `json:"risk_level"`
	ShortfallDate           *time.Time `json:"shortfall_date"`
	AggressiveShortfallDate *time.Time `json:"aggressive_shortfall_date,omitempty"`
	IsFallback              bool       `json:"is_fallback"`
	Timeline                []Record   `json:"timeline"`
}

// ReserveMarginPct is (capacity - demand) / capacity in percent.
// ok is false when capacity is not positive.
func ReserveMarginPct(capacityMW, demandMW float64) (float64, bool) {
	if capacityMW <= 0 {
		return 0, false
	}
	return (capacityMW - demandMW) / capacityMW * 100, true
}

// CapacityTimeline holds capacity flat and walks the demand projection.
// The shortfall date is the first projected month whose demand exceeds
// capacity; fallback demand yields one date per scenario.
func (e *Engine) CapacityTimeline(grid string, capacityMW, latestDemandMW float64, demand []Record) CapacityOutlook {
	out := CapacityOutlook{
		Grid:           grid,
		CapacityMW:     capacityMW,
		LatestDemandMW: latestDemandMW,
		RiskLevel:      RiskCritical,
	}
	if margin, ok := ReserveMarginPct(capacityMW, latestDemandMW); ok {
		out.ReserveMarginPct = &margin
		out.RiskLevel = e.th.ReserveTier(margin)
	}

	for _, d := range demand {
		if d.IsFallback {
			out.IsFallback = true
		}
		if d.ProjectedValue > capacityMW {
			period := d.ProjectedPeriod
			switch d.Scenario {
			case ScenarioAggressive:
				if out.AggressiveShortfallDate == nil {
					out.AggressiveShortfallDate = &period
				}
			default:
				if out.ShortfallDate == nil {
					out.ShortfallDate = &period
				}
			}
		}

		r := d
		r.Kind = KindCapacity
		r.RiskLevel = RiskCritical
		r.GrowthRatePct = 0
		if margin, ok := ReserveMarginPct(capacityMW, d.ProjectedValue); ok {
			r.ProjectedValue = margin
			r.ConfidenceLow, _ = ReserveMarginPct(capacityMW, d.ConfidenceHigh)
			r.ConfidenceHigh, _ = ReserveMarginPct(capacityMW, d.ConfidenceLow)
			r.RiskLevel = e.th.ReserveTier(margin)
		} else {
			r.ProjectedValue, r.ConfidenceLow, r.ConfidenceHigh = 0, 0, 0
		}
		out.Timeline = append(out.Timeline, r)
	}
	return out
}

// Demand projects a grid's peak on-bars demand.
func (e *Engine) Demand(grid string, cadence Cadence, points []Point, months int, backendAvailable bool) ([]Record, error) {
	return e.Project(Series{
		Kind:    KindDemand,
		Grid:    grid,
		Subject: grid,
		Cadence: cadence,
		Points:  points,
		Bounds:  nonNeg,
	}, months, backendAvailable)
}
