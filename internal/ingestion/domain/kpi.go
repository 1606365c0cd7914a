package ingestion

// KPI names recorded for each stored report.
const (
	KPIPeakDemandMW        = "peak_demand_mw"
	KPISuppressedDemandMW  = "suppressed_demand_mw"
	KPIInstalledCapacityMW = "installed_capacity_mw"
	KPIAvailableCapacityMW = "available_capacity_mw"
	KPIDeratedCapacityMW   = "derated_capacity_mw"
	KPIForcedOutageRatePct = "forced_outage_rate_pct"
	KPIReserveMarginPct    = "reserve_margin_pct"
	KPISystemUtilPct       = "system_utilization_pct"
	KPIAvailabilityPct     = "availability_pct"
	KPIOnlineUnits         = "online_units"
)

// KPIValue is one named daily value derived from a report.
type KPIValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// KPIs lists the report's KPI values in a fixed order; absent values are omitted.
func (r *Report) KPIs() []KPIValue {
	if r == nil {
		return nil
	}
	s := r.Summary
	out := make([]KPIValue, 0, 10)
	add := func(name string, v *float64) {
		if v != nil {
			out = append(out, KPIValue{Name: name, Value: *v})
		}
	}
	add(KPIPeakDemandMW, s.PeakDemandMW())
	add(KPISuppressedDemandMW, s.SystemPeak().SuppressedMW)
	add(KPIInstalledCapacityMW, s.TotalCapacityMW)
	out = append(out,
		KPIValue{Name: KPIAvailableCapacityMW, Value: s.TotalAvailableMW},
		KPIValue{Name: KPIDeratedCapacityMW, Value: s.TotalDeratedMW},
	)
	add(KPIForcedOutageRatePct, s.ForcedOutageRatePct)
	add(KPIReserveMarginPct, s.ReserveMarginPct)
	add(KPISystemUtilPct, s.SystemUtilizationPct)
	if r.Stats.TotalUnits > 0 {
		pct := float64(r.Stats.OnlineUnits) / float64(r.Stats.TotalUnits) * 100
		out = append(out, KPIValue{Name: KPIAvailabilityPct, Value: pct})
	}
	out = append(out, KPIValue{Name: KPIOnlineUnits, Value: float64(r.Stats.OnlineUnits)})
	return out
}
