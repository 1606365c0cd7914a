package forecast

import "testing"

func TestKPITrend_UnknownName(t *testing.T) {
	records, warning, err := newTestEngine(t).KPITrend("g", "tariff_usd", monthlyPoints(1, 2, 3), 3, true)
	if err != nil {
		t.Fatalf("kpi trend: %v", err)
	}
	if records != nil || warning == nil || warning.Code != WarningUnknownKPI || warning.Subject != "tariff_usd" {
		t.Fatalf("expected unknown_kpi warning: %+v %+v", records, warning)
	}
}

func TestKPITrend_Clamps(t *testing.T) {
	e := newTestEngine(t)
	pct, _, err := e.KPITrend("g", "availability_pct", monthlyPoints(80, 90, 100), 2, true)
	if err != nil {
		t.Fatalf("percent trend: %v", err)
	}
	for _, r := range pct {
		if r.ProjectedValue != 100 || r.ConfidenceHigh > 100 {
			t.Fatalf("percent KPI must clamp to 100: %+v", r)
		}
	}

	count, _, err := e.KPITrend("g", "online_units", monthlyPoints(20, 10, 0), 2, true)
	if err != nil {
		t.Fatalf("count trend: %v", err)
	}
	for _, r := range count {
		if r.ProjectedValue != 0 || r.ConfidenceLow < 0 {
			t.Fatalf("count KPI must clamp at 0: %+v", r)
		}
	}
	if count[0].Kind != KindKPI || count[0].Subject != "online_units" {
		t.Fatalf("record identity mismatch: %+v", count[0])
	}
}
