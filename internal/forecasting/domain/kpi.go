package forecast

import "fmt"

// KPIClass decides how a KPI projection is clamped.
type KPIClass int

const (
	KPIPercent KPIClass = iota + 1
	KPICount
	KPICapacity
)

var kpiCatalog = map[string]KPIClass{
	"peak_demand_mw":         KPICapacity,
	"suppressed_demand_mw":   KPICapacity,
	"installed_capacity_mw":  KPICapacity,
	"available_capacity_mw":  KPICapacity,
	"derated_capacity_mw":    KPICapacity,
	"forced_outage_rate_pct": KPIPercent,
	"reserve_margin_pct":     KPIPercent,
	"system_utilization_pct": KPIPercent,
	"availability_pct":       KPIPercent,
	"online_units":           KPICount,
}

// Well-known KPI names used outside the trend loop.
const (
	KPIPeakDemand        = "peak_demand_mw"
	KPIAvailableCapacity = "available_capacity_mw"
	KPIInstalledCapacity = "installed_capacity_mw"
)

// KPIClassOf reports the class of a tracked KPI name.
func KPIClassOf(name string) (KPIClass, bool) {
	c, ok := kpiCatalog[name]
	return c, ok
}

func (c KPIClass) bounds() Bounds {
	if c == KPIPercent {
		return percentage
	}
	return nonNeg
}

// KPITrend projects one monthly KPI series. Unknown names are skipped with
// an unknown_kpi warning.
func (e *Engine) KPITrend(grid, name string, points []Point, months int, backendAvailable bool) ([]Record, *Warning, error) {
	class, ok := KPIClassOf(name)
	if !ok {
		return nil, &Warning{
			Code:    WarningUnknownKPI,
			Message: fmt.Sprintf("kpi %q is not tracked; series skipped", name),
			Grid:    grid,
			Subject: name,
		}, nil
	}
	records, err := e.Project(Series{
		Kind:    KindKPI,
		Grid:    grid,
		Subject: name,
		Cadence: CadenceMonthly,
		Points:  points,
		Bounds:  class.bounds(),
	}, months, backendAvailable)
	return records, nil, err
}
