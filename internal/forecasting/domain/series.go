package forecast

import (
	"sort"
	"strings"
	"time"
)

// GridHistory is the date-ordered snapshots of one grid.
type GridHistory struct {
	Grid      string
	Snapshots []Snapshot
}

// AvailabilitySeries is the ordered up/down days of a station or unit.
type AvailabilitySeries struct {
	Station string
	UnitID  string
	Up      []bool
}

// KPISeries is the ordered monthly points of one KPI of one grid.
type KPISeries struct {
	Grid   string
	Name   string
	Points []Point
}

// GroupByGrid splits snapshots per grid, ordered by grid name then date.
func GroupByGrid(snapshots []Snapshot) []GridHistory {
	byGrid := make(map[string][]Snapshot)
	for _, s := range snapshots {
		byGrid[s.Grid] = append(byGrid[s.Grid], s)
	}
	out := make([]GridHistory, 0, len(byGrid))
	for grid, snaps := range byGrid {
		sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
		out = append(out, GridHistory{Grid: grid, Snapshots: snaps})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grid < out[j].Grid })
	return out
}

// DemandPoints returns the on-bars peak of each snapshot that has one.
func (h GridHistory) DemandPoints() []Point {
	var points []Point
	for _, s := range h.Snapshots {
		if s.PeakOnBarsMW != nil {
			points = append(points, Point{Period: s.Date, Value: *s.PeakOnBarsMW})
		}
	}
	return points
}

// Capacity returns the latest available capacity, falling back to the
// latest installed capacity.
func (h GridHistory) Capacity() (float64, bool) {
	for i := len(h.Snapshots) - 1; i >= 0; i-- {
		s := h.Snapshots[i]
		if s.AvailableCapacityMW > 0 {
			return s.AvailableCapacityMW, true
		}
		if s.TotalCapacityMW != nil && *s.TotalCapacityMW > 0 {
			return *s.TotalCapacityMW, true
		}
	}
	return 0, false
}

// StationSeries returns one up/down sequence per station, ordered by station
// key. Days where no unit of the station reported data are left out.
func (h GridHistory) StationSeries() []AvailabilitySeries {
	index := make(map[string]int)
	var out []AvailabilitySeries
	for _, s := range h.Snapshots {
		for _, st := range s.Stations {
			if st.OnlineUnits+st.OfflineUnits == 0 {
				continue
			}
			key := subjectKey(st.Name)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, AvailabilitySeries{Station: st.Name})
			}
			out[i].Up = append(out[i].Up, st.OnlineUnits > 0)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return subjectKey(out[i].Station) < subjectKey(out[j].Station) })
	return out
}

// UnitSeries returns one up/down sequence per unit, ordered by station and
// unit id. no_data days are left out.
func (h GridHistory) UnitSeries() []AvailabilitySeries {
	index := make(map[string]int)
	var out []AvailabilitySeries
	for _, s := range h.Snapshots {
		for _, u := range s.Units {
			if u.State == UnitNoData || u.UnitID == "" {
				continue
			}
			key := subjectKey(u.Station) + "\x00" + subjectKey(u.UnitID)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, AvailabilitySeries{Station: u.Station, UnitID: u.UnitID})
			}
			out[i].Up = append(out[i].Up, u.State == UnitOnline)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := subjectKey(out[i].Station), subjectKey(out[j].Station)
		if si != sj {
			return si < sj
		}
		return subjectKey(out[i].UnitID) < subjectKey(out[j].UnitID)
	})
	return out
}

// GroupKPIs splits KPI points per (grid, name), dropping points after asOf.
func GroupKPIs(points []KPIPoint, asOf time.Time) []KPISeries {
	type key struct{ grid, name string }
	byKey := make(map[key][]Point)
	for _, p := range points {
		if p.Period.After(asOf) {
			continue
		}
		k := key{p.Grid, p.Name}
		byKey[k] = append(byKey[k], Point{Period: p.Period, Value: p.Value})
	}
	out := make([]KPISeries, 0, len(byKey))
	for k, pts := range byKey {
		out = append(out, KPISeries{Grid: k.grid, Name: k.name, Points: sortPoints(pts)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Grid != out[j].Grid {
			return out[i].Grid < out[j].Grid
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LatestKPI returns the last value of the named series of a grid.
func LatestKPI(series []KPISeries, grid, name string) (float64, bool) {
	for _, s := range series {
		if s.Grid == grid && s.Name == name && len(s.Points) > 0 {
			return s.Points[len(s.Points)-1].Value, true
		}
	}
	return 0, false
}

// FindKPI returns the points of the named series of a grid.
func FindKPI(series []KPISeries, grid, name string) []Point {
	for _, s := range series {
		if s.Grid == grid && s.Name == name {
			return s.Points
		}
	}
	return nil
}

func subjectKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MonthlyRollup folds KPI points into one value per grid, month and name:
// the maximum for peak demand, the mean for everything else.
func MonthlyRollup(points []KPIPoint) []KPIPoint {
	type key struct {
		grid, name string
		month      time.Time
	}
	type acc struct {
		sum, max float64
		n        int
	}
	byKey := make(map[key]*acc)
	for _, p := range points {
		k := key{p.Grid, p.Name, monthStart(p.Period)}
		a, ok := byKey[k]
		if !ok {
			a = &acc{max: p.Value}
			byKey[k] = a
		}
		a.sum += p.Value
		a.n++
		if p.Value > a.max {
			a.max = p.Value
		}
	}
	out := make([]KPIPoint, 0, len(byKey))
	for k, a := range byKey {
		v := a.sum / float64(a.n)
		if k.name == KPIPeakDemand {
			v = a.max
		}
		out = append(out, KPIPoint{Grid: k.grid, Name: k.name, Period: k.month, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Grid != out[j].Grid {
			return out[i].Grid < out[j].Grid
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Period.Before(out[j].Period)
	})
	return out
}
