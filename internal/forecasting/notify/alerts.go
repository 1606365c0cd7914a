package notify

import (
	"fmt"
	"time"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

// Alert categories.
const (
	CategoryCapacity     = "capacity"
	CategoryLoadShedding = "load_shedding"
	CategoryStation      = "station"
	CategoryUnit         = "unit"
)

// Alert is one forecast finding worth telling an operator about.
type Alert struct {
	Category  string
	Grid      string
	Subject   string
	RiskLevel string
	Detail    string
}

// Key identifies the alert across runs for cooldown and dedupe.
func (a Alert) Key() string {
	return a.Category + "|" + a.Grid + "|" + a.Subject
}

// Alerts lists the findings of a forecast result: critical reserve margins or
// projected shortfalls, rising load shedding, critical stations and high-risk
// units, in result order.
func Alerts(res *forecast.Result) []Alert {
	if res == nil {
		return nil
	}
	var out []Alert
	for _, c := range res.Capacity {
		switch {
		case c.ShortfallDate != nil:
			out = append(out, Alert{
				Category:  CategoryCapacity,
				Grid:      c.Grid,
				RiskLevel: c.RiskLevel,
				Detail:    fmt.Sprintf("demand projected to exceed %.1f MW from %s", c.CapacityMW, c.ShortfallDate.Format("2006-01")),
			})
		case c.RiskLevel == forecast.RiskCritical:
			out = append(out, Alert{
				Category:  CategoryCapacity,
				Grid:      c.Grid,
				RiskLevel: c.RiskLevel,
				Detail:    fmt.Sprintf("reserve margin %s against %.1f MW", formatPct(c.ReserveMarginPct), c.CapacityMW),
			})
		}
	}
	for _, ls := range res.LoadShedding {
		if ls.Trend != forecast.TrendIncreasing {
			continue
		}
		out = append(out, Alert{
			Category:  CategoryLoadShedding,
			Grid:      ls.Grid,
			RiskLevel: forecast.RiskWarning,
			Detail:    fmt.Sprintf("load shedding up %.1f%% over %d days, mean %.1f MW", ls.ChangePct, ls.Days, ls.MeanMW),
		})
	}
	for _, st := range res.Stations {
		if st.RiskLevel != forecast.RiskCritical {
			continue
		}
		out = append(out, Alert{
			Category:  CategoryStation,
			Grid:      st.Grid,
			Subject:   st.Station,
			RiskLevel: st.RiskLevel,
			Detail:    fmt.Sprintf("uptime %.1f%% with %d failures, trend %s", st.UptimePct, st.Failures, st.Trend),
		})
	}
	for _, u := range res.Units {
		if u.RiskLevel != forecast.RiskHigh {
			continue
		}
		out = append(out, Alert{
			Category:  CategoryUnit,
			Grid:      u.Grid,
			Subject:   u.Station + " / " + u.UnitID,
			RiskLevel: u.RiskLevel,
			Detail:    fmt.Sprintf("risk score %.0f, uptime %.1f%%, %d failures", u.Score, u.UptimePct, u.Failures),
		})
	}
	return out
}

func buildTemplateData(a Alert, asOf time.Time) TemplateData {
	return TemplateData{
		Grid:          a.Grid,
		Subject:       a.Subject,
		Category:      a.Category,
		CategoryLabel: categoryLabel(a.Category),
		RiskLevel:     a.RiskLevel,
		Detail:        a.Detail,
		AsOf:          asOf.Format("2006-01-02"),
		Suggestion:    suggestionFor(a),
	}
}

func categoryLabel(category string) string {
	switch category {
	case CategoryCapacity:
		return "Capacity Risk"
	case CategoryLoadShedding:
		return "Load Shedding"
	case CategoryStation:
		return "Station Reliability"
	case CategoryUnit:
		return "Unit Risk"
	default:
		return category
	}
}

func suggestionFor(a Alert) string {
	switch a.Category {
	case CategoryCapacity:
		return "Review maintenance schedules and standby capacity."
	case CategoryLoadShedding:
		return "Check constrained feeders and dispatch plans."
	case CategoryStation, CategoryUnit:
		return "Inspect the outage history and plan corrective maintenance."
	default:
		return "Review the forecast."
	}
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
