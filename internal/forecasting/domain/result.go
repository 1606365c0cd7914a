package forecast

import (
	"fmt"
	"sort"
	"time"
)

// Result is the full output of one forecast run.
type Result struct {
	AsOf             time.Time             `json:"as_of"`
	Months           int                   `json:"months"`
	BackendAvailable bool                  `json:"backend_available"`
	Demand           []Record              `json:"demand"`
	Capacity         []CapacityOutlook     `json:"capacity"`
	LoadShedding     []LoadSheddingOutlook `json:"load_shedding"`
	Stations         []Reliability         `json:"stations"`
	Units            []UnitRisk            `json:"units"`
	KPIs             []Record              `json:"kpis"`
	Warnings         []Warning             `json:"warnings"`
}

// Records flattens every projected record in output order.
func (r *Result) Records() []Record {
	if r == nil {
		return nil
	}
	out := make([]Record, 0, len(r.Demand)+len(r.KPIs))
	out = append(out, r.Demand...)
	for _, c := range r.Capacity {
		out = append(out, c.Timeline...)
	}
	for _, ls := range r.LoadShedding {
		out = append(out, ls.Projection...)
	}
	out = append(out, r.KPIs...)
	return out
}

// FallbackSeries counts the distinct series that fell back, per reason.
func (r *Result) FallbackSeries() map[string]int {
	type key struct {
		kind          Kind
		grid, subject string
	}
	seen := make(map[key]struct{})
	counts := make(map[string]int)
	for _, rec := range r.Records() {
		if !rec.IsFallback {
			continue
		}
		k := key{rec.Kind, rec.Grid, rec.Subject}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		counts[rec.FallbackReason]++
	}
	return counts
}

// FallbackWarnings summarizes FallbackSeries as one warning per reason,
// ordered by reason.
func (r *Result) FallbackWarnings() []Warning {
	counts := r.FallbackSeries()
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	out := make([]Warning, 0, len(reasons))
	for _, reason := range reasons {
		out = append(out, Warning{
			Code:    WarningFallback,
			Message: fmt.Sprintf("%d series projected in fallback mode (%s)", counts[reason], reason),
		})
	}
	return out
}
