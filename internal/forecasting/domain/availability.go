package forecast

// Availability summarizes an ordered up/down day sequence.
type Availability struct {
	Days      int     `json:"days"`
	UpDays    int     `json:"up_days"`
	UptimePct float64 `json:"uptime_pct"`
	Failures  int     `json:"failure_count"`
	MTBFDays  float64 `json:"mtbf_days"`
}

// MeasureAvailability counts failures as up→down edges between consecutive
// days. MTBF is days per failure, or the full span when nothing failed.
func MeasureAvailability(up []bool) Availability {
	a := Availability{Days: len(up)}
	if a.Days == 0 {
		return a
	}
	for i, ok := range up {
		if ok {
			a.UpDays++
		}
		if i > 0 && up[i-1] && !ok {
			a.Failures++
		}
	}
	a.UptimePct = float64(a.UpDays) / float64(a.Days) * 100
	if a.Failures == 0 {
		a.MTBFDays = float64(a.Days)
	} else {
		a.MTBFDays = float64(a.Days) / float64(a.Failures)
	}
	return a
}

func uptimePct(up []bool) float64 {
	return MeasureAvailability(up).UptimePct
}
